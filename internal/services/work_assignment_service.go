package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/sirupsen/logrus"
)

// AssignmentOptions holds the configurable assignment rules
type AssignmentOptions struct {
	// StrictTransitions rejects status changes outside the legal edges of
	// models.AssignmentStatus.CanTransitionTo. When false any known status
	// may follow any other.
	StrictTransitions bool
	NotifyOnCreate    bool
	NotifyOnStatus    bool
}

// WorkAssignmentService handles work assignment business logic
type WorkAssignmentService struct {
	assignments AssignmentStore
	users       UserDirectory
	notifier    Notifier
	opts        AssignmentOptions
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewWorkAssignmentService creates a new WorkAssignmentService
func NewWorkAssignmentService(
	assignments AssignmentStore,
	users UserDirectory,
	notifier Notifier,
	opts AssignmentOptions,
	logger logrus.FieldLogger,
) *WorkAssignmentService {
	return &WorkAssignmentService{
		assignments: assignments,
		users:       users,
		notifier:    notifier,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}

// Create validates and stores a new assignment in pending status
func (s *WorkAssignmentService) Create(ctx context.Context, req *models.CreateWorkAssignmentRequest) (*models.WorkAssignment, error) {
	var issues issueList
	if err := validateStruct(req); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		issues = append(issues, verr.Issues...)
	}

	if req.AssignedBy <= 0 {
		issues.add("assignedBy", "is required")
	}

	assignee, ok := resolveAssignee(&issues, req.AssignedTo, req.UserList())
	if !ok && req.AssignedTo == 0 && !req.UserList().Valid {
		issues.add("assignedTo", "%s", models.ErrEmptyAssignee.Error())
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		issues.add("dueDate", "%s", err.Error())
	}

	if err := issues.err(); err != nil {
		return nil, err
	}

	assignees, err := s.requireAssignable(ctx, assignee)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	a := &models.WorkAssignment{
		AssignedBy:      req.AssignedBy,
		WorkType:        req.WorkType,
		WorkID:          req.WorkID,
		Priority:        priority,
		Status:          models.AssignmentStatusPending,
		AssignmentNotes: trimmedOrNil(req.AssignmentNotes),
		DueDate:         dueDate,
		CreatedAt:       s.now(),
	}
	a.SetAssignee(assignee)

	if err := s.assignments.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"assignment_id": a.ID,
		"work_type":     a.WorkType,
		"work_id":       a.WorkID,
		"assignees":     assignee.UserIDs(),
		"assigned_by":   a.AssignedBy,
	}).Info("Work assignment created")

	if s.opts.NotifyOnCreate {
		s.notifier.AssignmentCreated(a, assignees)
	}

	return a, nil
}

// Update applies a partial update under a row lock. Status changes set
// startedAt on the first move to in_progress and completedAt on completion.
func (s *WorkAssignmentService) Update(ctx context.Context, id int64, req *models.UpdateWorkAssignmentRequest) (*models.WorkAssignment, error) {
	var issues issueList
	if err := validateStruct(req); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		issues = append(issues, verr.Issues...)
	}

	var assignedTo int64
	if req.AssignedTo != nil {
		assignedTo = *req.AssignedTo
	}
	changeAssignee := req.AssignedTo != nil || req.UserList().Valid
	var newAssignee models.Assignee
	if changeAssignee {
		var ok bool
		newAssignee, ok = resolveAssignee(&issues, assignedTo, req.UserList())
		if !ok && !req.UserList().Valid {
			issues.add("assignedTo", "%s", models.ErrEmptyAssignee.Error())
		}
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		var err error
		if dueDate, err = parseDueDate(req.DueDate); err != nil {
			issues.add("dueDate", "%s", err.Error())
		}
	}

	if err := issues.err(); err != nil {
		return nil, err
	}

	if changeAssignee {
		if _, err := s.requireAssignable(ctx, newAssignee); err != nil {
			return nil, err
		}
	}

	var previous models.AssignmentStatus
	updated, err := s.assignments.UpdateWithLock(ctx, id, func(a *models.WorkAssignment) error {
		previous = a.Status

		if changeAssignee {
			a.SetAssignee(newAssignee)
		}
		if req.WorkType != nil {
			a.WorkType = *req.WorkType
		}
		if req.WorkID != nil {
			a.WorkID = *req.WorkID
		}
		if req.Priority != nil {
			a.Priority = *req.Priority
		}
		if req.AssignmentNotes != nil {
			a.AssignmentNotes = trimmedOrNil(req.AssignmentNotes)
		}
		if req.DueDate != nil {
			a.DueDate = dueDate
		}
		if req.Status != nil {
			return s.applyStatus(a, *req.Status)
		}
		return nil
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("work assignment", id)
	}
	if err != nil {
		return nil, err
	}

	if updated.Status != previous {
		s.logger.WithFields(logrus.Fields{
			"assignment_id": updated.ID,
			"from":          previous,
			"to":            updated.Status,
		}).Info("Work assignment status changed")

		if s.opts.NotifyOnStatus {
			assignees, err := s.GetAssignedUsers(ctx, updated)
			if err != nil {
				s.logger.WithError(err).WithField("assignment_id", updated.ID).Warn("Failed to resolve assignees for notification")
			} else {
				s.notifier.StatusChanged(updated, previous, assignees)
			}
		}
	}

	return updated, nil
}

// applyStatus moves a to next, enforcing the state machine when configured
func (s *WorkAssignmentService) applyStatus(a *models.WorkAssignment, next models.AssignmentStatus) error {
	if next == a.Status {
		return nil
	}

	if s.opts.StrictTransitions && !a.Status.CanTransitionTo(next) {
		return newValidationError(
			fmt.Sprintf("cannot change status from %s to %s", a.Status, next),
			FieldIssue{Field: "status", Message: "illegal status transition"},
		)
	}

	now := s.now()
	switch next {
	case models.AssignmentStatusInProgress:
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
	case models.AssignmentStatusCompleted:
		a.CompletedAt = &now
	}
	a.Status = next

	return nil
}

// Get returns an assignment by id
func (s *WorkAssignmentService) Get(ctx context.Context, id int64) (*models.WorkAssignment, error) {
	a, err := s.assignments.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("work assignment", id)
	}
	return a, err
}

// List returns all assignments, newest first
func (s *WorkAssignmentService) List(ctx context.Context) ([]*models.WorkAssignment, error) {
	return s.assignments.List(ctx)
}

// ListByUser returns assignments whose legacy primary assignee is userID
func (s *WorkAssignmentService) ListByUser(ctx context.Context, userID int64) ([]*models.WorkAssignment, error) {
	return s.assignments.ListByAssignedTo(ctx, userID)
}

// ListByMultipleUsers returns assignments involving any of userIDs, newest
// first. Rows without a usable user list match on their primary assignee.
func (s *WorkAssignmentService) ListByMultipleUsers(ctx context.Context, userIDs []int64) ([]*models.WorkAssignment, error) {
	result := []*models.WorkAssignment{}
	if len(userIDs) == 0 {
		return result, nil
	}

	candidates, err := s.assignments.ListCandidatesForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	for _, a := range candidates {
		if a.Assignee().ContainsAny(userIDs) {
			result = append(result, a)
		}
	}

	return result, nil
}

// Delete removes an assignment. It reports false when none existed and a
// conflict while anyone is still checked in.
func (s *WorkAssignmentService) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.assignments.Delete(ctx, id)
	if errors.Is(err, database.ErrOpenCheckins) {
		return false, conflictError(err)
	}
	if err != nil {
		return false, err
	}

	if deleted {
		s.logger.WithField("assignment_id", id).Info("Work assignment deleted")
	}
	return deleted, nil
}

// GetAssignedUsers returns the assignees in assignment order. Inactive and
// deleted users stay on the job and are returned with their flags set; ids
// with no user record are skipped.
func (s *WorkAssignmentService) GetAssignedUsers(ctx context.Context, a *models.WorkAssignment) ([]*models.User, error) {
	ids := a.Assignee().UserIDs()
	users := []*models.User{}
	if len(ids) == 0 {
		return users, nil
	}

	byID, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}

	return users, nil
}

// IsTeamAssignment reports whether more than one user works on a
func (s *WorkAssignmentService) IsTeamAssignment(ctx context.Context, a *models.WorkAssignment) (bool, error) {
	users, err := s.GetAssignedUsers(ctx, a)
	if err != nil {
		return false, err
	}
	return len(users) > 1, nil
}

// Team returns the assignees of an assignment and whether it is team work
func (s *WorkAssignmentService) Team(ctx context.Context, id int64) (*models.TeamView, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	users, err := s.GetAssignedUsers(ctx, a)
	if err != nil {
		return nil, err
	}

	return &models.TeamView{
		AssignmentID: a.ID,
		PrimaryID:    a.Assignee().Primary(),
		Users:        users,
		IsTeam:       len(users) > 1,
	}, nil
}

// requireAssignable checks that every assignee exists and may receive work,
// returning the users in assignment order
func (s *WorkAssignmentService) requireAssignable(ctx context.Context, assignee models.Assignee) ([]*models.User, error) {
	ids := assignee.UserIDs()
	byID, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	var issues issueList
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		u, ok := byID[id]
		switch {
		case !ok:
			issues.add("assignedUserIds", "user %d does not exist", id)
		case !u.CanBeAssigned():
			issues.add("assignedUserIds", "user %d is inactive or deleted", id)
		default:
			users = append(users, u)
		}
	}

	if err := issues.err(); err != nil {
		return nil, err
	}
	return users, nil
}

// resolveAssignee turns the request fields into an Assignee. A non-empty user
// list wins over assignedTo. Problems are added to issues.
func resolveAssignee(issues *issueList, assignedTo int64, list models.UserIDList) (models.Assignee, bool) {
	if list.Valid && len(list.IDs) > 0 {
		a, err := models.MultipleAssignees(list.IDs)
		if err != nil {
			issues.add("assignedUserIds", "%s", err.Error())
			return models.Assignee{}, false
		}
		return a, true
	}

	if assignedTo > 0 {
		return models.SingleAssignee(assignedTo), true
	}

	if list.Valid {
		issues.add("assignedUserIds", "%s", models.ErrEmptyAssignee.Error())
	}
	return models.Assignee{}, false
}

// parseDueDate accepts an ISO date or an RFC 3339 timestamp. Blank clears.
func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}

	value := strings.TrimSpace(*raw)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}

	return nil, fmt.Errorf("must be a date in YYYY-MM-DD format")
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
