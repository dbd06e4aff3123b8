package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/servicedesk/repair-crm/internal/database"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/sirupsen/logrus"
)

// maxClockSkew is how far a client-supplied time may lie ahead of the server clock
const maxClockSkew = 2 * time.Minute

// AssignmentReader is the part of the assignment store the check-in
// service needs
type AssignmentReader interface {
	GetByID(ctx context.Context, id int64) (*models.WorkAssignment, error)
}

// WorkCheckinService tracks who is working on an assignment
type WorkCheckinService struct {
	checkins    CheckinStore
	assignments AssignmentReader
	users       UserDirectory
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewWorkCheckinService creates a new WorkCheckinService
func NewWorkCheckinService(
	checkins CheckinStore,
	assignments AssignmentReader,
	users UserDirectory,
	logger logrus.FieldLogger,
) *WorkCheckinService {
	return &WorkCheckinService{
		checkins:    checkins,
		assignments: assignments,
		users:       users,
		logger:      logger,
		now:         time.Now,
	}
}

// CheckIn opens a session for req.UserID. A user holds at most one open
// session per assignment; different users never conflict.
func (s *WorkCheckinService) CheckIn(ctx context.Context, req *models.CheckInRequest) (*models.WorkCheckin, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.UserID <= 0 {
		return nil, newValidationError("validation failed", FieldIssue{Field: "userId", Message: "is required"})
	}

	user, err := s.users.GetUser(ctx, req.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, newValidationError("validation failed", FieldIssue{Field: "userId", Message: fmt.Sprintf("user %d does not exist", req.UserID)})
	}
	if err != nil {
		return nil, err
	}
	if !user.CanBeAssigned() {
		return nil, newValidationError("validation failed", FieldIssue{Field: "userId", Message: fmt.Sprintf("user %d is inactive or deleted", req.UserID)})
	}

	checkInTime := s.now()
	if req.CheckInTime != nil {
		if req.CheckInTime.After(checkInTime.Add(maxClockSkew)) {
			return nil, newValidationError("validation failed", FieldIssue{Field: "checkInTime", Message: "must not be in the future"})
		}
		checkInTime = *req.CheckInTime
	}

	c := &models.WorkCheckin{
		AssignmentID:  req.AssignmentID,
		UserID:        req.UserID,
		CheckedInWith: companions(req.CheckedInWith, req.UserID),
		CheckInTime:   checkInTime,
		Location:      trimmedOrNil(req.Location),
		Notes:         trimmedOrNil(req.Notes),
	}

	err = s.checkins.CheckIn(ctx, c)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, notFoundError("work assignment", req.AssignmentID)
	case errors.Is(err, database.ErrAlreadyCheckedIn), errors.Is(err, database.ErrAssignmentClosed):
		return nil, conflictError(err)
	case err != nil:
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"checkin_id":    c.ID,
		"assignment_id": c.AssignmentID,
		"user_id":       c.UserID,
	}).Info("User checked in")

	return c, nil
}

// CheckOut closes a session. Closing an already closed session changes
// nothing and returns it as stored.
func (s *WorkCheckinService) CheckOut(ctx context.Context, id int64, req *models.CheckOutRequest) (*models.WorkCheckin, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.CheckOutTime != nil && req.CheckOutTime.After(s.now().Add(maxClockSkew)) {
		return nil, newValidationError("validation failed", FieldIssue{Field: "checkOutTime", Message: "must not be in the future"})
	}

	closed := false
	c, err := s.checkins.UpdateWithLock(ctx, id, func(c *models.WorkCheckin) (bool, error) {
		if !c.IsOpen() {
			return false, nil
		}

		checkOutTime := s.now()
		if req.CheckOutTime != nil {
			checkOutTime = *req.CheckOutTime
		}
		if checkOutTime.Before(c.CheckInTime) {
			return false, newValidationError("validation failed", FieldIssue{Field: "checkOutTime", Message: "must not be before the check-in time"})
		}

		c.CheckOutTime = &checkOutTime
		if req.Notes != nil {
			c.Notes = trimmedOrNil(req.Notes)
		}
		closed = true
		return true, nil
	})
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("check-in", id)
	}
	if err != nil {
		return nil, err
	}

	if closed {
		s.logger.WithFields(logrus.Fields{
			"checkin_id":    c.ID,
			"assignment_id": c.AssignmentID,
			"user_id":       c.UserID,
			"duration_min":  int64(c.Duration().Minutes()),
		}).Info("User checked out")
	}

	return c, nil
}

// Get returns a check-in by id
func (s *WorkCheckinService) Get(ctx context.Context, id int64) (*models.WorkCheckin, error) {
	c, err := s.checkins.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFoundError("check-in", id)
	}
	return c, err
}

// IsUserCheckedIn reports whether the user has an open session on the assignment
func (s *WorkCheckinService) IsUserCheckedIn(ctx context.Context, userID, assignmentID int64) (*models.CheckinStatus, error) {
	status := &models.CheckinStatus{AssignmentID: assignmentID, UserID: userID}

	open, err := s.checkins.FindOpen(ctx, userID, assignmentID)
	if errors.Is(err, database.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	status.CheckedIn = true
	status.OpenCheckin = open
	return status, nil
}

// ListByAssignment returns the sessions of an assignment, newest first
func (s *WorkCheckinService) ListByAssignment(ctx context.Context, assignmentID int64) ([]*models.WorkCheckin, error) {
	return s.checkins.ListByAssignment(ctx, assignmentID)
}

// ListByUser returns the sessions of a user, newest first
func (s *WorkCheckinService) ListByUser(ctx context.Context, userID int64) ([]*models.WorkCheckin, error) {
	return s.checkins.ListByUser(ctx, userID)
}

// ActivityFeed renders the most recent sessions of an assignment, newest
// first. A limit of zero or less returns everything.
func (s *WorkCheckinService) ActivityFeed(ctx context.Context, assignmentID int64, limit int) ([]models.ActivityEntry, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, notFoundError("work assignment", assignmentID)
		}
		return nil, err
	}

	checkins, err := s.checkins.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(checkins) > limit {
		checkins = checkins[:limit]
	}

	ids := make([]int64, 0, len(checkins))
	for _, c := range checkins {
		ids = append(ids, c.UserID)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	feed := make([]models.ActivityEntry, 0, len(checkins))
	for _, c := range checkins {
		name := fmt.Sprintf("User #%d", c.UserID)
		if u, ok := users[c.UserID]; ok {
			name = u.Name
		}

		feed = append(feed, models.ActivityEntry{
			CheckinID:       c.ID,
			UserID:          c.UserID,
			UserName:        name,
			State:           c.State(),
			Label:           c.Describe(),
			CheckInTime:     c.CheckInTime,
			CheckOutTime:    c.CheckOutTime,
			DurationMinutes: int64(c.Duration().Minutes()),
		})
	}

	return feed, nil
}

// companions drops the user themselves and repeated or invalid ids from the
// list of people checking in together
func companions(list models.UserIDList, self int64) models.UserIDList {
	if !list.Valid {
		return models.UserIDList{}
	}

	ids := make([]int64, 0, len(list.IDs))
	seen := map[int64]bool{self: true}
	for _, id := range list.IDs {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return models.NewUserIDList(ids)
}
