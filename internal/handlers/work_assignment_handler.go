package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/sirupsen/logrus"
)

// AssignmentManager is the work assignment service as seen by the HTTP layer
type AssignmentManager interface {
	Create(ctx context.Context, req *models.CreateWorkAssignmentRequest) (*models.WorkAssignment, error)
	Update(ctx context.Context, id int64, req *models.UpdateWorkAssignmentRequest) (*models.WorkAssignment, error)
	Get(ctx context.Context, id int64) (*models.WorkAssignment, error)
	List(ctx context.Context) ([]*models.WorkAssignment, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.WorkAssignment, error)
	ListByMultipleUsers(ctx context.Context, userIDs []int64) ([]*models.WorkAssignment, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Team(ctx context.Context, id int64) (*models.TeamView, error)
}

// ActivityReader builds the recent activity of an assignment
type ActivityReader interface {
	ActivityFeed(ctx context.Context, assignmentID int64, limit int) ([]models.ActivityEntry, error)
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 200
)

// WorkAssignmentHandler handles work assignment HTTP requests
type WorkAssignmentHandler struct {
	assignments AssignmentManager
	activity    ActivityReader
	logger      logrus.FieldLogger
}

// NewWorkAssignmentHandler creates a new WorkAssignmentHandler
func NewWorkAssignmentHandler(assignments AssignmentManager, activity ActivityReader, logger logrus.FieldLogger) *WorkAssignmentHandler {
	return &WorkAssignmentHandler{
		assignments: assignments,
		activity:    activity,
		logger:      logger,
	}
}

// Create assigns a work item to one user or a team. assignedBy defaults to
// the caller.
// POST /api/v1/work-assignments
func (h *WorkAssignmentHandler) Create(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CreateWorkAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AssignedBy == 0 {
		req.AssignedBy = userCtx.UserID
	}

	assignment, err := h.assignments.Create(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "Work assigned successfully", assignment)
}

// List returns all assignments, or those involving ?userIds=2,3
// GET /api/v1/work-assignments
func (h *WorkAssignmentHandler) List(c *gin.Context) {
	var (
		assignments []*models.WorkAssignment
		err         error
	)

	if raw, present := c.GetQuery("userIds"); present {
		ids, parseErr := parseIDList(raw)
		if parseErr != nil {
			respondError(c, http.StatusBadRequest, "Invalid userIds", services.FieldIssue{Field: "userIds", Message: parseErr.Error()})
			return
		}
		assignments, err = h.assignments.ListByMultipleUsers(c.Request.Context(), ids)
	} else {
		assignments, err = h.assignments.List(c.Request.Context())
	}

	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", assignments)
}

// Get returns one assignment
// GET /api/v1/work-assignments/:id
func (h *WorkAssignmentHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	assignment, err := h.assignments.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", assignment)
}

// ListForUser returns assignments the user is on, alone or in a team
// GET /api/v1/work-assignments/user/:userId
func (h *WorkAssignmentHandler) ListForUser(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	assignments, err := h.assignments.ListByMultipleUsers(c.Request.Context(), []int64{userID})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", assignments)
}

// ListForPrimaryAssignee returns assignments by the legacy assignedTo column
// GET /api/v1/work-assignments/assignee/:userId
func (h *WorkAssignmentHandler) ListForPrimaryAssignee(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	assignments, err := h.assignments.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", assignments)
}

// Team returns the active assignees and whether this is team work
// GET /api/v1/work-assignments/:id/team
func (h *WorkAssignmentHandler) Team(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	team, err := h.assignments.Team(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", team)
}

// Activity returns the check-in activity feed, newest first
// GET /api/v1/work-assignments/:id/activity?limit=20
func (h *WorkAssignmentHandler) Activity(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	limit := defaultActivityLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, http.StatusBadRequest, "Invalid limit", services.FieldIssue{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = min(parsed, maxActivityLimit)
	}

	feed, err := h.activity.ActivityFeed(c.Request.Context(), id, limit)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", feed)
}

// Update changes an assignment. Non-admins may only move the status or edit
// notes of work they are assigned to.
// PATCH /api/v1/work-assignments/:id
func (h *WorkAssignmentHandler) Update(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateWorkAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}

	if !userCtx.IsAdmin() {
		if touchesAdminFields(&req) {
			respondError(c, http.StatusForbidden, "Only admins can reassign or reschedule work")
			return
		}
		current, err := h.assignments.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
		if !current.Assignee().Contains(userCtx.UserID) {
			respondError(c, http.StatusForbidden, "You are not assigned to this work")
			return
		}
	}

	assignment, err := h.assignments.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Work assignment updated", assignment)
}

// Delete removes an assignment
// DELETE /api/v1/work-assignments/:id
func (h *WorkAssignmentHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	deleted, err := h.assignments.Delete(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	if !deleted {
		respondError(c, http.StatusNotFound, "work assignment "+strconv.FormatInt(id, 10)+": not found")
		return
	}

	respond(c, http.StatusOK, "Work assignment deleted", gin.H{"id": id, "deleted": true})
}

func touchesAdminFields(req *models.UpdateWorkAssignmentRequest) bool {
	return req.AssignedTo != nil ||
		req.UserList().Valid ||
		req.WorkType != nil ||
		req.WorkID != nil ||
		req.Priority != nil ||
		req.DueDate != nil
}
