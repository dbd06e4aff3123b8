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

// CheckinTracker is the check-in service as seen by the HTTP layer
type CheckinTracker interface {
	CheckIn(ctx context.Context, req *models.CheckInRequest) (*models.WorkCheckin, error)
	CheckOut(ctx context.Context, id int64, req *models.CheckOutRequest) (*models.WorkCheckin, error)
	Get(ctx context.Context, id int64) (*models.WorkCheckin, error)
	IsUserCheckedIn(ctx context.Context, userID, assignmentID int64) (*models.CheckinStatus, error)
	ListByAssignment(ctx context.Context, assignmentID int64) ([]*models.WorkCheckin, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.WorkCheckin, error)
}

// WorkCheckinHandler handles check-in HTTP requests
type WorkCheckinHandler struct {
	checkins CheckinTracker
	logger   logrus.FieldLogger
}

// NewWorkCheckinHandler creates a new WorkCheckinHandler
func NewWorkCheckinHandler(checkins CheckinTracker, logger logrus.FieldLogger) *WorkCheckinHandler {
	return &WorkCheckinHandler{checkins: checkins, logger: logger}
}

// CheckIn opens a session for the caller, or for userId when an admin calls
// POST /api/v1/work-checkins
func (h *WorkCheckinHandler) CheckIn(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var req models.CheckInRequest
	if !bindJSON(c, &req) {
		return
	}

	switch {
	case req.UserID == 0:
		req.UserID = userCtx.UserID
	case req.UserID != userCtx.UserID && !userCtx.IsAdmin():
		respondError(c, http.StatusForbidden, "You can only check in yourself")
		return
	}
	if req.CheckInTime != nil && !userCtx.IsAdmin() {
		respondError(c, http.StatusForbidden, "Only admins can set the check-in time")
		return
	}

	checkin, err := h.checkins.CheckIn(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "Checked in successfully", checkin)
}

// CheckOut closes a session. Closing a closed session returns it unchanged.
// PATCH /api/v1/work-checkins/:id
func (h *WorkCheckinHandler) CheckOut(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.CheckOutRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	if !userCtx.IsAdmin() {
		if req.CheckOutTime != nil {
			respondError(c, http.StatusForbidden, "Only admins can set the check-out time")
			return
		}
		current, err := h.checkins.Get(c.Request.Context(), id)
		if err != nil {
			respondServiceError(c, h.logger, err)
			return
		}
		if current.UserID != userCtx.UserID {
			respondError(c, http.StatusForbidden, "You can only check out your own session")
			return
		}
	}

	checkin, err := h.checkins.CheckOut(c.Request.Context(), id, &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Checked out successfully", checkin)
}

// ListByAssignment returns all sessions of an assignment, newest first
// GET /api/v1/work-checkins/assignment/:assignmentId
func (h *WorkCheckinHandler) ListByAssignment(c *gin.Context) {
	assignmentID, ok := idParam(c, "assignmentId")
	if !ok {
		return
	}

	checkins, err := h.checkins.ListByAssignment(c.Request.Context(), assignmentID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", checkins)
}

// ListByUser returns all sessions of a user, newest first
// GET /api/v1/work-checkins/user/:userId
func (h *WorkCheckinHandler) ListByUser(c *gin.Context) {
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}

	checkins, err := h.checkins.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", checkins)
}

// Status reports whether a user is checked in on an assignment
// GET /api/v1/work-checkins/status?userId=2&assignmentId=7
func (h *WorkCheckinHandler) Status(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	var issues []services.FieldIssue
	userID := userCtx.UserID
	if raw := c.Query("userId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			issues = append(issues, services.FieldIssue{Field: "userId", Message: "must be a positive integer"})
		}
		userID = parsed
	}
	assignmentID, err := strconv.ParseInt(c.Query("assignmentId"), 10, 64)
	if err != nil || assignmentID <= 0 {
		issues = append(issues, services.FieldIssue{Field: "assignmentId", Message: "must be a positive integer"})
	}
	if len(issues) > 0 {
		respondError(c, http.StatusBadRequest, "validation failed", issues...)
		return
	}

	status, err := h.checkins.IsUserCheckedIn(c.Request.Context(), userID, assignmentID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", status)
}
