package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/sirupsen/logrus"
)

// UserManager is the identity store as seen by the HTTP layer
type UserManager interface {
	Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error)
	List(ctx context.Context, includeDeleted bool) ([]*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	Delete(ctx context.Context, id, deletedBy int64) error
	SetActive(ctx context.Context, id int64, active bool) (*models.User, error)
}

// UserHandler handles user directory HTTP requests
type UserHandler struct {
	users  UserManager
	logger logrus.FieldLogger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserManager, logger logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// List returns all users. Admins may pass ?includeDeleted=true.
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}

	includeDeleted := userCtx.IsAdmin() && c.Query("includeDeleted") == "true"
	users, err := h.users.List(c.Request.Context(), includeDeleted)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", users)
}

// Get returns one user
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "", user)
}

// Create registers a new user
// POST /api/v1/users
func (h *UserHandler) Create(c *gin.Context) {
	var req models.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Create(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "User created", user)
}

// Delete soft-deletes a user
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	userCtx, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id, userCtx.UserID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "User deleted", gin.H{"id": id})
}

// SetActive activates or deactivates a user
// PATCH /api/v1/users/:id/active
func (h *UserHandler) SetActive(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.IsActive == nil {
		respondError(c, http.StatusBadRequest, "validation failed", services.FieldIssue{Field: "isActive", Message: "is required"})
		return
	}

	user, err := h.users.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "User updated", user)
}
