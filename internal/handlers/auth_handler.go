package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/servicedesk/repair-crm/internal/utils"
	"github.com/sirupsen/logrus"
)

// Authenticator issues access tokens for staff credentials
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	auth   Authenticator
	logger logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth Authenticator, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// Login exchanges username and password for an access token
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrAccountDisabled) {
			h.logger.WithFields(logrus.Fields{
				"username": req.Username,
				"ip":       utils.GetRealIP(c),
			}).WithError(err).Warn("Login failed")
		}
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, "Login successful", response)
}
