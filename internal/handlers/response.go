package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/middleware"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/sirupsen/logrus"
)

// SuccessResponse is the envelope of every successful response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// ErrorResponse is the envelope of every failed response
type ErrorResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Errors  []services.FieldIssue `json:"errors,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Message: message, Data: data})
}

func respondError(c *gin.Context, status int, message string, issues ...services.FieldIssue) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Message: message, Errors: issues})
}

// respondServiceError maps service errors onto HTTP status codes. Unknown
// errors are logged and reported without detail.
func respondServiceError(c *gin.Context, logger logrus.FieldLogger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(c, http.StatusBadRequest, verr.Message, verr.Issues...)
	case errors.Is(err, services.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		respondError(c, http.StatusConflict, strings.TrimPrefix(err.Error(), services.ErrConflict.Error()+": "))
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		respondError(c, http.StatusForbidden, err.Error())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": middleware.GetRequestID(c),
		}).Error("Request failed")
		respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// bindJSON decodes the body and reports decoding failures as a 400
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", services.FieldIssue{Field: "body", Message: err.Error()})
		return false
	}
	return true
}

// idParam parses a positive int64 path parameter
func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid "+name, services.FieldIssue{Field: name, Message: "must be a positive integer"})
		return 0, false
	}
	return id, true
}

// parseIDList parses "2,3,5" into ids. Blank entries are ignored.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("must be a comma separated list of positive integers")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// currentUser returns the authenticated caller, responding 401 when absent
func currentUser(c *gin.Context) (middleware.UserContext, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
	}
	return userCtx, ok
}
