package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/servicedesk/repair-crm/internal/services"
	"github.com/sirupsen/logrus"
)

// Pinger checks that the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// JobMonitor reports background job state
type JobMonitor interface {
	ChannelHealth() services.ChannelHealth
	GetJobStatus() map[string]interface{}
}

// HealthHandler serves GET /health
type HealthHandler struct {
	db      Pinger
	jobs    JobMonitor
	version string
	logger  logrus.FieldLogger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, jobs JobMonitor, version string, logger logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{db: db, jobs: jobs, version: version, logger: logger}
}

// Check reports database and notification channel health. A broken channel
// degrades the service, a broken database makes it unavailable.
func (h *HealthHandler) Check(c *gin.Context) {
	channel := h.jobs.ChannelHealth()
	jobs := h.jobs.GetJobStatus()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WithError(err).Error("Health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "unhealthy",
			"database":     "unhealthy",
			"error":        err.Error(),
			"notification": channel,
			"jobs":         jobs,
		})
		return
	}

	status := "healthy"
	if !channel.Healthy {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"database":     "healthy",
		"notification": channel,
		"jobs":         jobs,
		"version":      h.version,
		"timestamp":    time.Now().Unix(),
	})
}
