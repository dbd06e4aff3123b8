package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNotConfigured is returned by gateways missing credentials
var ErrNotConfigured = errors.New("notification gateway is not configured")

// Gateway delivers short text messages to staff mobiles
type Gateway interface {
	// Send delivers message to phone, given in international digits-only form
	Send(ctx context.Context, phone, message string) error

	// Health reports whether the gateway is currently reachable
	Health(ctx context.Context) error

	// Name returns the name of the gateway implementation
	Name() string
}

// LogGateway writes messages to the log instead of delivering them. Used in
// development and when no channel is configured.
type LogGateway struct {
	logger logrus.FieldLogger
}

// NewLogGateway creates a new log-only gateway
func NewLogGateway(logger logrus.FieldLogger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send logs the message
func (g *LogGateway) Send(_ context.Context, phone, message string) error {
	g.logger.WithFields(logrus.Fields{
		"phone":   maskPhone(phone),
		"message": message,
	}).Info("Notification (log channel)")
	return nil
}

// Health always succeeds
func (g *LogGateway) Health(context.Context) error {
	return nil
}

// Name returns the name of this gateway
func (g *LogGateway) Name() string {
	return "log"
}

// maskPhone hides all but the last four digits
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}

// APIError is returned when a provider answers with a failure status
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}
