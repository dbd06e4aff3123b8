package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/servicedesk/repair-crm/pkg/notify"
	"github.com/servicedesk/repair-crm/pkg/validator"
	"github.com/sirupsen/logrus"
)

// dueDateLayout formats due dates in notification texts
const dueDateLayout = "02 Jan 2006"

// NotificationService sends assignment events to assignees in the background.
// Delivery is best effort: failures are logged and never returned.
type NotificationService struct {
	gateway notify.Gateway
	mobile  *validator.MobileValidator
	timeout time.Duration
	logger  logrus.FieldLogger
	wg      sync.WaitGroup
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(gateway notify.Gateway, mobile *validator.MobileValidator, timeout time.Duration, logger logrus.FieldLogger) *NotificationService {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &NotificationService{
		gateway: gateway,
		mobile:  mobile,
		timeout: timeout,
		logger:  logger,
	}
}

// AssignmentCreated tells every assignee about new work
func (s *NotificationService) AssignmentCreated(a *models.WorkAssignment, assignees []*models.User) {
	message := fmt.Sprintf("New work assigned: %s #%d, priority %s.", workLabel(a.WorkType), a.WorkID, a.Priority)
	if len(assignees) > 1 {
		message += fmt.Sprintf(" Team of %d.", len(assignees))
	}
	if a.DueDate != nil {
		message += " Due " + a.DueDate.Format(dueDateLayout) + "."
	}
	if a.AssignmentNotes != nil && strings.TrimSpace(*a.AssignmentNotes) != "" {
		message += " Notes: " + strings.TrimSpace(*a.AssignmentNotes)
	}

	s.broadcast(a.ID, "assignment_created", assignees, message)
}

// StatusChanged tells every assignee about a status change
func (s *NotificationService) StatusChanged(a *models.WorkAssignment, from models.AssignmentStatus, assignees []*models.User) {
	message := fmt.Sprintf("%s #%d moved from %s to %s.",
		workLabel(a.WorkType), a.WorkID, statusLabel(from), statusLabel(a.Status))

	s.broadcast(a.ID, "status_changed", assignees, message)
}

// Wait blocks until all pending deliveries have finished
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) broadcast(assignmentID int64, event string, assignees []*models.User, message string) {
	for _, user := range assignees {
		entry := s.logger.WithFields(logrus.Fields{
			"assignment_id": assignmentID,
			"user_id":       user.ID,
			"event":         event,
			"channel":       s.gateway.Name(),
		})

		if !user.CanAuthenticate() {
			entry.Debug("Skipping notification, user is inactive or deleted")
			continue
		}
		if user.Mobile == nil || *user.Mobile == "" {
			entry.Debug("Skipping notification, user has no mobile number")
			continue
		}

		phone, err := s.mobile.Normalize(*user.Mobile)
		if err != nil {
			entry.WithError(err).Warn("Skipping notification, invalid mobile number")
			continue
		}

		s.wg.Add(1)
		go func(phone string, entry *logrus.Entry) {
			defer s.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()

			if err := s.gateway.Send(ctx, phone, message); err != nil {
				entry.WithError(err).Warn("Failed to deliver notification")
				return
			}
			entry.Debug("Notification delivered")
		}(phone, entry)
	}
}

func workLabel(t models.WorkType) string {
	switch t {
	case models.WorkTypeReceipt:
		return "Receipt"
	case models.WorkTypeServiceComplaint:
		return "Service complaint"
	default:
		return string(t)
	}
}

func statusLabel(s models.AssignmentStatus) string {
	return strings.ReplaceAll(string(s), "_", " ")
}
