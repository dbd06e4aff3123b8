package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/servicedesk/repair-crm/pkg/notify"
	"github.com/sirupsen/logrus"
)

// healthCheckTimeout bounds a single notification channel probe
const healthCheckTimeout = 10 * time.Second

// ChannelHealth is the last observed state of the notification channel
type ChannelHealth struct {
	Channel   string    `json:"channel"`
	Healthy   bool      `json:"healthy"`
	LastError string    `json:"lastError,omitempty"`
	CheckedAt time.Time `json:"checkedAt"`
}

// CronService manages scheduled background jobs. The only job polls the
// notification channel so /health can report it without calling out.
type CronService struct {
	cron     *cron.Cron
	gateway  notify.Gateway
	schedule string
	logger   logrus.FieldLogger

	mu     sync.RWMutex
	health ChannelHealth
}

// NewCronService creates a new CronService. An empty schedule disables the
// periodic poll; the channel is still probed once on Start.
func NewCronService(gateway notify.Gateway, schedule string, logger logrus.FieldLogger) *CronService {
	// Cron format with seconds: second minute hour day month weekday
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:     c,
		gateway:  gateway,
		schedule: schedule,
		logger:   logger,
		health:   ChannelHealth{Channel: gateway.Name()},
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	if s.schedule != "" {
		if _, err := s.cron.AddFunc(s.schedule, s.checkNotificationChannelJob); err != nil {
			return fmt.Errorf("failed to schedule notification health job: %w", err)
		}
		s.logger.WithField("schedule", s.schedule).Info("Scheduled: notification channel health check")
	}

	s.checkNotificationChannelJob()

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

// ChannelHealth returns the result of the latest probe
func (s *CronService) ChannelHealth() ChannelHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}

func (s *CronService) checkNotificationChannelJob() {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()

	result := ChannelHealth{
		Channel:   s.gateway.Name(),
		Healthy:   true,
		CheckedAt: time.Now(),
	}

	if err := s.gateway.Health(ctx); err != nil {
		result.Healthy = false
		result.LastError = err.Error()
		s.logger.WithError(err).WithField("channel", result.Channel).Warn("Notification channel unhealthy")
	}

	s.mu.Lock()
	previous := s.health
	s.health = result
	s.mu.Unlock()

	if result.Healthy && !previous.Healthy && !previous.CheckedAt.IsZero() {
		s.logger.WithField("channel", result.Channel).Info("Notification channel recovered")
	}
}
