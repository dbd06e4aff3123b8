package models

import (
	"fmt"
	"time"
)

// CheckinState is the state of a single check-in session
type CheckinState string

const (
	CheckinStateOpen   CheckinState = "open"
	CheckinStateClosed CheckinState = "closed"
)

// activityTimeLayout formats times in the activity feed
const activityTimeLayout = "02 Jan 15:04"

// WorkCheckin is one user's presence session on an assignment
type WorkCheckin struct {
	ID            int64      `json:"id" db:"id"`
	AssignmentID  int64      `json:"assignmentId" db:"assignment_id"`
	UserID        int64      `json:"userId" db:"user_id"`
	CheckedInWith UserIDList `json:"checkedInWith" db:"checked_in_with"`
	CheckInTime   time.Time  `json:"checkInTime" db:"check_in_time"`
	CheckOutTime  *time.Time `json:"checkOutTime" db:"check_out_time"`
	Location      *string    `json:"location" db:"location"`
	Notes         *string    `json:"notes" db:"notes"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
}

// IsOpen reports whether the user has not checked out yet
func (c *WorkCheckin) IsOpen() bool {
	return c.CheckOutTime == nil
}

// State returns open or closed
func (c *WorkCheckin) State() CheckinState {
	if c.IsOpen() {
		return CheckinStateOpen
	}
	return CheckinStateClosed
}

// Duration returns the worked time of a closed session, zero while open
func (c *WorkCheckin) Duration() time.Duration {
	if c.CheckOutTime == nil {
		return 0
	}
	d := c.CheckOutTime.Sub(c.CheckInTime)
	if d < 0 {
		return 0
	}
	return d
}

// Describe renders the session for the activity feed
func (c *WorkCheckin) Describe() string {
	if c.IsOpen() {
		return "checked in"
	}
	return fmt.Sprintf("worked %s–%s", c.CheckInTime.Format(activityTimeLayout), c.CheckOutTime.Format(activityTimeLayout))
}

// CheckInRequest represents the body of POST /work-checkins
type CheckInRequest struct {
	AssignmentID  int64      `json:"assignmentId" validate:"required,gt=0"`
	UserID        int64      `json:"userId" validate:"gte=0"`
	Location      *string    `json:"location" validate:"omitempty,max=500"`
	Notes         *string    `json:"notes" validate:"omitempty,max=2000"`
	CheckedInWith UserIDList `json:"checkedInWith"`
	CheckInTime   *time.Time `json:"checkInTime"`
}

// CheckOutRequest represents the body of PATCH /work-checkins/:id
type CheckOutRequest struct {
	CheckOutTime *time.Time `json:"checkOutTime"`
	Notes        *string    `json:"notes" validate:"omitempty,max=2000"`
}

// CheckinStatus answers whether a user is currently on site for an assignment
type CheckinStatus struct {
	AssignmentID int64        `json:"assignmentId"`
	UserID       int64        `json:"userId"`
	CheckedIn    bool         `json:"checkedIn"`
	OpenCheckin  *WorkCheckin `json:"openCheckin,omitempty"`
}

// ActivityEntry is one line of an assignment's recent activity feed
type ActivityEntry struct {
	CheckinID       int64        `json:"checkinId"`
	UserID          int64        `json:"userId"`
	UserName        string       `json:"userName"`
	State           CheckinState `json:"state"`
	Label           string       `json:"label"`
	CheckInTime     time.Time    `json:"checkInTime"`
	CheckOutTime    *time.Time   `json:"checkOutTime"`
	DurationMinutes int64        `json:"durationMinutes"`
}
