package models

import (
	"time"
)

// WorkType identifies which kind of work item an assignment references
type WorkType string

const (
	WorkTypeReceipt          WorkType = "receipt"
	WorkTypeServiceComplaint WorkType = "service_complaint"
)

// Valid reports whether the work type is known
func (t WorkType) Valid() bool {
	return t == WorkTypeReceipt || t == WorkTypeServiceComplaint
}

// Priority represents assignment urgency
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether the priority is known
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AssignmentStatus represents the lifecycle state of an assignment
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusInProgress AssignmentStatus = "in_progress"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusCancelled  AssignmentStatus = "cancelled"
)

// assignmentTransitions lists the legal edges of the strict state machine.
// completed and cancelled are terminal.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusPending:    {AssignmentStatusInProgress, AssignmentStatusCancelled},
	AssignmentStatusInProgress: {AssignmentStatusCompleted, AssignmentStatusCancelled},
}

// Valid reports whether the status is one of the four known values
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusPending, AssignmentStatusInProgress, AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s AssignmentStatus) IsTerminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// CanTransitionTo reports whether next is a legal edge from s.
// Staying in the same status is always allowed.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range assignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WorkAssignment delegates a receipt or service complaint to one or more users.
//
// AssignedTo and AssignedUsers are the persisted form of an Assignee; use
// Assignee and SetAssignee instead of touching them directly.
type WorkAssignment struct {
	ID              int64            `json:"id" db:"id"`
	AssignedBy      int64            `json:"assignedBy" db:"assigned_by"`
	AssignedTo      int64            `json:"assignedTo" db:"assigned_to"`
	AssignedUsers   UserIDList       `json:"assignedUsers" db:"assigned_users"`
	WorkType        WorkType         `json:"workType" db:"work_type"`
	WorkID          int64            `json:"workId" db:"work_id"`
	Priority        Priority         `json:"priority" db:"priority"`
	Status          AssignmentStatus `json:"status" db:"status"`
	AssignmentNotes *string          `json:"assignmentNotes" db:"assignment_notes"`
	DueDate         *time.Time       `json:"dueDate" db:"due_date"`
	StartedAt       *time.Time       `json:"startedAt" db:"started_at"`
	CompletedAt     *time.Time       `json:"completedAt" db:"completed_at"`
	CreatedAt       time.Time        `json:"createdAt" db:"created_at"`
}

// Assignee returns who the assignment is delegated to
func (a *WorkAssignment) Assignee() Assignee {
	return AssigneeFromColumns(a.AssignedTo, a.AssignedUsers)
}

// SetAssignee stores the assignee in the legacy dual-column form
func (a *WorkAssignment) SetAssignee(assignee Assignee) {
	a.AssignedTo, a.AssignedUsers = assignee.Columns()
}

// CreateWorkAssignmentRequest represents the body of POST /work-assignments.
// Either AssignedTo or one of the user lists must be supplied; when a list is
// present it wins and its first user becomes the primary assignee.
type CreateWorkAssignmentRequest struct {
	AssignedBy      int64      `json:"assignedBy"`
	AssignedTo      int64      `json:"assignedTo" validate:"gte=0"`
	AssignedUsers   UserIDList `json:"assignedUsers"`
	AssignedUserIDs UserIDList `json:"assignedUserIds"`
	WorkType        WorkType   `json:"workType" validate:"required,oneof=receipt service_complaint"`
	WorkID          int64      `json:"workId" validate:"required,gt=0"`
	Priority        Priority   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AssignmentNotes *string    `json:"assignmentNotes" validate:"omitempty,max=2000"`
	DueDate         *string    `json:"dueDate"`
}

// UserList returns whichever user list the client supplied
func (r *CreateWorkAssignmentRequest) UserList() UserIDList {
	if r.AssignedUserIDs.Valid {
		return r.AssignedUserIDs
	}
	return r.AssignedUsers
}

// UpdateWorkAssignmentRequest represents the body of PATCH /work-assignments/:id.
// Nil fields are left untouched. An empty DueDate clears the due date.
type UpdateWorkAssignmentRequest struct {
	AssignedTo      *int64            `json:"assignedTo" validate:"omitempty,gt=0"`
	AssignedUsers   UserIDList        `json:"assignedUsers"`
	AssignedUserIDs UserIDList        `json:"assignedUserIds"`
	WorkType        *WorkType         `json:"workType" validate:"omitempty,oneof=receipt service_complaint"`
	WorkID          *int64            `json:"workId" validate:"omitempty,gt=0"`
	Priority        *Priority         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status          *AssignmentStatus `json:"status" validate:"omitempty,oneof=pending in_progress completed cancelled"`
	AssignmentNotes *string           `json:"assignmentNotes" validate:"omitempty,max=2000"`
	DueDate         *string           `json:"dueDate"`
}

// UserList returns whichever user list the client supplied
func (r *UpdateWorkAssignmentRequest) UserList() UserIDList {
	if r.AssignedUserIDs.Valid {
		return r.AssignedUserIDs
	}
	return r.AssignedUsers
}

// TeamView describes who is on an assignment
type TeamView struct {
	AssignmentID int64   `json:"assignmentId"`
	PrimaryID    int64   `json:"primaryAssignee"`
	Users        []*User `json:"users"`
	IsTeam       bool    `json:"isTeam"`
}
