package models

import "errors"

var (
	// ErrEmptyAssignee indicates a multi-user selection without any user
	ErrEmptyAssignee = errors.New("at least one assigned user is required")

	// ErrInvalidUserID indicates a non-positive user id in a selection
	ErrInvalidUserID = errors.New("user ids must be positive integers")
)

// AssigneeKind tells a single legacy assignee apart from an ordered team
type AssigneeKind int

const (
	AssigneeSingle AssigneeKind = iota + 1
	AssigneeMultiple
)

// Assignee is who a work assignment is delegated to: either one user
// (legacy single-assignee form) or an ordered list of users. The zero value
// assigns nobody.
type Assignee struct {
	kind AssigneeKind
	ids  []int64
}

// SingleAssignee assigns one user.
func SingleAssignee(userID int64) Assignee {
	return Assignee{kind: AssigneeSingle, ids: []int64{userID}}
}

// MultipleAssignees assigns an ordered list of users. Repeated ids are
// collapsed, keeping the first occurrence.
func MultipleAssignees(userIDs []int64) (Assignee, error) {
	ids := make([]int64, 0, len(userIDs))
	seen := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		if id <= 0 {
			return Assignee{}, ErrInvalidUserID
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return Assignee{}, ErrEmptyAssignee
	}
	return Assignee{kind: AssigneeMultiple, ids: ids}, nil
}

// AssigneeFromColumns rebuilds the variant from the two persisted columns.
// A missing, empty or malformed assigned_users value degrades to the legacy
// assigned_to user.
func AssigneeFromColumns(assignedTo int64, assignedUsers UserIDList) Assignee {
	if !assignedUsers.Empty() {
		ids := make([]int64, 0, len(assignedUsers.IDs))
		for _, id := range assignedUsers.IDs {
			if id > 0 {
				ids = append(ids, id)
			}
		}
		if a, err := MultipleAssignees(ids); err == nil {
			return a
		}
	}
	if assignedTo <= 0 {
		return Assignee{}
	}
	return SingleAssignee(assignedTo)
}

// Columns maps the variant onto (assigned_to, assigned_users). The first user
// is always duplicated into assigned_to.
func (a Assignee) Columns() (int64, UserIDList) {
	switch a.kind {
	case AssigneeSingle:
		return a.ids[0], UserIDList{}
	case AssigneeMultiple:
		return a.ids[0], NewUserIDList(a.ids)
	default:
		return 0, UserIDList{}
	}
}

// Kind returns the variant tag (0 for the zero value)
func (a Assignee) Kind() AssigneeKind {
	return a.kind
}

// IsZero reports whether nobody is assigned
func (a Assignee) IsZero() bool {
	return len(a.ids) == 0
}

// Primary returns the primary assignee, the first user of the list
func (a Assignee) Primary() int64 {
	if len(a.ids) == 0 {
		return 0
	}
	return a.ids[0]
}

// UserIDs returns a copy of the assigned user ids in order
func (a Assignee) UserIDs() []int64 {
	cp := make([]int64, len(a.ids))
	copy(cp, a.ids)
	return cp
}

// Len returns the number of assigned users
func (a Assignee) Len() int {
	return len(a.ids)
}

// Contains reports whether userID is one of the assignees
func (a Assignee) Contains(userID int64) bool {
	for _, id := range a.ids {
		if id == userID {
			return true
		}
	}
	return false
}

// ContainsAny reports whether any of userIDs is an assignee
func (a Assignee) ContainsAny(userIDs []int64) bool {
	for _, id := range userIDs {
		if a.Contains(id) {
			return true
		}
	}
	return false
}
