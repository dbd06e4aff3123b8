package services

import (
	"context"

	"github.com/servicedesk/repair-crm/internal/models"
)

// UserStore is the persistence used by UserService
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	List(ctx context.Context, includeDeleted bool) ([]*models.User, error)
	SoftDelete(ctx context.Context, id, deletedBy int64) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// AssignmentStore is the persistence used by WorkAssignmentService
type AssignmentStore interface {
	Create(ctx context.Context, a *models.WorkAssignment) error
	GetByID(ctx context.Context, id int64) (*models.WorkAssignment, error)
	List(ctx context.Context) ([]*models.WorkAssignment, error)
	ListByAssignedTo(ctx context.Context, userID int64) ([]*models.WorkAssignment, error)
	ListCandidatesForUsers(ctx context.Context, userIDs []int64) ([]*models.WorkAssignment, error)
	UpdateWithLock(ctx context.Context, id int64, mutate func(a *models.WorkAssignment) error) (*models.WorkAssignment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// CheckinStore is the persistence used by WorkCheckinService
type CheckinStore interface {
	CheckIn(ctx context.Context, checkin *models.WorkCheckin) error
	UpdateWithLock(ctx context.Context, id int64, mutate func(c *models.WorkCheckin) (bool, error)) (*models.WorkCheckin, error)
	GetByID(ctx context.Context, id int64) (*models.WorkCheckin, error)
	FindOpen(ctx context.Context, userID, assignmentID int64) (*models.WorkCheckin, error)
	ListByAssignment(ctx context.Context, assignmentID int64) ([]*models.WorkCheckin, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.WorkCheckin, error)
}

// UserDirectory resolves user ids for the assignment and check-in services.
// Lookups include inactive and soft-deleted users.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUsers(ctx context.Context, ids []int64) (map[int64]*models.User, error)
}

// Notifier announces assignment events to the assigned users. Calls must not
// block and failures must not reach the caller.
type Notifier interface {
	AssignmentCreated(a *models.WorkAssignment, assignees []*models.User)
	StatusChanged(a *models.WorkAssignment, from models.AssignmentStatus, assignees []*models.User)
}
