package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/servicedesk/repair-crm/internal/models"
)

const userColumns = `
	id, username, password_hash, role, name, mobile, email,
	is_active, is_deleted, deleted_at, deleted_by, created_at, updated_at`

// UserRepository handles user database operations
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// Create inserts a new user and fills in its generated fields
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			username, password_hash, role, name, mobile, email, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.Name,
		user.Mobile,
		user.Email,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID, including soft-deleted users
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err, "user by ID")
	}

	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, notFound(err, "user by username")
	}

	return &user, nil
}

// GetByIDs retrieves the users with the given ids in no particular order.
// Unknown ids are silently skipped.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	users := []*models.User{}
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`

	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}

	return users, nil
}

// List retrieves users ordered by name
func (r *UserRepository) List(ctx context.Context, includeDeleted bool) ([]*models.User, error) {
	users := []*models.User{}

	query := `SELECT ` + userColumns + ` FROM users`
	if !includeDeleted {
		query += ` WHERE is_deleted = FALSE`
	}
	query += ` ORDER BY name ASC, id ASC`

	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// SoftDelete marks a user deleted and inactive. Deleting an already deleted
// user reports ErrNotFound.
func (r *UserRepository) SoftDelete(ctx context.Context, id, deletedBy int64) error {
	query := `
		UPDATE users
		SET is_deleted = TRUE,
		    is_active = FALSE,
		    deleted_at = NOW(),
		    deleted_by = $2,
		    updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, deletedBy)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SetActive updates the active flag of a non-deleted user
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	query := `
		UPDATE users
		SET is_active = $2,
		    updated_at = NOW()
		WHERE id = $1 AND is_deleted = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, id, active)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
