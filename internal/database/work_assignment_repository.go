package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/servicedesk/repair-crm/internal/models"
)

const assignmentColumns = `
	id, assigned_by, assigned_to, assigned_users, work_type, work_id,
	priority, status, assignment_notes, due_date, started_at, completed_at, created_at`

// WorkAssignmentRepository handles work assignment database operations
type WorkAssignmentRepository struct {
	db DB
}

// NewWorkAssignmentRepository creates a new work assignment repository
func NewWorkAssignmentRepository(db DB) *WorkAssignmentRepository {
	return &WorkAssignmentRepository{db: db}
}

// Create inserts an assignment and fills in its ID
func (r *WorkAssignmentRepository) Create(ctx context.Context, a *models.WorkAssignment) error {
	query := `
		INSERT INTO work_assignments (
			assigned_by, assigned_to, assigned_users, work_type, work_id,
			priority, status, assignment_notes, due_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, query,
		a.AssignedBy,
		a.AssignedTo,
		a.AssignedUsers,
		a.WorkType,
		a.WorkID,
		a.Priority,
		a.Status,
		a.AssignmentNotes,
		a.DueDate,
		a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create work assignment: %w", err)
	}

	return nil
}

// GetByID retrieves an assignment by ID
func (r *WorkAssignmentRepository) GetByID(ctx context.Context, id int64) (*models.WorkAssignment, error) {
	var a models.WorkAssignment

	query := `SELECT ` + assignmentColumns + ` FROM work_assignments WHERE id = $1`

	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		return nil, notFound(err, "work assignment")
	}

	return &a, nil
}

// List retrieves all assignments, newest first
func (r *WorkAssignmentRepository) List(ctx context.Context) ([]*models.WorkAssignment, error) {
	assignments := []*models.WorkAssignment{}

	query := `SELECT ` + assignmentColumns + ` FROM work_assignments ORDER BY created_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &assignments, query); err != nil {
		return nil, fmt.Errorf("failed to list work assignments: %w", err)
	}

	return assignments, nil
}

// ListByAssignedTo retrieves assignments whose legacy primary assignee is userID
func (r *WorkAssignmentRepository) ListByAssignedTo(ctx context.Context, userID int64) ([]*models.WorkAssignment, error) {
	assignments := []*models.WorkAssignment{}

	query := `
		SELECT ` + assignmentColumns + `
		FROM work_assignments
		WHERE assigned_to = $1
		ORDER BY created_at DESC, id DESC
	`

	if err := r.db.SelectContext(ctx, &assignments, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list work assignments by user: %w", err)
	}

	return assignments, nil
}

// ListCandidatesForUsers retrieves every assignment that may involve one of
// userIDs: those whose assigned_to matches plus all rows carrying a user list.
// assigned_users is free text, so the exact match is left to the caller.
func (r *WorkAssignmentRepository) ListCandidatesForUsers(ctx context.Context, userIDs []int64) ([]*models.WorkAssignment, error) {
	assignments := []*models.WorkAssignment{}

	query := `
		SELECT ` + assignmentColumns + `
		FROM work_assignments
		WHERE assigned_to = ANY($1) OR assigned_users IS NOT NULL
		ORDER BY created_at DESC, id DESC
	`

	if err := r.db.SelectContext(ctx, &assignments, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("failed to list work assignments for users: %w", err)
	}

	return assignments, nil
}

// UpdateWithLock loads the assignment under a row lock, lets mutate change it
// and writes it back in the same transaction. Returning an error from mutate
// aborts the update.
func (r *WorkAssignmentRepository) UpdateWithLock(ctx context.Context, id int64, mutate func(a *models.WorkAssignment) error) (*models.WorkAssignment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var a models.WorkAssignment
	query := `SELECT ` + assignmentColumns + ` FROM work_assignments WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &a, query, id); err != nil {
		return nil, notFound(err, "work assignment")
	}

	if err := mutate(&a); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE work_assignments
		SET assigned_to = $1,
		    assigned_users = $2,
		    work_type = $3,
		    work_id = $4,
		    priority = $5,
		    status = $6,
		    assignment_notes = $7,
		    due_date = $8,
		    started_at = $9,
		    completed_at = $10
		WHERE id = $11
	`

	_, err = tx.ExecContext(ctx, updateQuery,
		a.AssignedTo,
		a.AssignedUsers,
		a.WorkType,
		a.WorkID,
		a.Priority,
		a.Status,
		a.AssignmentNotes,
		a.DueDate,
		a.StartedAt,
		a.CompletedAt,
		a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update work assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &a, nil
}

// Delete removes an assignment together with its closed check-ins. It returns
// false when no such assignment exists and ErrOpenCheckins while anyone is
// still checked in.
func (r *WorkAssignmentRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lockedID int64
	err = tx.GetContext(ctx, &lockedID, `SELECT id FROM work_assignments WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to lock work assignment: %w", err)
	}

	var openCount int
	countQuery := `SELECT COUNT(*) FROM work_checkins WHERE assignment_id = $1 AND check_out_time IS NULL`
	if err := tx.GetContext(ctx, &openCount, countQuery, id); err != nil {
		return false, fmt.Errorf("failed to count open check-ins: %w", err)
	}
	if openCount > 0 {
		return false, ErrOpenCheckins
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM work_checkins WHERE assignment_id = $1`, id); err != nil {
		return false, fmt.Errorf("failed to delete check-ins: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM work_assignments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete work assignment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rowsAffected > 0, nil
}
