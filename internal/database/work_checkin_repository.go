package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/servicedesk/repair-crm/internal/models"
)

const checkinColumns = `
	id, assignment_id, user_id, checked_in_with, check_in_time,
	check_out_time, location, notes, created_at`

// openCheckinIndex is the partial unique index on open sessions
const openCheckinIndex = "uq_work_checkins_open"

// WorkCheckinRepository handles check-in session database operations
type WorkCheckinRepository struct {
	db DB
}

// NewWorkCheckinRepository creates a new check-in repository
func NewWorkCheckinRepository(db DB) *WorkCheckinRepository {
	return &WorkCheckinRepository{db: db}
}

// CheckIn opens a session for checkin.UserID on checkin.AssignmentID.
//
// The assignment row is locked first so that the open-session check and the
// insert are atomic per assignment; the partial unique index catches anything
// that slips past. Returns ErrNotFound for a missing assignment,
// ErrAssignmentClosed for a completed or cancelled one and
// ErrAlreadyCheckedIn when the user already has an open session.
func (r *WorkCheckinRepository) CheckIn(ctx context.Context, checkin *models.WorkCheckin) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status models.AssignmentStatus
	err = tx.GetContext(ctx, &status, `SELECT status FROM work_assignments WHERE id = $1 FOR UPDATE`, checkin.AssignmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock work assignment: %w", err)
	}
	if status.IsTerminal() {
		return ErrAssignmentClosed
	}

	var open bool
	existsQuery := `
		SELECT EXISTS (
			SELECT 1 FROM work_checkins
			WHERE assignment_id = $1 AND user_id = $2 AND check_out_time IS NULL
		)
	`
	if err := tx.GetContext(ctx, &open, existsQuery, checkin.AssignmentID, checkin.UserID); err != nil {
		return fmt.Errorf("failed to check open check-in: %w", err)
	}
	if open {
		return ErrAlreadyCheckedIn
	}

	insertQuery := `
		INSERT INTO work_checkins (
			assignment_id, user_id, checked_in_with, check_in_time, location, notes
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err = tx.QueryRowxContext(ctx, insertQuery,
		checkin.AssignmentID,
		checkin.UserID,
		checkin.CheckedInWith,
		checkin.CheckInTime,
		checkin.Location,
		checkin.Notes,
	).Scan(&checkin.ID, &checkin.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, openCheckinIndex) {
			return ErrAlreadyCheckedIn
		}
		return fmt.Errorf("failed to create check-in: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, openCheckinIndex) {
			return ErrAlreadyCheckedIn
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateWithLock loads a check-in under a row lock and lets mutate change it.
// mutate reports whether anything changed; nothing is written otherwise.
func (r *WorkCheckinRepository) UpdateWithLock(ctx context.Context, id int64, mutate func(c *models.WorkCheckin) (bool, error)) (*models.WorkCheckin, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var c models.WorkCheckin
	query := `SELECT ` + checkinColumns + ` FROM work_checkins WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &c, query, id); err != nil {
		return nil, notFound(err, "check-in")
	}

	changed, err := mutate(&c)
	if err != nil {
		return nil, err
	}
	if !changed {
		return &c, nil
	}

	updateQuery := `
		UPDATE work_checkins
		SET check_out_time = $1,
		    notes = $2
		WHERE id = $3
	`
	if _, err := tx.ExecContext(ctx, updateQuery, c.CheckOutTime, c.Notes, c.ID); err != nil {
		return nil, fmt.Errorf("failed to update check-in: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &c, nil
}

// GetByID retrieves a check-in by ID
func (r *WorkCheckinRepository) GetByID(ctx context.Context, id int64) (*models.WorkCheckin, error) {
	var c models.WorkCheckin

	query := `SELECT ` + checkinColumns + ` FROM work_checkins WHERE id = $1`

	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, notFound(err, "check-in")
	}

	return &c, nil
}

// FindOpen retrieves the open session of a user on an assignment
func (r *WorkCheckinRepository) FindOpen(ctx context.Context, userID, assignmentID int64) (*models.WorkCheckin, error) {
	var c models.WorkCheckin

	query := `
		SELECT ` + checkinColumns + `
		FROM work_checkins
		WHERE user_id = $1 AND assignment_id = $2 AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`

	if err := r.db.GetContext(ctx, &c, query, userID, assignmentID); err != nil {
		return nil, notFound(err, "open check-in")
	}

	return &c, nil
}

// ListByAssignment retrieves the sessions of an assignment, newest first
func (r *WorkCheckinRepository) ListByAssignment(ctx context.Context, assignmentID int64) ([]*models.WorkCheckin, error) {
	checkins := []*models.WorkCheckin{}

	query := `
		SELECT ` + checkinColumns + `
		FROM work_checkins
		WHERE assignment_id = $1
		ORDER BY check_in_time DESC, id DESC
	`

	if err := r.db.SelectContext(ctx, &checkins, query, assignmentID); err != nil {
		return nil, fmt.Errorf("failed to list check-ins by assignment: %w", err)
	}

	return checkins, nil
}

// ListByUser retrieves the sessions of a user, newest first
func (r *WorkCheckinRepository) ListByUser(ctx context.Context, userID int64) ([]*models.WorkCheckin, error) {
	checkins := []*models.WorkCheckin{}

	query := `
		SELECT ` + checkinColumns + `
		FROM work_checkins
		WHERE user_id = $1
		ORDER BY check_in_time DESC, id DESC
	`

	if err := r.db.SelectContext(ctx, &checkins, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list check-ins by user: %w", err)
	}

	return checkins, nil
}
