package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/servicedesk/repair-crm/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checkinRowColumns = []string{
	"id", "assignment_id", "user_id", "checked_in_with", "check_in_time",
	"check_out_time", "location", "notes", "created_at",
}

const (
	lockAssignmentQuery = `SELECT status FROM work_assignments WHERE id = \$1 FOR UPDATE`
	openExistsQuery     = `SELECT EXISTS`
	insertCheckinQuery  = `INSERT INTO work_checkins`
)

func newCheckin() *models.WorkCheckin {
	return &models.WorkCheckin{
		AssignmentID:  5,
		UserID:        2,
		CheckedInWith: models.NewUserIDList([]int64{3}),
		CheckInTime:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestWorkCheckinRepository_CheckIn(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkCheckinRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		c := newCheckin()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(lockAssignmentQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in_progress"))
		mock.ExpectQuery(openExistsQuery).WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(insertCheckinQuery).
			WithArgs(int64(5), int64(2), "[3]", c.CheckInTime, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(40), now))
		mock.ExpectCommit()

		require.NoError(t, repo.CheckIn(ctx, c))
		assert.Equal(t, int64(40), c.ID)
		assert.True(t, c.IsOpen())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Checked In", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockAssignmentQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in_progress"))
		mock.ExpectQuery(openExistsQuery).WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		err := repo.CheckIn(ctx, newCheckin())
		assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unique Index Backstop", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockAssignmentQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in_progress"))
		mock.ExpectQuery(openExistsQuery).WithArgs(int64(5), int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery(insertCheckinQuery).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_work_checkins_open"})
		mock.ExpectRollback()

		err := repo.CheckIn(ctx, newCheckin())
		assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Assignment", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockAssignmentQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		err := repo.CheckIn(ctx, newCheckin())
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Closed Assignment", func(t *testing.T) {
		for _, status := range []string{"completed", "cancelled"} {
			mock.ExpectBegin()
			mock.ExpectQuery(lockAssignmentQuery).WithArgs(int64(5)).
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(status))
			mock.ExpectRollback()

			err := repo.CheckIn(ctx, newCheckin())
			assert.ErrorIs(t, err, ErrAssignmentClosed, status)
		}

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWorkCheckinRepository_UpdateWithLock(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkCheckinRepository(db)
	ctx := context.Background()

	in := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lockQuery := `SELECT (.+) FROM work_checkins WHERE id = \$1 FOR UPDATE`

	t.Run("Closes Session", func(t *testing.T) {
		out := in.Add(2 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(40)).
			WillReturnRows(sqlmock.NewRows(checkinRowColumns).
				AddRow(int64(40), int64(5), int64(2), nil, in, nil, nil, nil, in))
		mock.ExpectExec(`UPDATE work_checkins SET check_out_time = \$1`).
			WithArgs(out, "done", int64(40)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		c, err := repo.UpdateWithLock(ctx, 40, func(c *models.WorkCheckin) (bool, error) {
			notes := "done"
			c.CheckOutTime = &out
			c.Notes = &notes
			return true, nil
		})
		require.NoError(t, err)
		assert.False(t, c.IsOpen())
		assert.Equal(t, 2*time.Hour, c.Duration())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unchanged Skips Write", func(t *testing.T) {
		out := in.Add(time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(41)).
			WillReturnRows(sqlmock.NewRows(checkinRowColumns).
				AddRow(int64(41), int64(5), int64(2), nil, in, out, nil, nil, in))
		mock.ExpectRollback()

		c, err := repo.UpdateWithLock(ctx, 41, func(c *models.WorkCheckin) (bool, error) {
			return false, nil
		})
		require.NoError(t, err)
		assert.Equal(t, out, *c.CheckOutTime)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows(checkinRowColumns))
		mock.ExpectRollback()

		_, err := repo.UpdateWithLock(ctx, 42, func(c *models.WorkCheckin) (bool, error) {
			return true, nil
		})
		assert.ErrorIs(t, err, ErrNotFound)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWorkCheckinRepository_FindOpen(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkCheckinRepository(db)

	mock.ExpectQuery(`FROM work_checkins WHERE user_id = \$1 AND assignment_id = \$2 AND check_out_time IS NULL`).
		WithArgs(int64(2), int64(5)).
		WillReturnRows(sqlmock.NewRows(checkinRowColumns))

	c, err := repo.FindOpen(context.Background(), 2, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, c)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkCheckinRepository_ListByAssignment(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewWorkCheckinRepository(db)

	in := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out := in.Add(time.Hour)

	mock.ExpectQuery(`FROM work_checkins WHERE assignment_id = \$1 ORDER BY check_in_time DESC`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(checkinRowColumns).
			AddRow(int64(2), int64(5), int64(3), "[2]", in.Add(30*time.Minute), nil, "Bay 2", nil, in).
			AddRow(int64(1), int64(5), int64(2), "[3]", in, out, nil, "swapped board", in))

	checkins, err := repo.ListByAssignment(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, checkins, 2)
	assert.True(t, checkins[0].IsOpen())
	assert.Equal(t, "Bay 2", *checkins[0].Location)
	assert.Equal(t, []int64{2}, checkins[0].CheckedInWith.IDs)
	assert.Equal(t, models.CheckinStateClosed, checkins[1].State())

	assert.NoError(t, mock.ExpectationsWereMet())
}
