package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quekou/quekou/pkg/model"
)

func setupAttendanceMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *AttendanceRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewAttendanceRepository(db)
	return db, mock, repo
}

func TestAttendanceCreateBatch(t *testing.T) {
	db, mock, repo := setupAttendanceMock(t)
	defer db.Close()

	orgID := uuid.New()
	records := []*model.AttendanceRecord{
		{
			OrgID:          orgID,
			StaffID:        "N001",
			Role:           "护士",
			EmploymentType: "full_time",
			StartTime:      time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
			EndTime:        time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
			ShiftCode:      "早",
		},
		{
			OrgID:          orgID,
			StaffID:        "N002",
			Role:           "护士",
			EmploymentType: "full_time",
			StartTime:      time.Date(2026, 3, 2, 22, 0, 0, 0, time.UTC),
			EndTime:        time.Date(2026, 3, 3, 6, 0, 0, 0, time.UTC),
			ShiftCode:      "夜",
		},
	}

	mock.ExpectExec(`INSERT INTO attendance_records`).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.CreateBatch(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// 批量写入会为缺失ID的记录补全UUID
	for _, rec := range records {
		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceCreateBatchEmpty(t *testing.T) {
	db, mock, repo := setupAttendanceMock(t)
	defer db.Close()

	n, err := repo.CreateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceListByWindow(t *testing.T) {
	db, mock, repo := setupAttendanceMock(t)
	defer db.Close()

	orgID := uuid.New()
	window := model.DateRange{StartDate: "2026-03-01", EndDate: "2026-03-31"}

	rows := sqlmock.NewRows([]string{
		"id", "org_id", "staff_id", "role", "employment_type",
		"start_time", "end_time", "shift_code", "created_at",
	}).AddRow(
		uuid.New(), orgID, "N001", "护士", "full_time",
		time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
		"早", time.Now(),
	)

	mock.ExpectQuery(`SELECT id, org_id, staff_id`).
		WithArgs(orgID, window.StartDate, window.EndDate).
		WillReturnRows(rows)

	records, err := repo.ListByWindow(context.Background(), orgID, window)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "N001", records[0].StaffID)
	assert.Equal(t, "护士", records[0].Role)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceListByWindowInvalid(t *testing.T) {
	db, _, repo := setupAttendanceMock(t)
	defer db.Close()

	// 结束日期早于开始日期
	_, err := repo.ListByWindow(context.Background(), uuid.New(),
		model.DateRange{StartDate: "2026-03-31", EndDate: "2026-03-01"})
	assert.Error(t, err)
}

func TestAttendanceDeleteByWindow(t *testing.T) {
	db, mock, repo := setupAttendanceMock(t)
	defer db.Close()

	orgID := uuid.New()
	window := model.DateRange{StartDate: "2026-03-01", EndDate: "2026-03-31"}

	mock.ExpectExec(`DELETE FROM attendance_records`).
		WithArgs(orgID, window.StartDate, window.EndDate).
		WillReturnResult(sqlmock.NewResult(0, 5))

	n, err := repo.DeleteByWindow(context.Background(), orgID, window)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}
