package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceTimestampRepository_LatestAndSummary(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	timestamps := postgresql.NewAttendanceTimestampRepository(setup.DB)
	summaries := postgresql.NewAttendanceSummaryRepository(setup.DB)
	tx := postgresql.NewTransactor(setup.DB)

	companyID, employeeID := newID(t), newID(t)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	latest, err := timestamps.GetLatest(ctx, companyID, employeeID, nil, day)
	require.NoError(t, err)
	assert.Nil(t, latest)

	entries := []struct {
		entry attendance.EntryType
		at    time.Time
	}{
		{attendance.EntryIn, day.Add(8 * time.Hour)},
		{attendance.EntryOut, day.Add(17 * time.Hour)},
	}
	for _, e := range entries {
		err := tx.Do(ctx, func(txCtx context.Context) error {
			if err := timestamps.LockEmployee(txCtx, companyID, employeeID); err != nil {
				return err
			}
			created, err := timestamps.Create(txCtx, attendance.TimestampEvent{
				CompanyID:    companyID,
				EmployeeID:   employeeID,
				ShiftDate:    day,
				Entry:        e.entry,
				Timestamp:    e.at,
				TimingStatus: attendance.TimingNoShiftAssigned,
				Source:       attendance.SourceKiosk,
			})
			if err != nil {
				return err
			}
			_, err = summaries.Apply(txCtx, created)
			return err
		})
		require.NoError(t, err)
	}

	latest, err = timestamps.GetLatest(ctx, companyID, employeeID, nil, day)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, attendance.EntryOut, latest.Entry)

	summary, err := summaries.Get(ctx, companyID, employeeID, day)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EntryCount)
	assert.Equal(t, attendance.EntryOut, summary.LastEntry)
	require.NotNil(t, summary.FirstIn)
	require.NotNil(t, summary.LastOut)
	assert.True(t, summary.FirstIn.Equal(day.Add(8*time.Hour)))
	assert.True(t, summary.LastOut.Equal(day.Add(17*time.Hour)))
}

func TestAttendanceTimestampRepository_LockRequiresTransaction(t *testing.T) {
	setup := NewTestDatabase(t)
	repo := postgresql.NewAttendanceTimestampRepository(setup.DB)
	assert.Error(t, repo.LockEmployee(context.Background(), newID(t), newID(t)))
}
