package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceSummaryRepository struct {
	db *database.DB
}

func NewAttendanceSummaryRepository(db *database.DB) attendance.SummaryRepository {
	return &attendanceSummaryRepository{db: db}
}

// Apply implements attendance.SummaryRepository.
func (r *attendanceSummaryRepository) Apply(ctx context.Context, event attendance.TimestampEvent) (attendance.DailySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_daily_summaries (
			company_id, employee_id, date, first_in, last_out, entry_count, last_entry, updated_at
		)
		VALUES (
			$1, $2, $3::date,
			CASE WHEN $4::text = 'IN' THEN $5::timestamptz END,
			CASE WHEN $4::text = 'OUT' THEN $5::timestamptz END,
			1, $4, NOW()
		)
		ON CONFLICT (company_id, employee_id, date) DO UPDATE SET
			first_in = CASE
				WHEN EXCLUDED.last_entry = 'IN' THEN LEAST(COALESCE(attendance_daily_summaries.first_in, EXCLUDED.first_in), EXCLUDED.first_in)
				ELSE attendance_daily_summaries.first_in
			END,
			last_out = CASE
				WHEN EXCLUDED.last_entry = 'OUT' THEN GREATEST(COALESCE(attendance_daily_summaries.last_out, EXCLUDED.last_out), EXCLUDED.last_out)
				ELSE attendance_daily_summaries.last_out
			END,
			entry_count = attendance_daily_summaries.entry_count + 1,
			last_entry = EXCLUDED.last_entry,
			updated_at = NOW()
		RETURNING company_id, employee_id, date, first_in, last_out, entry_count, last_entry, updated_at
	`

	var s attendance.DailySummary
	err := q.QueryRow(ctx, query,
		event.CompanyID,
		event.EmployeeID,
		event.ShiftDate.Format("2006-01-02"),
		string(event.Entry),
		event.Timestamp,
	).Scan(&s.CompanyID, &s.EmployeeID, &s.Date, &s.FirstIn, &s.LastOut, &s.EntryCount, &s.LastEntry, &s.UpdatedAt)
	if err != nil {
		return attendance.DailySummary{}, fmt.Errorf("failed to apply daily summary: %w", err)
	}

	return s, nil
}

// Get implements attendance.SummaryRepository.
func (r *attendanceSummaryRepository) Get(ctx context.Context, companyID string, employeeID string, date time.Time) (attendance.DailySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, employee_id, date, first_in, last_out, entry_count, last_entry, updated_at
		FROM attendance_daily_summaries
		WHERE company_id = $1 AND employee_id = $2 AND date = $3::date
	`

	var s attendance.DailySummary
	err := q.QueryRow(ctx, query, companyID, employeeID, date.Format("2006-01-02")).Scan(
		&s.CompanyID, &s.EmployeeID, &s.Date, &s.FirstIn, &s.LastOut, &s.EntryCount, &s.LastEntry, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DailySummary{}, attendance.ErrSummaryNotFound
		}
		return attendance.DailySummary{}, fmt.Errorf("failed to get daily summary: %w", err)
	}

	return s, nil
}
