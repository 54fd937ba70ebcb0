package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
)

type shiftAssignmentRepository struct {
	db *database.DB
}

func NewShiftAssignmentRepository(db *database.DB) attendance.ShiftRepository {
	return &shiftAssignmentRepository{db: db}
}

// GetShifts implements attendance.ShiftRepository.
// An assignment covering the date overrides the employee's default schedule.
func (r *shiftAssignmentRepository) GetShifts(ctx context.Context, companyID string, employeeID string, date time.Time) ([]attendance.Shift, error) {
	q := GetQuerier(ctx, r.db)

	query := `
WITH target_schedule AS (
    SELECT COALESCE(
        (
            SELECT work_schedule_id
            FROM employee_schedule_assignments
            WHERE employee_id = $1
              AND $2::date BETWEEN start_date AND end_date
            ORDER BY start_date DESC
            LIMIT 1
        ),
        (
            SELECT work_schedule_id
            FROM employees
            WHERE id = $1 AND company_id = $3
        )
    ) AS id
)
SELECT
    wst.id,
    ws.name,
    EXTRACT(EPOCH FROM wst.clock_in_time)::int,
    EXTRACT(EPOCH FROM wst.clock_out_time)::int,
    wst.is_next_day_checkout
FROM target_schedule ts
JOIN work_schedules ws ON ws.id = ts.id
JOIN work_schedule_times wst ON wst.work_schedule_id = ws.id
    AND wst.day_of_week = EXTRACT(ISODOW FROM $2::date)::int
WHERE ws.company_id = $3
  AND ws.deleted_at IS NULL
ORDER BY wst.clock_in_time
	`

	rows, err := q.Query(ctx, query, employeeID, date.Format("2006-01-02"), companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []attendance.Shift
	for rows.Next() {
		var s attendance.Shift
		var startSec, endSec int
		if err := rows.Scan(&s.ID, &s.Name, &startSec, &endSec, &s.NextDayCheckout); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		s.Start = time.Duration(startSec) * time.Second
		s.End = time.Duration(endSec) * time.Second
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shifts: %w", err)
	}

	return shifts, nil
}

// GetTimezoneByEmployeeID implements attendance.ShiftRepository.
// Employees without a branch, or branches without a zone, yield "".
func (r *shiftAssignmentRepository) GetTimezoneByEmployeeID(ctx context.Context, companyID string, employeeID string) (string, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(MAX(b.timezone), '')
		FROM employees e
		LEFT JOIN branches b ON b.id = e.branch_id
		WHERE e.id = $1 AND e.company_id = $2
	`

	var timezone string
	if err := q.QueryRow(ctx, query, employeeID, companyID).Scan(&timezone); err != nil {
		return "", fmt.Errorf("failed to get timezone: %w", err)
	}

	return timezone, nil
}
