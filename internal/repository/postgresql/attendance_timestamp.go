package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type attendanceTimestampRepository struct {
	db *database.DB
}

func NewAttendanceTimestampRepository(db *database.DB) attendance.TimestampRepository {
	return &attendanceTimestampRepository{db: db}
}

// Create implements attendance.TimestampRepository.
func (r *attendanceTimestampRepository) Create(ctx context.Context, event attendance.TimestampEvent) (attendance.TimestampEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO attendance_timestamps (
			id, company_id, employee_id, shift_id, shift_date, entry, timestamp,
			timing_status, source, kiosk_id, distance, created_at
		)
		VALUES (uuidv7(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id, created_at
	`

	created := event
	err := q.QueryRow(ctx, query,
		event.CompanyID,
		event.EmployeeID,
		event.ShiftID,
		event.ShiftDate,
		event.Entry,
		event.Timestamp,
		event.TimingStatus,
		event.Source,
		event.KioskID,
		event.Distance,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return attendance.TimestampEvent{}, fmt.Errorf("failed to create attendance timestamp: %w", err)
	}

	return created, nil
}

// GetLatest implements attendance.TimestampRepository. It returns nil, nil when
// the employee has no entry for the shift-day yet.
func (r *attendanceTimestampRepository) GetLatest(ctx context.Context, companyID string, employeeID string, shiftID *string, shiftDate time.Time) (*attendance.TimestampEvent, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, employee_id, shift_id, shift_date, entry, timestamp,
			timing_status, source, kiosk_id, distance, created_at
		FROM attendance_timestamps
		WHERE company_id = $1
			AND employee_id = $2
			AND shift_id IS NOT DISTINCT FROM $3
			AND shift_date = $4::date
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`

	var e attendance.TimestampEvent
	err := q.QueryRow(ctx, query, companyID, employeeID, shiftID, shiftDate.Format("2006-01-02")).Scan(
		&e.ID, &e.CompanyID, &e.EmployeeID, &e.ShiftID, &e.ShiftDate, &e.Entry, &e.Timestamp,
		&e.TimingStatus, &e.Source, &e.KioskID, &e.Distance, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest attendance timestamp: %w", err)
	}

	return &e, nil
}

// List implements attendance.TimestampRepository.
func (r *attendanceTimestampRepository) List(ctx context.Context, filter attendance.TimestampFilter, companyID string) ([]attendance.TimestampEvent, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "t.company_id = $1"
	args := []interface{}{companyID}
	argIdx := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND t.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND t.shift_date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND t.shift_date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}
	if filter.Entry != nil && *filter.Entry != "" {
		baseWhere += fmt.Sprintf(" AND t.entry = $%d", argIdx)
		args = append(args, *filter.Entry)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND t.timing_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	countQuery := `SELECT COUNT(*) FROM attendance_timestamps t WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance timestamps: %w", err)
	}

	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT
			t.id, t.company_id, t.employee_id, t.shift_id, t.shift_date, t.entry, t.timestamp,
			t.timing_status, t.source, t.kiosk_id, t.distance, t.created_at,
			e.full_name AS employee_name,
			ws.name AS shift_name
		FROM attendance_timestamps t
		LEFT JOIN employees e ON e.id = t.employee_id
		LEFT JOIN work_schedule_times wst ON wst.id = t.shift_id
		LEFT JOIN work_schedules ws ON ws.id = wst.work_schedule_id
		WHERE %s
		ORDER BY t.timestamp %s
		LIMIT $%d OFFSET $%d
	`, baseWhere, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (filter.Page - 1) * limit
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance timestamps: %w", err)
	}
	defer rows.Close()

	var events []attendance.TimestampEvent
	for rows.Next() {
		var e attendance.TimestampEvent
		err := rows.Scan(
			&e.ID, &e.CompanyID, &e.EmployeeID, &e.ShiftID, &e.ShiftDate, &e.Entry, &e.Timestamp,
			&e.TimingStatus, &e.Source, &e.KioskID, &e.Distance, &e.CreatedAt,
			&e.EmployeeName, &e.ShiftName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance timestamp: %w", err)
		}
		events = append(events, e)
	}

	return events, total, nil
}

// LockEmployee implements attendance.TimestampRepository.
func (r *attendanceTimestampRepository) LockEmployee(ctx context.Context, companyID string, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	if _, ok := q.(pgx.Tx); !ok {
		return fmt.Errorf("LockEmployee must run inside a transaction")
	}

	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`, companyID, employeeID)
	if err != nil {
		return fmt.Errorf("failed to acquire employee lock: %w", err)
	}
	return nil
}
