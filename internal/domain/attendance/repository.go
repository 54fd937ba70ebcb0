package attendance

import (
	"context"
	"time"
)

// TimestampRepository defines data access for the attendance event log.
// All methods take companyID to keep reads and writes inside one tenant.
type TimestampRepository interface {
	// Create appends a new entry
	Create(ctx context.Context, event TimestampEvent) (TimestampEvent, error)

	// GetLatest returns the most recent entry for (employee, shift, shift-day).
	// A nil shiftID matches entries recorded without a shift.
	GetLatest(ctx context.Context, companyID string, employeeID string, shiftID *string, shiftDate time.Time) (*TimestampEvent, error)

	// List retrieves entries with filters and pagination
	List(ctx context.Context, filter TimestampFilter, companyID string) ([]TimestampEvent, int64, error)

	// LockEmployee takes a transaction scoped advisory lock for the employee.
	// Must be called inside WithTransaction.
	LockEmployee(ctx context.Context, companyID string, employeeID string) error
}

// ShiftRepository reads the schedules owned by the scheduling module.
type ShiftRepository interface {
	// GetShifts returns the shifts assigned to the employee for the given local date,
	// ordered by start time.
	GetShifts(ctx context.Context, companyID string, employeeID string, date time.Time) ([]Shift, error)

	// GetTimezoneByEmployeeID returns the IANA zone of the employee's branch.
	GetTimezoneByEmployeeID(ctx context.Context, companyID string, employeeID string) (string, error)
}

type SummaryRepository interface {
	// Apply folds an event into the daily summary of its shift-day
	Apply(ctx context.Context, event TimestampEvent) (DailySummary, error)

	Get(ctx context.Context, companyID string, employeeID string, date time.Time) (DailySummary, error)
}
