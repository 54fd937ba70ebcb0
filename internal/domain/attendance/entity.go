package attendance

import (
	"time"
)

type EntryType string

const (
	EntryIn  EntryType = "IN"
	EntryOut EntryType = "OUT"
)

// Next returns the entry that follows e. The first entry of a shift-day is IN.
func (e EntryType) Next() EntryType {
	if e == EntryIn {
		return EntryOut
	}
	return EntryIn
}

type TimingStatus string

const (
	TimingOK              TimingStatus = "OK"
	TimingOutsideShift    TimingStatus = "OUTSIDE_SHIFT"
	TimingNoShiftAssigned TimingStatus = "NO_SHIFT_ASSIGNED"
)

type Source string

const (
	SourceKiosk        Source = "kiosk"
	SourceManualVerify Source = "manual_verify"
)

// TimestampEvent is one append-only attendance entry.
type TimestampEvent struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	ShiftID      *string
	ShiftDate    time.Time
	Entry        EntryType
	Timestamp    time.Time
	TimingStatus TimingStatus
	Source       Source
	KioskID      *string
	Distance     *float64
	CreatedAt    time.Time

	// DTO
	EmployeeName *string
	ShiftName    *string
}

// Shift is one scheduled working window, taken from the employee's work schedule
// for a given day. Start and End are offsets from local midnight.
type Shift struct {
	ID              string
	Name            string
	Start           time.Duration
	End             time.Duration
	NextDayCheckout bool
}

// Overnight reports whether the shift window crosses midnight.
func (s Shift) Overnight() bool {
	return s.NextDayCheckout || s.End <= s.Start
}

// Window returns the absolute shift bounds for the shift-day starting at day (local midnight).
func (s Shift) Window(day time.Time) (time.Time, time.Time) {
	start := day.Add(s.Start)
	end := day.Add(s.End)
	if s.Overnight() {
		end = end.Add(24 * time.Hour)
	}
	return start, end
}

// DailySummary is the per-day rollup maintained next to the event log.
type DailySummary struct {
	CompanyID  string
	EmployeeID string
	Date       time.Time
	FirstIn    *time.Time
	LastOut    *time.Time
	EntryCount int
	LastEntry  EntryType
	UpdatedAt  time.Time
}
