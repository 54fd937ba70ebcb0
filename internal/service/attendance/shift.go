package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
)

// Resolution is the shift an entry is booked against.
type Resolution struct {
	Shift     *attendance.Shift
	ShiftDate time.Time
	Status    attendance.TimingStatus
}

// ShiftID returns nil when no shift is assigned.
func (r Resolution) ShiftID() *string {
	if r.Shift == nil {
		return nil
	}
	id := r.Shift.ID
	return &id
}

// ResolveShift picks the shift that contains now. Today's shifts win over
// yesterday's overnight shifts; when neither contains now the entry is booked
// on today's first shift as OUTSIDE_SHIFT.
func ResolveShift(now time.Time, today []attendance.Shift, yesterday []attendance.Shift) Resolution {
	day := startOfDay(now)
	prev := day.AddDate(0, 0, -1)

	for i := range today {
		if contains(today[i], day, now) {
			return Resolution{Shift: &today[i], ShiftDate: day, Status: attendance.TimingOK}
		}
	}
	for i := range yesterday {
		if yesterday[i].Overnight() && contains(yesterday[i], prev, now) {
			return Resolution{Shift: &yesterday[i], ShiftDate: prev, Status: attendance.TimingOK}
		}
	}

	if len(today) == 0 {
		return Resolution{ShiftDate: day, Status: attendance.TimingNoShiftAssigned}
	}
	return Resolution{Shift: &today[0], ShiftDate: day, Status: attendance.TimingOutsideShift}
}

func contains(s attendance.Shift, day time.Time, now time.Time) bool {
	start, end := s.Window(day)
	return !now.Before(start) && now.Before(end)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
