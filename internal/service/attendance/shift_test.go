package attendance

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) time.Duration {
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
}

var (
	morning = attendance.Shift{ID: "shift-morning", Name: "Morning", Start: hm(8, 0), End: hm(16, 0)}
	night   = attendance.Shift{ID: "shift-night", Name: "Night", Start: hm(22, 0), End: hm(6, 0)}
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)
	v, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	require.NoError(t, err)
	return v
}

func TestResolveShift(t *testing.T) {
	tests := []struct {
		name      string
		now       string
		today     []attendance.Shift
		yesterday []attendance.Shift
		shiftID   string
		shiftDate string
		status    attendance.TimingStatus
	}{
		{
			name:      "inside day shift",
			now:       "2026-03-02 09:15",
			today:     []attendance.Shift{morning},
			shiftID:   "shift-morning",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOK,
		},
		{
			name:      "end is exclusive",
			now:       "2026-03-02 16:00",
			today:     []attendance.Shift{morning},
			shiftID:   "shift-morning",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOutsideShift,
		},
		{
			name:      "overnight before midnight",
			now:       "2026-03-02 23:30",
			today:     []attendance.Shift{night},
			yesterday: []attendance.Shift{night},
			shiftID:   "shift-night",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOK,
		},
		{
			name:      "overnight after midnight belongs to yesterday",
			now:       "2026-03-03 05:30",
			today:     []attendance.Shift{night},
			yesterday: []attendance.Shift{night},
			shiftID:   "shift-night",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOK,
		},
		{
			name:      "overnight shift at noon is outside",
			now:       "2026-03-02 12:00",
			today:     []attendance.Shift{night},
			yesterday: []attendance.Shift{night},
			shiftID:   "shift-night",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOutsideShift,
		},
		{
			name:      "second shift of the day",
			now:       "2026-03-02 22:30",
			today:     []attendance.Shift{morning, night},
			shiftID:   "shift-night",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOK,
		},
		{
			name:      "yesterday overnight with no shift today",
			now:       "2026-03-03 01:00",
			yesterday: []attendance.Shift{night},
			shiftID:   "shift-night",
			shiftDate: "2026-03-02",
			status:    attendance.TimingOK,
		},
		{
			name:      "yesterday day shift never carries over",
			now:       "2026-03-03 01:00",
			yesterday: []attendance.Shift{morning},
			shiftDate: "2026-03-03",
			status:    attendance.TimingNoShiftAssigned,
		},
		{
			name:      "no shift assigned",
			now:       "2026-03-02 10:00",
			shiftDate: "2026-03-02",
			status:    attendance.TimingNoShiftAssigned,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveShift(at(t, tt.now), tt.today, tt.yesterday)

			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.shiftDate, got.ShiftDate.Format("2006-01-02"))
			if tt.shiftID == "" {
				assert.Nil(t, got.ShiftID())
				return
			}
			require.NotNil(t, got.ShiftID())
			assert.Equal(t, tt.shiftID, *got.ShiftID())
		})
	}
}

func TestShift_NextDayCheckoutFlag(t *testing.T) {
	long := attendance.Shift{ID: "long", Start: hm(8, 0), End: hm(9, 0), NextDayCheckout: true}
	day := at(t, "2026-03-02 00:00")

	start, end := long.Window(day)
	assert.Equal(t, 25*time.Hour, end.Sub(start))

	got := ResolveShift(at(t, "2026-03-03 08:30"), nil, []attendance.Shift{long})
	assert.Equal(t, attendance.TimingOK, got.Status)
	assert.Equal(t, "2026-03-02", got.ShiftDate.Format("2006-01-02"))
}
