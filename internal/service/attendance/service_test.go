package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/validator"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func managerContext(t *testing.T) context.Context {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := tokenAuth.Encode(map[string]interface{}{
		"company_id": companyID,
		"role":       "manager",
		"type":       "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func TestListTimestamps_PaginatesAndMapsConfidence(t *testing.T) {
	ts := &memoryTimestamps{}
	dist := 0.25
	for i := 0; i < 3; i++ {
		_, err := ts.Create(context.Background(), attendance.TimestampEvent{
			CompanyID:    companyID,
			EmployeeID:   employeeID,
			ShiftDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Entry:        attendance.EntryIn,
			Timestamp:    time.Date(2026, 3, 2, 8, i, 0, 0, time.UTC),
			TimingStatus: attendance.TimingOK,
			Source:       attendance.SourceKiosk,
			Distance:     &dist,
		})
		require.NoError(t, err)
	}

	svc := NewAttendanceService(ts, &countingSummaries{})
	resp, err := svc.ListTimestamps(managerContext(t), attendance.TimestampFilter{Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.TotalCount)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, "1-2 of 3", resp.Showing)
	require.NotEmpty(t, resp.Timestamps)
	require.NotNil(t, resp.Timestamps[0].Confidence)
	assert.InDelta(t, 75.0, *resp.Timestamps[0].Confidence, 1e-9)
	assert.Equal(t, "2026-03-02", resp.Timestamps[0].ShiftDate)
}

func TestListTimestamps_InvalidFilter(t *testing.T) {
	svc := NewAttendanceService(&memoryTimestamps{}, &countingSummaries{})
	start, end := "2026-03-05", "2026-03-01"

	_, err := svc.ListTimestamps(managerContext(t), attendance.TimestampFilter{StartDate: &start, EndDate: &end})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.ToMap(), "end_date")
}

func TestListTimestamps_RequiresClaims(t *testing.T) {
	svc := NewAttendanceService(&memoryTimestamps{}, &countingSummaries{})
	_, err := svc.ListTimestamps(context.Background(), attendance.TimestampFilter{})
	assert.Error(t, err)
}

func TestGetDailySummary_NotFound(t *testing.T) {
	svc := NewAttendanceService(&memoryTimestamps{}, &countingSummaries{})
	_, err := svc.GetDailySummary(managerContext(t), attendance.SummaryRequest{EmployeeID: employeeID, Date: "2026-03-02"})
	assert.ErrorIs(t, err, attendance.ErrSummaryNotFound)
}
