package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/go-chi/jwtauth/v5"
)

type AttendanceServiceImpl struct {
	attendance.TimestampRepository
	attendance.SummaryRepository
}

func NewAttendanceService(timestampRepo attendance.TimestampRepository, summaryRepo attendance.SummaryRepository) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		TimestampRepository: timestampRepo,
		SummaryRepository:   summaryRepo,
	}
}

// ListTimestamps implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListTimestamps(ctx context.Context, filter attendance.TimestampFilter) (attendance.ListTimestampResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListTimestampResponse{}, err
	}

	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return attendance.ListTimestampResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return attendance.ListTimestampResponse{}, fmt.Errorf("company_id claim is missing or invalid")
	}

	events, total, err := a.TimestampRepository.List(ctx, filter, companyID)
	if err != nil {
		return attendance.ListTimestampResponse{}, fmt.Errorf("failed to list attendance timestamps: %w", err)
	}

	responses := make([]attendance.TimestampResponse, 0, len(events))
	for _, e := range events {
		responses = append(responses, mapTimestampToResponse(e))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListTimestampResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Timestamps: responses,
	}, nil
}

// GetDailySummary implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetDailySummary(ctx context.Context, req attendance.SummaryRequest) (attendance.SummaryResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.SummaryResponse{}, err
	}

	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return attendance.SummaryResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return attendance.SummaryResponse{}, fmt.Errorf("company_id claim is missing or invalid")
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	summary, err := a.SummaryRepository.Get(ctx, companyID, req.EmployeeID, date)
	if err != nil {
		return attendance.SummaryResponse{}, err
	}

	return attendance.SummaryResponse{
		EmployeeID: summary.EmployeeID,
		Date:       summary.Date.Format("2006-01-02"),
		FirstIn:    timePtrToString(summary.FirstIn),
		LastOut:    timePtrToString(summary.LastOut),
		EntryCount: summary.EntryCount,
		LastEntry:  string(summary.LastEntry),
	}, nil
}

func mapTimestampToResponse(e attendance.TimestampEvent) attendance.TimestampResponse {
	var confidence *float64
	if e.Distance != nil {
		c := math.Max(0, (1-*e.Distance)*100)
		confidence = &c
	}

	return attendance.TimestampResponse{
		ID:           e.ID,
		EmployeeID:   e.EmployeeID,
		EmployeeName: e.EmployeeName,
		ShiftID:      e.ShiftID,
		ShiftName:    e.ShiftName,
		ShiftDate:    e.ShiftDate.Format("2006-01-02"),
		Entry:        string(e.Entry),
		Timestamp:    e.Timestamp.Format(time.RFC3339),
		TimingStatus: string(e.TimingStatus),
		Source:       string(e.Source),
		KioskID:      e.KioskID,
		Confidence:   confidence,
	}
}

// timePtrToString safely converts a *time.Time to a string.
func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format(time.RFC3339)
	return &format
}
