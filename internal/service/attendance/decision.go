package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
)

type DecisionServiceImpl struct {
	tx Transactor
	attendance.TimestampRepository
	attendance.ShiftRepository
	attendance.SummaryRepository
	publisher  attendance.EventPublisher
	defaultLoc *time.Location

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewDecisionService(
	tx Transactor,
	timestampRepo attendance.TimestampRepository,
	shiftRepo attendance.ShiftRepository,
	summaryRepo attendance.SummaryRepository,
	publisher attendance.EventPublisher,
	defaultLoc *time.Location,
) *DecisionServiceImpl {
	if defaultLoc == nil {
		defaultLoc = time.UTC
	}
	return &DecisionServiceImpl{
		tx:                  tx,
		TimestampRepository: timestampRepo,
		ShiftRepository:     shiftRepo,
		SummaryRepository:   summaryRepo,
		publisher:           publisher,
		defaultLoc:          defaultLoc,
		inflight:            make(map[string]struct{}),
	}
}

// Decide implements attendance.DecisionService.
func (s *DecisionServiceImpl) Decide(ctx context.Context, req attendance.DecisionRequest, now time.Time) (attendance.TimestampEvent, error) {
	if err := req.Validate(); err != nil {
		return attendance.TimestampEvent{}, err
	}

	release, ok := s.begin(req.CompanyID, req.EmployeeID)
	if !ok {
		return attendance.TimestampEvent{}, attendance.ErrDecisionInFlight
	}
	defer release()

	loc, err := s.location(ctx, req.CompanyID, req.EmployeeID)
	if err != nil {
		return attendance.TimestampEvent{}, err
	}
	local := now.In(loc)
	today := startOfDay(local)

	todayShifts, err := s.ShiftRepository.GetShifts(ctx, req.CompanyID, req.EmployeeID, today)
	if err != nil {
		return attendance.TimestampEvent{}, fmt.Errorf("failed to get shifts: %w", err)
	}
	yesterdayShifts, err := s.ShiftRepository.GetShifts(ctx, req.CompanyID, req.EmployeeID, today.AddDate(0, 0, -1))
	if err != nil {
		return attendance.TimestampEvent{}, fmt.Errorf("failed to get previous day shifts: %w", err)
	}
	resolved := ResolveShift(local, todayShifts, yesterdayShifts)

	var created attendance.TimestampEvent
	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.TimestampRepository.LockEmployee(txCtx, req.CompanyID, req.EmployeeID); err != nil {
			return fmt.Errorf("failed to lock employee: %w", err)
		}

		latest, err := s.TimestampRepository.GetLatest(txCtx, req.CompanyID, req.EmployeeID, resolved.ShiftID(), resolved.ShiftDate)
		if err != nil {
			return fmt.Errorf("failed to get latest entry: %w", err)
		}

		entry := attendance.EntryIn
		if latest != nil {
			entry = latest.Entry.Next()
		}

		created, err = s.TimestampRepository.Create(txCtx, attendance.TimestampEvent{
			CompanyID:    req.CompanyID,
			EmployeeID:   req.EmployeeID,
			ShiftID:      resolved.ShiftID(),
			ShiftDate:    resolved.ShiftDate,
			Entry:        entry,
			Timestamp:    now.UTC(),
			TimingStatus: resolved.Status,
			Source:       req.Source,
			KioskID:      req.KioskID,
			Distance:     req.Distance,
		})
		if err != nil {
			return fmt.Errorf("failed to create attendance entry: %w", err)
		}

		if _, err := s.SummaryRepository.Apply(txCtx, created); err != nil {
			return fmt.Errorf("failed to update daily summary: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.TimestampEvent{}, err
	}

	metrics.AttendanceEntries.WithLabelValues(string(created.Entry), string(created.TimingStatus)).Inc()
	slog.Info("Attendance recorded",
		"company_id", created.CompanyID,
		"employee_id", created.EmployeeID,
		"entry", created.Entry,
		"timing_status", created.TimingStatus,
		"source", created.Source,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishAttendance(ctx, toRecordedEvent(created)); err != nil {
			slog.Error("Failed to publish attendance event", "error", err, "event_id", created.ID)
		}
	}

	return created, nil
}

// begin marks the employee as having a decision in progress.
func (s *DecisionServiceImpl) begin(companyID, employeeID string) (func(), bool) {
	key := companyID + ":" + employeeID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, false
	}
	s.inflight[key] = struct{}{}

	return func() {
		s.mu.Lock()
		delete(s.inflight, key)
		s.mu.Unlock()
	}, true
}

// location is the employee's branch zone, or the configured default.
func (s *DecisionServiceImpl) location(ctx context.Context, companyID, employeeID string) (*time.Location, error) {
	tz, err := s.ShiftRepository.GetTimezoneByEmployeeID(ctx, companyID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get timezone by employee ID: %w", err)
	}
	if tz == "" {
		return s.defaultLoc, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		slog.Warn("Invalid branch timezone, using default", "timezone", tz, "employee_id", employeeID)
		return s.defaultLoc, nil
	}
	return loc, nil
}

func toRecordedEvent(e attendance.TimestampEvent) attendance.RecordedEvent {
	return attendance.RecordedEvent{
		ID:           e.ID,
		CompanyID:    e.CompanyID,
		EmployeeID:   e.EmployeeID,
		ShiftID:      e.ShiftID,
		ShiftDate:    e.ShiftDate.Format("2006-01-02"),
		Entry:        string(e.Entry),
		Timestamp:    e.Timestamp.Format(time.RFC3339),
		TimingStatus: string(e.TimingStatus),
		Source:       string(e.Source),
		KioskID:      e.KioskID,
		Distance:     e.Distance,
	}
}
