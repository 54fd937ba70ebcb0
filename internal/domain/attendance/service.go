package attendance

import (
	"context"
	"time"
)

// DecisionService turns verified identities into attendance entries
type DecisionService interface {
	// Decide records the next entry (IN or OUT) for the employee at now
	Decide(ctx context.Context, req DecisionRequest, now time.Time) (TimestampEvent, error)
}

// AttendanceService exposes the read side to managers
type AttendanceService interface {
	ListTimestamps(ctx context.Context, filter TimestampFilter) (ListTimestampResponse, error)
	GetDailySummary(ctx context.Context, req SummaryRequest) (SummaryResponse, error)
}

// EventPublisher propagates committed entries to downstream consumers
type EventPublisher interface {
	PublishAttendance(ctx context.Context, event RecordedEvent) error
}
