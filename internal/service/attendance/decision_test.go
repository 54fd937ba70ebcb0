package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	companyID  = "0190a3c4-0000-7000-8000-000000000001"
	employeeID = "0190a3c4-0000-7000-8000-0000000000e1"
)

type passthroughTx struct{}

func (passthroughTx) Do(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type memoryTimestamps struct {
	mu         sync.Mutex
	events     []attendance.TimestampEvent
	lockHook   func()
	failCreate error
}

func (m *memoryTimestamps) Create(_ context.Context, e attendance.TimestampEvent) (attendance.TimestampEvent, error) {
	if m.failCreate != nil {
		return attendance.TimestampEvent{}, m.failCreate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, _ := uuid.NewV7()
	e.ID = id.String()
	e.CreatedAt = e.Timestamp
	m.events = append(m.events, e)
	return e, nil
}

func (m *memoryTimestamps) GetLatest(_ context.Context, companyID, employeeID string, shiftID *string, shiftDate time.Time) (*attendance.TimestampEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.CompanyID != companyID || e.EmployeeID != employeeID || !e.ShiftDate.Equal(shiftDate) {
			continue
		}
		if (e.ShiftID == nil) != (shiftID == nil) || (e.ShiftID != nil && *e.ShiftID != *shiftID) {
			continue
		}
		return &e, nil
	}
	return nil, nil
}

func (m *memoryTimestamps) List(_ context.Context, _ attendance.TimestampFilter, _ string) ([]attendance.TimestampEvent, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attendance.TimestampEvent(nil), m.events...), int64(len(m.events)), nil
}

func (m *memoryTimestamps) LockEmployee(_ context.Context, _, _ string) error {
	if m.lockHook != nil {
		m.lockHook()
	}
	return nil
}

type fixedShifts struct {
	byDate   map[string][]attendance.Shift
	timezone string
}

func (f fixedShifts) GetShifts(_ context.Context, _, _ string, date time.Time) ([]attendance.Shift, error) {
	return f.byDate[date.Format("2006-01-02")], nil
}

func (f fixedShifts) GetTimezoneByEmployeeID(_ context.Context, _, _ string) (string, error) {
	return f.timezone, nil
}

type countingSummaries struct {
	mu      sync.Mutex
	applied []attendance.TimestampEvent
}

func (c *countingSummaries) Apply(_ context.Context, e attendance.TimestampEvent) (attendance.DailySummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = append(c.applied, e)
	return attendance.DailySummary{CompanyID: e.CompanyID, EmployeeID: e.EmployeeID, Date: e.ShiftDate, EntryCount: len(c.applied), LastEntry: e.Entry}, nil
}

func (c *countingSummaries) Get(_ context.Context, _, _ string, _ time.Time) (attendance.DailySummary, error) {
	return attendance.DailySummary{}, attendance.ErrSummaryNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []attendance.RecordedEvent
	err    error
}

func (p *recordingPublisher) PublishAttendance(_ context.Context, e attendance.RecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func newDecider(shifts fixedShifts) (*DecisionServiceImpl, *memoryTimestamps, *countingSummaries, *recordingPublisher) {
	ts := &memoryTimestamps{}
	sums := &countingSummaries{}
	pub := &recordingPublisher{}
	return NewDecisionService(passthroughTx{}, ts, shifts, sums, pub, time.UTC), ts, sums, pub
}

func request() attendance.DecisionRequest {
	return attendance.DecisionRequest{CompanyID: companyID, EmployeeID: employeeID}
}

func TestDecide_AlternatesStartingWithIn(t *testing.T) {
	svc, _, sums, pub := newDecider(fixedShifts{})
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	want := []attendance.EntryType{attendance.EntryIn, attendance.EntryOut, attendance.EntryIn, attendance.EntryOut}
	for i, entry := range want {
		e, err := svc.Decide(ctx, request(), now.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, entry, e.Entry)
		assert.Equal(t, attendance.TimingNoShiftAssigned, e.TimingStatus)
		assert.Nil(t, e.ShiftID)
		assert.Equal(t, attendance.SourceKiosk, e.Source)
	}

	assert.Len(t, sums.applied, 4)
	require.Len(t, pub.events, 4)
	assert.Equal(t, "IN", pub.events[0].Entry)
	assert.Equal(t, "2026-03-02", pub.events[0].ShiftDate)
}

func TestDecide_NewShiftDayStartsWithIn(t *testing.T) {
	svc, _, _, _ := newDecider(fixedShifts{})
	ctx := context.Background()

	e, err := svc.Decide(ctx, request(), time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, attendance.EntryIn, e.Entry)

	e, err = svc.Decide(ctx, request(), time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, attendance.EntryIn, e.Entry)
}

func TestDecide_OvernightOutBooksOnStartDay(t *testing.T) {
	night := attendance.Shift{ID: "shift-night", Start: 22 * time.Hour, End: 6 * time.Hour}
	svc, _, _, _ := newDecider(fixedShifts{
		timezone: "Asia/Jakarta",
		byDate: map[string][]attendance.Shift{
			"2026-03-02": {night},
			"2026-03-03": {night},
		},
	})
	ctx := context.Background()

	// 22:30 and 05:45 Jakarta time (UTC+7).
	in, err := svc.Decide(ctx, request(), time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	out, err := svc.Decide(ctx, request(), time.Date(2026, 3, 2, 22, 45, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, attendance.EntryIn, in.Entry)
	assert.Equal(t, attendance.EntryOut, out.Entry)
	assert.Equal(t, attendance.TimingOK, out.TimingStatus)
	assert.Equal(t, "2026-03-02", out.ShiftDate.Format("2006-01-02"))
	require.NotNil(t, out.ShiftID)
	assert.Equal(t, "shift-night", *out.ShiftID)
}

func TestDecide_ManualVerifySourceIsKept(t *testing.T) {
	svc, _, _, _ := newDecider(fixedShifts{})
	kiosk := "kiosk-1"
	dist := 0.2

	req := request()
	req.Source = attendance.SourceManualVerify
	req.KioskID = &kiosk
	req.Distance = &dist

	e, err := svc.Decide(context.Background(), req, time.Now())
	require.NoError(t, err)
	assert.Equal(t, attendance.SourceManualVerify, e.Source)
	assert.Equal(t, &kiosk, e.KioskID)
}

func TestDecide_RejectsConcurrentDecisionForSameEmployee(t *testing.T) {
	svc, ts, _, _ := newDecider(fixedShifts{})

	entered := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	ts.lockHook = func() {
		once.Do(func() {
			close(entered)
			<-proceed
		})
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Decide(context.Background(), request(), time.Now())
		done <- err
	}()
	<-entered

	_, err := svc.Decide(context.Background(), request(), time.Now())
	assert.ErrorIs(t, err, attendance.ErrDecisionInFlight)

	other := request()
	other.EmployeeID = "0190a3c4-0000-7000-8000-0000000000e2"
	_, err = svc.Decide(context.Background(), other, time.Now())
	assert.NoError(t, err)

	close(proceed)
	require.NoError(t, <-done)

	_, err = svc.Decide(context.Background(), request(), time.Now())
	assert.NoError(t, err)
}

func TestDecide_PublishFailureIsNotFatal(t *testing.T) {
	svc, ts, _, pub := newDecider(fixedShifts{})
	pub.err = errors.New("nats: no responders")

	_, err := svc.Decide(context.Background(), request(), time.Now())
	require.NoError(t, err)
	assert.Len(t, ts.events, 1)
}

func TestDecide_PersistenceFailureSurfaces(t *testing.T) {
	svc, ts, sums, pub := newDecider(fixedShifts{})
	ts.failCreate = errors.New("connection reset")

	_, err := svc.Decide(context.Background(), request(), time.Now())
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, sums.applied)
	assert.Empty(t, pub.events)

	ts.failCreate = nil
	_, err = svc.Decide(context.Background(), request(), time.Now())
	assert.NoError(t, err)
}

func TestDecide_Validation(t *testing.T) {
	svc, _, _, _ := newDecider(fixedShifts{})
	_, err := svc.Decide(context.Background(), attendance.DecisionRequest{}, time.Now())
	assert.Error(t, err)
}
