package kiosk

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
)

const (
	companyID = "0190f1a4-0000-7000-8000-000000000001"
	kioskID   = "0190f1a4-0000-7000-8000-0000000000aa"
	alice     = "0190f1a4-0000-7000-8000-0000000000e1"
	bob       = "0190f1a4-0000-7000-8000-0000000000e2"
)

// scriptedEngine consumes one frame per call and returns queued outcomes,
// then NoFaceDetected.
type scriptedEngine struct {
	mu       sync.Mutex
	outcomes []face.Outcome
	verify   face.Outcome
}

func (e *scriptedEngine) queue(outcomes ...face.Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append(e.outcomes, outcomes...)
}

func (e *scriptedEngine) Identify(ctx context.Context, src face.FrameSource, _ []face.Descriptor) (face.Outcome, error) {
	if _, err := src.NextFrame(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.outcomes) == 0 {
		return face.NoFaceDetected{}, nil
	}
	o := e.outcomes[0]
	e.outcomes = e.outcomes[1:]
	return o, nil
}

func (e *scriptedEngine) Verify(ctx context.Context, src face.FrameSource, d face.Descriptor) (face.Outcome, error) {
	if _, err := src.NextFrame(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verify != nil {
		return e.verify, nil
	}
	return face.Verified{EmployeeID: d.EmployeeID, Distance: 0.2}, nil
}

type fakeDecider struct {
	mu    sync.Mutex
	calls []attendance.DecisionRequest
	last  map[string]attendance.EntryType
	fail  error
}

func (d *fakeDecider) Decide(_ context.Context, req attendance.DecisionRequest, now time.Time) (attendance.TimestampEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, req)
	if d.fail != nil {
		return attendance.TimestampEvent{}, d.fail
	}
	if d.last == nil {
		d.last = make(map[string]attendance.EntryType)
	}
	entry := attendance.EntryIn
	if prev, ok := d.last[req.EmployeeID]; ok {
		entry = prev.Next()
	}
	d.last[req.EmployeeID] = entry
	return attendance.TimestampEvent{
		CompanyID:    req.CompanyID,
		EmployeeID:   req.EmployeeID,
		Entry:        entry,
		Timestamp:    now,
		TimingStatus: attendance.TimingNoShiftAssigned,
		Source:       req.Source,
	}, nil
}

func (d *fakeDecider) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type fakeVisitors struct {
	mu        sync.Mutex
	sightings []visitor.Sighting
	forgotten []string
}

func (v *fakeVisitors) Record(_ context.Context, s visitor.Sighting) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sightings = append(v.sightings, s)
	return true, nil
}

func (v *fakeVisitors) Forget(kioskID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.forgotten = append(v.forgotten, kioskID)
}

type staticStore map[string]face.Descriptor

func (s staticStore) Snapshot() []face.Descriptor {
	out := make([]face.Descriptor, 0, len(s))
	for _, d := range s {
		out = append(out, d)
	}
	return out
}

func (s staticStore) Get(employeeID string) (face.Descriptor, bool) {
	d, ok := s[employeeID]
	return d, ok
}

type feedbackLog struct {
	mu     sync.Mutex
	events []kiosk.Feedback
}

func (l *feedbackLog) emit(fb kiosk.Feedback) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fb)
}

func (l *feedbackLog) states() []kiosk.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]kiosk.State, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.State)
	}
	return out
}

func (l *feedbackLog) last() kiosk.Feedback {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return kiosk.Feedback{}
	}
	return l.events[len(l.events)-1]
}

type memoryDescriptors struct {
	mu   sync.Mutex
	rows map[string]face.Descriptor
}

func (m *memoryDescriptors) ListByCompany(_ context.Context, company string) ([]face.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []face.Descriptor
	for _, d := range m.rows {
		if d.CompanyID == company {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDescriptors) GetByEmployee(_ context.Context, company, employee string) (face.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.rows[employee]
	if !ok || d.CompanyID != company {
		return face.Descriptor{}, face.ErrDescriptorNotFound
	}
	return d, nil
}

func (m *memoryDescriptors) Upsert(_ context.Context, d face.Descriptor) (face.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.UpdatedAt = time.Now()
	m.rows[d.EmployeeID] = d
	return d, nil
}

func (m *memoryDescriptors) Delete(_ context.Context, _, employee string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[employee]; !ok {
		return face.ErrDescriptorNotFound
	}
	delete(m.rows, employee)
	return nil
}

var errDatabase = errors.New("database unavailable")

func testFrame() face.Frame {
	return face.Frame{Image: image.NewRGBA(image.Rect(0, 0, 64, 48)), CapturedAt: time.Now()}
}

func testSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.ErrorBackoff = 0
	return cfg
}
