package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
)

// Identifier is the recognition engine as seen by a session.
type Identifier interface {
	Identify(ctx context.Context, src face.FrameSource, descriptors []face.Descriptor) (face.Outcome, error)
	Verify(ctx context.Context, src face.FrameSource, descriptor face.Descriptor) (face.Outcome, error)
}

// DescriptorSource is the company's live descriptor cache.
type DescriptorSource interface {
	Snapshot() []face.Descriptor
	Get(employeeID string) (face.Descriptor, bool)
}

// VisitorSink receives unverified sightings.
type VisitorSink interface {
	Record(ctx context.Context, sighting visitor.Sighting) (bool, error)
}

type SessionConfig struct {
	// The latch clears after this many consecutive cycles without a face.
	UnlockAfterNoFace int
	// Consecutive spoof rejections before the operator is offered a manual check.
	ManualOverrideAfter int
	// Pause after an infrastructure error before the next cycle.
	ErrorBackoff  time.Duration
	MaxFrameWidth int
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		UnlockAfterNoFace:   15,
		ManualOverrideAfter: 3,
		ErrorBackoff:        time.Second,
		MaxFrameWidth:       1280,
	}
}

type verifyCall struct {
	employeeID string
	reply      chan verifyResult
}

type verifyResult struct {
	resp kiosk.ManualVerifyResponse
	err  error
}

// Session is one kiosk's recognition loop. The loop goroutine is the only
// caller of the engine; manual checks are handed to it over verifyCh.
type Session struct {
	ID        string
	CompanyID string
	KioskID   string
	StartedAt time.Time

	feed     *camera.FeedSource
	store    DescriptorSource
	engine   Identifier
	decider  attendance.DecisionService
	visitors VisitorSink
	emit     func(kiosk.Feedback)
	cfg      SessionConfig
	now      func() time.Time

	verifyCh chan verifyCall
	cancel   context.CancelFunc
	done     chan struct{}

	mu           sync.Mutex
	locked       string
	noFaceStreak int
	spoofStreak  int
	overrideSent bool
	lastKey      string
}

func newSession(id, companyID, kioskID string, deps sessionDeps, cfg SessionConfig) *Session {
	return &Session{
		ID:        id,
		CompanyID: companyID,
		KioskID:   kioskID,
		StartedAt: deps.now(),
		feed:      camera.NewFeedSource(cfg.MaxFrameWidth),
		store:     deps.store,
		engine:    deps.engine,
		decider:   deps.decider,
		visitors:  deps.visitors,
		emit:      deps.emit,
		cfg:       cfg,
		now:       deps.now,
		verifyCh:  make(chan verifyCall),
		done:      make(chan struct{}),
	}
}

type sessionDeps struct {
	store    DescriptorSource
	engine   Identifier
	decider  attendance.DecisionService
	visitors VisitorSink
	emit     func(kiosk.Feedback)
	now      func() time.Time
}

// Feed is where the transport pushes camera frames.
func (s *Session) Feed() *camera.FeedSource {
	return s.feed
}

func (s *Session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.run(ctx)
}

// stop cancels the loop and waits for the current cycle to finish.
func (s *Session) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.feed.Close()
	<-s.done
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer slog.Info("Kiosk session stopped", "session_id", s.ID)
	slog.Info("Kiosk session started", "session_id", s.ID, "kiosk_id", s.KioskID, "company_id", s.CompanyID)
	s.publish(kiosk.Feedback{State: kiosk.StateScanning})

	for {
		select {
		case <-ctx.Done():
			return
		case call := <-s.verifyCh:
			call.reply <- s.manualVerify(ctx, call.employeeID)
			continue
		default:
		}

		outcome, err := s.engine.Identify(ctx, s.feed, s.store.Snapshot())
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, face.ErrSourceClosed) {
				return
			}
			slog.Error("Recognition cycle failed", "session_id", s.ID, "error", err)
			s.publish(kiosk.Feedback{State: kiosk.StateError, Message: "recognition failed"})
			s.pause(ctx, s.cfg.ErrorBackoff)
			continue
		}
		s.handle(ctx, outcome)
	}
}

func (s *Session) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// handle applies one identification outcome to the session latch.
func (s *Session) handle(ctx context.Context, outcome face.Outcome) {
	switch o := outcome.(type) {
	case face.NoFaceDetected:
		s.mu.Lock()
		s.noFaceStreak++
		s.resetSpoofLocked()
		if s.locked != "" && s.noFaceStreak >= s.cfg.UnlockAfterNoFace {
			slog.Debug("Kiosk latch released", "session_id", s.ID, "employee_id", s.locked)
			s.locked = ""
		}
		locked := s.locked != ""
		s.mu.Unlock()
		if !locked {
			s.publish(kiosk.Feedback{State: kiosk.StateScanning, Reason: string(o.Reason())})
		}

	case face.TooClose, face.TooFar, face.MultipleFaces:
		s.mu.Lock()
		s.noFaceStreak = 0
		s.resetSpoofLocked()
		s.mu.Unlock()
		s.publish(kiosk.Feedback{State: kiosk.StateRejected, Reason: string(o.Reason())})

	case face.SpoofRejected:
		s.mu.Lock()
		s.noFaceStreak = 0
		s.spoofStreak++
		offer := s.spoofStreak >= s.cfg.ManualOverrideAfter && !s.overrideSent
		if offer {
			s.overrideSent = true
		}
		s.mu.Unlock()
		if offer {
			s.publish(kiosk.Feedback{State: kiosk.StateManualOverride, Reason: string(o.Reason())})
			return
		}
		s.publish(kiosk.Feedback{State: kiosk.StateRejected, Reason: string(o.Reason())})

	case face.Unverified:
		s.mu.Lock()
		s.noFaceStreak = 0
		s.resetSpoofLocked()
		s.mu.Unlock()
		if s.visitors != nil {
			if _, err := s.visitors.Record(ctx, visitor.Sighting{
				CompanyID: s.CompanyID,
				KioskID:   s.KioskID,
				Embedding: o.Embedding,
				Frame:     o.Frame,
			}); err != nil {
				slog.Error("Failed to record visitor", "session_id", s.ID, "error", err)
			}
		}
		s.publish(kiosk.Feedback{State: kiosk.StateRejected, Reason: string(o.Reason())})

	case face.Verified:
		s.mu.Lock()
		s.noFaceStreak = 0
		s.resetSpoofLocked()
		if s.locked != "" {
			s.mu.Unlock()
			return
		}
		s.locked = o.EmployeeID
		s.mu.Unlock()
		s.record(ctx, o, attendance.SourceKiosk)
	}
}

// record runs the attendance decision for a verified employee and reports it.
// On failure the latch is released so the employee can try again.
func (s *Session) record(ctx context.Context, v face.Verified, source attendance.Source) (attendance.TimestampEvent, error) {
	kioskID := s.KioskID
	distance := v.Distance
	event, err := s.decider.Decide(ctx, attendance.DecisionRequest{
		CompanyID:  s.CompanyID,
		EmployeeID: v.EmployeeID,
		Source:     source,
		KioskID:    &kioskID,
		Distance:   &distance,
	}, s.now())
	if err != nil {
		slog.Error("Failed to record attendance", "session_id", s.ID, "employee_id", v.EmployeeID, "error", err)
		s.mu.Lock()
		if s.locked == v.EmployeeID {
			s.locked = ""
		}
		s.mu.Unlock()
		s.publish(kiosk.Feedback{State: kiosk.StateError, EmployeeID: v.EmployeeID, Message: "attendance could not be recorded"})
		return attendance.TimestampEvent{}, err
	}

	confidence := v.Confidence()
	s.publish(kiosk.Feedback{
		State:      kiosk.StateVerified,
		Reason:     string(v.Reason()),
		EmployeeID: v.EmployeeID,
		Entry:      string(event.Entry),
		Timing:     string(event.TimingStatus),
		Confidence: &confidence,
	})
	return event, nil
}

// manualVerify runs on the loop goroutine.
func (s *Session) manualVerify(ctx context.Context, employeeID string) verifyResult {
	descriptor, ok := s.store.Get(employeeID)
	if !ok {
		return verifyResult{err: face.ErrDescriptorNotFound}
	}

	outcome, err := s.engine.Verify(ctx, s.feed, descriptor)
	if err != nil {
		return verifyResult{err: fmt.Errorf("failed to verify employee: %w", err)}
	}

	resp := kiosk.ManualVerifyResponse{EmployeeID: employeeID, Reason: string(outcome.Reason())}
	v, ok := outcome.(face.Verified)
	if !ok {
		s.publish(kiosk.Feedback{State: kiosk.StateRejected, Reason: resp.Reason, EmployeeID: employeeID})
		return verifyResult{resp: resp}
	}

	s.mu.Lock()
	s.locked = employeeID
	s.noFaceStreak = 0
	s.resetSpoofLocked()
	s.mu.Unlock()

	event, err := s.record(ctx, v, attendance.SourceManualVerify)
	if err != nil {
		return verifyResult{err: err}
	}

	confidence := v.Confidence()
	resp.Verified = true
	resp.Entry = string(event.Entry)
	resp.Timing = string(event.TimingStatus)
	resp.Confidence = &confidence
	return verifyResult{resp: resp}
}

// ManualVerify hands a 1:1 check to the loop and waits for its answer.
func (s *Session) ManualVerify(ctx context.Context, employeeID string) (kiosk.ManualVerifyResponse, error) {
	call := verifyCall{employeeID: employeeID, reply: make(chan verifyResult, 1)}

	select {
	case s.verifyCh <- call:
	case <-s.done:
		return kiosk.ManualVerifyResponse{}, kiosk.ErrSessionStopped
	case <-ctx.Done():
		return kiosk.ManualVerifyResponse{}, ctx.Err()
	}

	select {
	case res := <-call.reply:
		return res.resp, res.err
	case <-s.done:
		return kiosk.ManualVerifyResponse{}, kiosk.ErrSessionStopped
	case <-ctx.Done():
		return kiosk.ManualVerifyResponse{}, ctx.Err()
	}
}

// Reset clears the latch so the next person can be recognized.
func (s *Session) Reset() {
	s.mu.Lock()
	s.locked = ""
	s.noFaceStreak = 0
	s.resetSpoofLocked()
	s.mu.Unlock()
	s.publish(kiosk.Feedback{State: kiosk.StateScanning})
}

// Locked returns the latched employee, if any.
func (s *Session) Locked() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func (s *Session) resetSpoofLocked() {
	s.spoofStreak = 0
	s.overrideSent = false
}

// publish emits feedback when it differs from what the kiosk already shows.
func (s *Session) publish(fb kiosk.Feedback) {
	key := fmt.Sprintf("%s|%s|%s|%s|%s", fb.State, fb.Reason, fb.EmployeeID, fb.Entry, fb.Message)

	s.mu.Lock()
	// Verified entries are always new information.
	if key == s.lastKey && fb.State != kiosk.StateVerified {
		s.mu.Unlock()
		return
	}
	s.lastKey = key
	s.mu.Unlock()

	fb.SessionID = s.ID
	fb.At = s.now().UTC().Format(time.RFC3339)
	s.emit(fb)
}
