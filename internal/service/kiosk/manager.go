package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/sse"
	facesvc "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// ForgettingVisitorSink also drops per-kiosk state when a session ends.
type ForgettingVisitorSink interface {
	VisitorSink
	Forget(kioskID string)
}

type SessionServiceImpl struct {
	registry *facesvc.StoreRegistry
	engine   Identifier
	decider  attendance.DecisionService
	visitors ForgettingVisitorSink
	hub      *sse.Hub
	jwt      jwt.Service
	cfg      SessionConfig
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	byKiosk  map[string]string

	// Serializes Start and StopKiosk per kiosk; held across the replace.
	kioskLocks map[string]*sync.Mutex
}

var _ kiosk.SessionService = (*SessionServiceImpl)(nil)

func NewSessionService(
	registry *facesvc.StoreRegistry,
	engine Identifier,
	decider attendance.DecisionService,
	visitors ForgettingVisitorSink,
	hub *sse.Hub,
	jwtService jwt.Service,
	cfg SessionConfig,
) *SessionServiceImpl {
	return &SessionServiceImpl{
		registry: registry,
		engine:   engine,
		decider:  decider,
		visitors: visitors,
		hub:      hub,
		jwt:      jwtService,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*Session),
		byKiosk:  make(map[string]string),

		kioskLocks: make(map[string]*sync.Mutex),
	}
}

// Start implements kiosk.SessionService. A kiosk has at most one session;
// starting again replaces the previous one.
func (m *SessionServiceImpl) Start(ctx context.Context) (kiosk.SessionResponse, error) {
	kioskID, companyID, err := kioskFromContext(ctx)
	if err != nil {
		return kiosk.SessionResponse{}, err
	}

	unlock := m.lockKiosk(kioskID)
	defer unlock()

	m.mu.Lock()
	previous, ok := m.byKiosk[kioskID]
	m.mu.Unlock()
	if ok {
		slog.Info("Replacing kiosk session", "kiosk_id", kioskID, "session_id", previous)
		if err := m.stop(previous); err != nil && !errors.Is(err, kiosk.ErrSessionNotFound) {
			return kiosk.SessionResponse{}, err
		}
	}

	store, err := m.registry.Acquire(ctx, companyID)
	if err != nil {
		return kiosk.SessionResponse{}, fmt.Errorf("failed to load descriptors: %w", err)
	}

	sessionID := uuid.New().String()
	streamToken, _, err := m.jwt.GenerateStreamToken(sessionID, companyID)
	if err != nil {
		m.registry.Release(companyID)
		return kiosk.SessionResponse{}, fmt.Errorf("failed to generate stream token: %w", err)
	}

	var visitors VisitorSink
	if m.visitors != nil {
		visitors = m.visitors
	}
	session := newSession(sessionID, companyID, kioskID, sessionDeps{
		store:    store,
		engine:   m.engine,
		decider:  m.decider,
		visitors: visitors,
		emit:     m.emitter(sessionID),
		now:      m.now,
	}, m.cfg)

	m.mu.Lock()
	m.sessions[sessionID] = session
	m.byKiosk[kioskID] = sessionID
	m.mu.Unlock()

	session.start()
	metrics.ActiveSessions.Inc()

	return kiosk.SessionResponse{
		SessionID:   sessionID,
		KioskID:     kioskID,
		StreamToken: streamToken,
		StartedAt:   session.StartedAt.UTC().Format(time.RFC3339),
	}, nil
}

// Stop implements kiosk.SessionService.
func (m *SessionServiceImpl) Stop(ctx context.Context, sessionID string) error {
	if _, err := m.owned(ctx, sessionID); err != nil {
		return err
	}
	return m.stop(sessionID)
}

// Reset implements kiosk.SessionService.
func (m *SessionServiceImpl) Reset(ctx context.Context, sessionID string) error {
	session, err := m.owned(ctx, sessionID)
	if err != nil {
		return err
	}
	session.Reset()
	return nil
}

// ManualVerify implements kiosk.SessionService.
func (m *SessionServiceImpl) ManualVerify(ctx context.Context, sessionID string, req kiosk.ManualVerifyRequest) (kiosk.ManualVerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return kiosk.ManualVerifyResponse{}, err
	}
	session, err := m.owned(ctx, sessionID)
	if err != nil {
		return kiosk.ManualVerifyResponse{}, err
	}
	return session.ManualVerify(ctx, req.EmployeeID)
}

// Feed returns the frame feed of a session owned by the calling kiosk.
func (m *SessionServiceImpl) Feed(ctx context.Context, sessionID string) (*camera.FeedSource, string, error) {
	session, err := m.owned(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	return session.Feed(), session.KioskID, nil
}

// Exists reports whether a session runs for the company. The SSE endpoint
// authenticates with a stream token instead of the kiosk token.
func (m *SessionServiceImpl) Exists(sessionID, companyID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return ok && s.CompanyID == companyID
}

// Shutdown stops every session.
func (m *SessionServiceImpl) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		_ = m.stop(id)
	}
}

// StopKiosk stops the session of a kiosk, if it has one.
func (m *SessionServiceImpl) StopKiosk(kioskID string) {
	unlock := m.lockKiosk(kioskID)
	defer unlock()

	m.mu.Lock()
	id, ok := m.byKiosk[kioskID]
	m.mu.Unlock()
	if ok {
		_ = m.stop(id)
	}
}

// lockKiosk takes the kiosk's start lock. Lock order is kiosk lock, then m.mu.
func (m *SessionServiceImpl) lockKiosk(kioskID string) func() {
	m.mu.Lock()
	l, ok := m.kioskLocks[kioskID]
	if !ok {
		l = &sync.Mutex{}
		m.kioskLocks[kioskID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *SessionServiceImpl) stop(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
		if m.byKiosk[session.KioskID] == sessionID {
			delete(m.byKiosk, session.KioskID)
		}
	}
	m.mu.Unlock()
	if !ok {
		return kiosk.ErrSessionNotFound
	}

	session.stop()
	m.registry.Release(session.CompanyID)
	if m.visitors != nil {
		m.visitors.Forget(session.KioskID)
	}
	metrics.ActiveSessions.Dec()

	m.hub.Publish(sessionID, sse.Event{Event: "feedback", Data: kiosk.Feedback{
		SessionID: sessionID,
		State:     kiosk.StateStopped,
		At:        m.now().UTC().Format(time.RFC3339),
	}})
	m.hub.Forget(sessionID)
	return nil
}

func (m *SessionServiceImpl) owned(ctx context.Context, sessionID string) (*Session, error) {
	kioskID, _, err := kioskFromContext(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok || session.KioskID != kioskID {
		return nil, kiosk.ErrSessionNotFound
	}
	return session, nil
}

func (m *SessionServiceImpl) emitter(sessionID string) func(kiosk.Feedback) {
	return func(fb kiosk.Feedback) {
		m.hub.Publish(sessionID, sse.Event{Event: "feedback", Data: fb})
	}
}

func kioskFromContext(ctx context.Context) (string, string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", "", fmt.Errorf("failed to extract claims from context: %w", err)
	}

	if role, _ := claims["role"].(string); role != string(user.RoleKiosk) {
		return "", "", user.ErrKioskAccessRequired
	}
	kioskID, ok := claims["kiosk_id"].(string)
	if !ok || kioskID == "" {
		return "", "", fmt.Errorf("kiosk_id claim is missing or invalid")
	}
	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", "", fmt.Errorf("company_id claim is missing or invalid")
	}
	return kioskID, companyID, nil
}
