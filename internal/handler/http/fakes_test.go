package http

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	"github.com/go-chi/jwtauth/v5"
)

const (
	testSecret   = "test-secret-key-for-jwt"
	testCompany  = "0190f1a4-0000-7000-8000-000000000001"
	testKiosk    = "0190f1a4-0000-7000-8000-0000000000aa"
	testEmployee = "0190f1a4-0000-7000-8000-0000000000e1"
	testSession  = "0190f1a4-0000-7000-8000-0000000000f1"
)

type fakeDevices struct {
	secret  string
	revoked []string
}

func (d *fakeDevices) Register(_ context.Context, req kiosk.RegisterDeviceRequest) (kiosk.RegisterDeviceResponse, error) {
	if err := req.Validate(); err != nil {
		return kiosk.RegisterDeviceResponse{}, err
	}
	return kiosk.RegisterDeviceResponse{ID: testKiosk, Name: req.Name, Secret: "generated"}, nil
}

func (d *fakeDevices) List(context.Context) ([]kiosk.DeviceResponse, error) {
	return []kiosk.DeviceResponse{{ID: testKiosk, Name: "Lobby"}}, nil
}

func (d *fakeDevices) Revoke(_ context.Context, id string) error {
	if id != testKiosk {
		return kiosk.ErrDeviceNotFound
	}
	d.revoked = append(d.revoked, id)
	return nil
}

func (d *fakeDevices) Login(_ context.Context, req kiosk.LoginRequest) (kiosk.LoginResponse, error) {
	if req.DeviceID != testKiosk || req.Secret != d.secret {
		return kiosk.LoginResponse{}, auth.ErrInvalidCredentials
	}
	return kiosk.LoginResponse{AccessToken: "token", ExpiresAt: 1}, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	started   int
	verifyErr error
	feed      *camera.FeedSource
}

func (s *fakeSessions) Start(ctx context.Context) (kiosk.SessionResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return kiosk.SessionResponse{}, err
	}
	s.started++
	kioskID, _ := claims["kiosk_id"].(string)
	return kiosk.SessionResponse{SessionID: testSession, KioskID: kioskID, StreamToken: "stream"}, nil
}

func (s *fakeSessions) Stop(_ context.Context, sessionID string) error {
	if sessionID != testSession {
		return kiosk.ErrSessionNotFound
	}
	return nil
}

func (s *fakeSessions) Reset(_ context.Context, sessionID string) error {
	return s.Stop(context.Background(), sessionID)
}

func (s *fakeSessions) ManualVerify(_ context.Context, sessionID string, req kiosk.ManualVerifyRequest) (kiosk.ManualVerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return kiosk.ManualVerifyResponse{}, err
	}
	if s.verifyErr != nil {
		return kiosk.ManualVerifyResponse{}, s.verifyErr
	}
	return kiosk.ManualVerifyResponse{Verified: true, Reason: string(face.ReasonVerified), EmployeeID: req.EmployeeID, Entry: "IN"}, nil
}

func (s *fakeSessions) Feed(_ context.Context, sessionID string) (*camera.FeedSource, string, error) {
	if sessionID != testSession || s.feed == nil {
		return nil, "", kiosk.ErrSessionNotFound
	}
	return s.feed, testKiosk, nil
}

func (s *fakeSessions) Exists(sessionID, companyID string) bool {
	return sessionID == testSession && companyID == testCompany
}

type fakeFaces struct {
	mu       sync.Mutex
	images   int
	enrolled map[string]bool
	err      error
}

func (f *fakeFaces) Enroll(_ context.Context, req face.EnrollRequest) (face.EnrollResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := req.Validate(face.DefaultConfig().Enrollment); err != nil {
		return face.EnrollResponse{}, err
	}
	if f.err != nil {
		return face.EnrollResponse{}, f.err
	}
	f.images = len(req.Images)
	f.enrolled[req.EmployeeID] = true
	return face.EnrollResponse{EmployeeID: req.EmployeeID, Captures: len(req.Images)}, nil
}

func (f *fakeFaces) GetStatus(_ context.Context, employeeID string) (face.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return face.StatusResponse{EmployeeID: employeeID, Enrolled: f.enrolled[employeeID]}, nil
}

func (f *fakeFaces) Delete(_ context.Context, employeeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enrolled[employeeID] {
		return face.ErrDescriptorNotFound
	}
	delete(f.enrolled, employeeID)
	return nil
}

type fakeAttendance struct {
	lastFilter attendance.TimestampFilter
}

func (a *fakeAttendance) ListTimestamps(_ context.Context, filter attendance.TimestampFilter) (attendance.ListTimestampResponse, error) {
	a.lastFilter = filter
	return attendance.ListTimestampResponse{Page: filter.Page, Limit: filter.Limit, Showing: "0 of 0"}, nil
}

func (a *fakeAttendance) GetDailySummary(_ context.Context, req attendance.SummaryRequest) (attendance.SummaryResponse, error) {
	if req.Date == "2026-01-01" {
		return attendance.SummaryResponse{}, attendance.ErrSummaryNotFound
	}
	return attendance.SummaryResponse{EmployeeID: req.EmployeeID, Date: req.Date, EntryCount: 2, LastEntry: "OUT"}, nil
}

type fakeVisitors struct{}

func (fakeVisitors) Record(context.Context, visitor.Sighting) (bool, error) { return true, nil }

func (fakeVisitors) List(_ context.Context, filter visitor.CaptureFilter) (visitor.ListCaptureResponse, error) {
	if err := filter.Validate(); err != nil {
		return visitor.ListCaptureResponse{}, err
	}
	return visitor.ListCaptureResponse{Page: filter.Page, Limit: filter.Limit, Showing: "0 of 0"}, nil
}

func (fakeVisitors) Purge(context.Context, time.Time) (int64, error) { return 0, nil }
