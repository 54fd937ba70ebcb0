package kiosk

import (
	"context"
)

// DeviceService manages kiosk registration and device login
type DeviceService interface {
	Register(ctx context.Context, req RegisterDeviceRequest) (RegisterDeviceResponse, error)
	List(ctx context.Context) ([]DeviceResponse, error)
	Revoke(ctx context.Context, id string) error
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
}

// SessionService runs recognition sessions for logged in kiosks
type SessionService interface {
	// Start begins a recognition loop for the calling kiosk
	Start(ctx context.Context) (SessionResponse, error)

	// Stop cancels the loop; the call returns once the loop has exited
	Stop(ctx context.Context, sessionID string) error

	// Reset clears the locked employee so the next person can be recognized
	Reset(ctx context.Context, sessionID string) error

	// ManualVerify runs a 1:1 check against the named employee on the session's camera
	ManualVerify(ctx context.Context, sessionID string, req ManualVerifyRequest) (ManualVerifyResponse, error)
}
