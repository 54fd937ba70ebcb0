package kiosk

import "errors"

// Kiosk domain errors
var (
	ErrDeviceNotFound  = errors.New("kiosk device not found")
	ErrSessionNotFound = errors.New("kiosk session not found")
	ErrSessionStopped  = errors.New("kiosk session is stopped")
)
