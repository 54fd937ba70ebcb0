package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid device id or secret")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrDeviceRevoked      = errors.New("kiosk device has been revoked")
)
