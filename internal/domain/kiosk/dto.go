package kiosk

import (
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/validator"
)

type LoginRequest struct {
	DeviceID string `json:"device_id"`
	Secret   string `json:"secret"`
}

func (r *LoginRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.DeviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id is required",
		})
	} else if !validator.IsValidUUID(r.DeviceID) {
		errs = append(errs, validator.ValidationError{
			Field:   "device_id",
			Message: "device_id must be a valid UUID",
		})
	}
	if validator.IsEmpty(r.Secret) {
		errs = append(errs, validator.ValidationError{
			Field:   "secret",
			Message: "secret is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type RegisterDeviceRequest struct {
	Name string `json:"name"`
}

func (r *RegisterDeviceRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name is required",
		})
	} else if len(r.Name) > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "name",
			Message: "name must not exceed 100 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RegisterDeviceResponse carries the plain secret. It is shown once and never stored.
type RegisterDeviceResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type DeviceResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CreatedAt   string  `json:"created_at"`
	LastLoginAt *string `json:"last_login_at,omitempty"`
	Revoked     bool    `json:"revoked"`
}

type SessionResponse struct {
	SessionID   string `json:"session_id"`
	KioskID     string `json:"kiosk_id"`
	StreamToken string `json:"stream_token"`
	StartedAt   string `json:"started_at"`
}

type ManualVerifyRequest struct {
	EmployeeID string `json:"employee_id"`
}

func (r *ManualVerifyRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be a valid UUID",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ManualVerifyResponse struct {
	Verified   bool     `json:"verified"`
	Reason     string   `json:"reason"`
	EmployeeID string   `json:"employee_id"`
	Entry      string   `json:"entry,omitempty"`
	Timing     string   `json:"timing_status,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}
