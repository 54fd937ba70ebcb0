package kiosk

import (
	"time"
)

// Device is a registered attendance terminal.
type Device struct {
	ID          string
	CompanyID   string
	Name        string
	SecretHash  string
	CreatedAt   time.Time
	LastLoginAt *time.Time
	RevokedAt   *time.Time
}

func (d Device) IsRevoked() bool {
	return d.RevokedAt != nil
}

// State is what the kiosk screen should show.
type State string

const (
	StateScanning       State = "scanning"
	StateRejected       State = "rejected"
	StateVerified       State = "verified"
	StateError          State = "error"
	StateManualOverride State = "manual_override"
	StateStopped        State = "stopped"
)

// Feedback is pushed to the kiosk over SSE after every recognition cycle that changes what is shown.
type Feedback struct {
	SessionID  string   `json:"session_id"`
	State      State    `json:"state"`
	Reason     string   `json:"reason,omitempty"`
	EmployeeID string   `json:"employee_id,omitempty"`
	Entry      string   `json:"entry,omitempty"`
	Timing     string   `json:"timing_status,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
	At         string   `json:"at"`
}
