package user

import "errors"

var (
	ErrOwnerAccessRequired   = errors.New("owner access required")
	ErrManagerAccessRequired = errors.New("manager access required")
	ErrKioskAccessRequired   = errors.New("kiosk access required")
	ErrCompanyIDRequired     = errors.New("company ID is required")
)
