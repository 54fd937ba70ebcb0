package attendance

import "errors"

// Attendance domain errors
var (
	ErrDecisionInFlight   = errors.New("an attendance decision for this employee is already in progress")
	ErrTimestampNotFound  = errors.New("attendance timestamp not found")
	ErrSummaryNotFound    = errors.New("attendance summary not found")
	ErrCompanyIDRequired  = errors.New("company_id is required")
	ErrEmployeeIDRequired = errors.New("employee_id is required")
)
