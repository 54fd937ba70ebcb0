package attendance

import (
	"strings"

	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/validator"
)

// DecisionRequest asks the state machine to record the next entry for a verified employee.
type DecisionRequest struct {
	CompanyID  string
	EmployeeID string
	Source     Source
	KioskID    *string
	Distance   *float64
}

func (r *DecisionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.CompanyID) {
		errs = append(errs, validator.ValidationError{
			Field:   "company_id",
			Message: "company_id is required",
		})
	}
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	if r.Source == "" {
		r.Source = SourceKiosk
	}
	if !validator.IsInSlice(string(r.Source), []string{string(SourceKiosk), string(SourceManualVerify)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "source",
			Message: "source must be one of: kiosk, manual_verify",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type TimestampResponse struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employee_id"`
	EmployeeName *string  `json:"employee_name,omitempty"`
	ShiftID      *string  `json:"shift_id"`
	ShiftName    *string  `json:"shift_name,omitempty"`
	ShiftDate    string   `json:"shift_date"`
	Entry        string   `json:"entry"`
	Timestamp    string   `json:"timestamp"`
	TimingStatus string   `json:"timing_status"`
	Source       string   `json:"source"`
	KioskID      *string  `json:"kiosk_id,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

type TimestampFilter struct {
	// Search & Filter
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Entry      *string `json:"entry,omitempty"`
	Status     *string `json:"timing_status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *TimestampFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.EmployeeID != nil && !validator.IsValidUUID(*f.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be a valid UUID",
		})
	}

	if f.Entry != nil {
		if !validator.IsInSlice(*f.Entry, []string{string(EntryIn), string(EntryOut)}) {
			errs = append(errs, validator.ValidationError{
				Field:   "entry",
				Message: "entry must be one of: IN, OUT",
			})
		}
	}

	if f.Status != nil {
		validStatuses := []string{string(TimingOK), string(TimingOutsideShift), string(TimingNoShiftAssigned)}
		if !validator.IsInSlice(*f.Status, validStatuses) {
			errs = append(errs, validator.ValidationError{
				Field:   "timing_status",
				Message: "timing_status must be one of: OK, OUTSIDE_SHIFT, NO_SHIFT_ASSIGNED",
			})
		}
	}

	start, startOK := validDate(f.StartDate)
	if f.StartDate != nil && !startOK {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}
	end, endOK := validDate(f.EndDate)
	if f.EndDate != nil && !endOK {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}
	if startOK && endOK && end.Before(start) {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must not be before start_date",
		})
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validDate(s *string) (validator.Date, bool) {
	if s == nil {
		return validator.Date{}, false
	}
	d, err := validator.ParseDate(*s)
	return d, err == nil
}

type ListTimestampResponse struct {
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
	Showing    string              `json:"showing"`
	Timestamps []TimestampResponse `json:"timestamps"`
}

type SummaryRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"` // YYYY-MM-DD
}

func (r *SummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be a valid UUID",
		})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SummaryResponse struct {
	EmployeeID string  `json:"employee_id"`
	Date       string  `json:"date"`
	FirstIn    *string `json:"first_in,omitempty"`
	LastOut    *string `json:"last_out,omitempty"`
	EntryCount int     `json:"entry_count"`
	LastEntry  string  `json:"last_entry"`
}

// RecordedEvent is the payload published for reporting consumers.
type RecordedEvent struct {
	ID           string   `json:"id"`
	CompanyID    string   `json:"company_id"`
	EmployeeID   string   `json:"employee_id"`
	ShiftID      *string  `json:"shift_id"`
	ShiftDate    string   `json:"shift_date"`
	Entry        string   `json:"entry"`
	Timestamp    string   `json:"timestamp"`
	TimingStatus string   `json:"timing_status"`
	Source       string   `json:"source"`
	KioskID      *string  `json:"kiosk_id,omitempty"`
	Distance     *float64 `json:"distance,omitempty"`
}
