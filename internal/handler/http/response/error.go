package response

import (
	"errors"
	"net/http"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth domain errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrDeviceRevoked):
		Forbidden(w, "Kiosk device has been revoked")

	// Access errors
	case errors.Is(err, user.ErrOwnerAccessRequired),
		errors.Is(err, user.ErrManagerAccessRequired),
		errors.Is(err, user.ErrKioskAccessRequired):
		Forbidden(w, err.Error())
	case errors.Is(err, user.ErrCompanyIDRequired):
		Forbidden(w, "Company context required")

	// Face domain errors
	case errors.Is(err, face.ErrNotEnoughCaptures):
		UnprocessableEntity(w, "NOT_ENOUGH_CAPTURES", err.Error())
	case errors.Is(err, face.ErrUnsupportedImageType):
		BadRequest(w, "Unsupported image type", nil)
	case errors.Is(err, face.ErrDescriptorNotFound):
		NotFound(w, "Face descriptor not found")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrDecisionInFlight):
		Conflict(w, "Attendance decision already in progress")
	case errors.Is(err, attendance.ErrTimestampNotFound):
		NotFound(w, "Attendance timestamp not found")
	case errors.Is(err, attendance.ErrSummaryNotFound):
		NotFound(w, "Attendance summary not found")

	// Kiosk domain errors
	case errors.Is(err, kiosk.ErrDeviceNotFound):
		NotFound(w, "Kiosk device not found")
	case errors.Is(err, kiosk.ErrSessionNotFound):
		NotFound(w, "Kiosk session not found")
	case errors.Is(err, kiosk.ErrSessionStopped):
		Conflict(w, "Kiosk session is stopped")

	// Visitor domain errors
	case errors.Is(err, visitor.ErrCaptureNotFound):
		NotFound(w, "Visitor capture not found")

	// Default
	default:
		InternalServerError(w, "An unexpected error occurred")
	}
}
