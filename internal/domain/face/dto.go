package face

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/validator"
)

const MaxImageSize = 10 << 20

var allowedImageExts = []string{".jpg", ".jpeg", ".png"}

type EnrollRequest struct {
	EmployeeID string                  `json:"-"`
	Images     []*multipart.FileHeader `json:"-"`
}

// Validate checks the request against the enrollment limits in cfg.
func (r *EnrollRequest) Validate(cfg EnrollmentConfig) error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must be a valid UUID",
		})
	}

	if len(r.Images) < cfg.MinCaptures {
		errs = append(errs, validator.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at least %d images are required", cfg.MinCaptures),
		})
	}
	if cfg.MaxImages > 0 && len(r.Images) > cfg.MaxImages {
		errs = append(errs, validator.ValidationError{
			Field:   "images",
			Message: fmt.Sprintf("at most %d images are allowed", cfg.MaxImages),
		})
	}

	for i, img := range r.Images {
		field := fmt.Sprintf("images[%d]", i)
		ext := strings.ToLower(filepath.Ext(img.Filename))
		if !validator.IsInSlice(ext, allowedImageExts) {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: "image must be jpg, jpeg or png",
			})
			continue
		}
		if img.Size > MaxImageSize {
			errs = append(errs, validator.ValidationError{
				Field:   field,
				Message: "image must not exceed 10MB",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type EnrollResponse struct {
	EmployeeID string `json:"employee_id"`
	Captures   int    `json:"captures"`
	UpdatedAt  string `json:"updated_at"`
}

type StatusResponse struct {
	EmployeeID string `json:"employee_id"`
	Enrolled   bool   `json:"enrolled"`
	// Live reports whether running kiosk sessions already match against it.
	Live      bool    `json:"live"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}
