package face

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/go-chi/jwtauth/v5"
)

type FaceServiceImpl struct {
	face.DescriptorRepository
	enroller *Enroller
	registry *StoreRegistry
	cfg      face.Config
}

func NewFaceService(repo face.DescriptorRepository, enroller *Enroller, registry *StoreRegistry, cfg face.Config) face.Service {
	return &FaceServiceImpl{
		DescriptorRepository: repo,
		enroller:             enroller,
		registry:             registry,
		cfg:                  cfg,
	}
}

// Enroll implements face.Service.
func (s *FaceServiceImpl) Enroll(ctx context.Context, req face.EnrollRequest) (face.EnrollResponse, error) {
	if err := req.Validate(s.cfg.Enrollment); err != nil {
		return face.EnrollResponse{}, err
	}

	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return face.EnrollResponse{}, err
	}

	images := make([]image.Image, 0, len(req.Images))
	for _, fh := range req.Images {
		img, err := decodeUpload(fh)
		if err != nil {
			return face.EnrollResponse{}, err
		}
		images = append(images, img)
	}

	saved, captures, err := s.enroller.EnrollImages(ctx, companyID, req.EmployeeID, images)
	if err != nil {
		return face.EnrollResponse{}, err
	}

	return face.EnrollResponse{
		EmployeeID: saved.EmployeeID,
		Captures:   captures,
		UpdatedAt:  saved.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// GetStatus implements face.Service.
func (s *FaceServiceImpl) GetStatus(ctx context.Context, employeeID string) (face.StatusResponse, error) {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return face.StatusResponse{}, err
	}

	d, err := s.DescriptorRepository.GetByEmployee(ctx, companyID, employeeID)
	if err != nil {
		if errors.Is(err, face.ErrDescriptorNotFound) {
			return face.StatusResponse{EmployeeID: employeeID, Enrolled: false}, nil
		}
		return face.StatusResponse{}, fmt.Errorf("failed to get descriptor: %w", err)
	}

	live := false
	if store, ok := s.registry.Lookup(companyID); ok {
		live = store.HasEnrollment(employeeID)
	}

	updatedAt := d.UpdatedAt.Format(time.RFC3339)
	return face.StatusResponse{
		EmployeeID: employeeID,
		Enrolled:   true,
		Live:       live,
		UpdatedAt:  &updatedAt,
	}, nil
}

// Delete implements face.Service.
func (s *FaceServiceImpl) Delete(ctx context.Context, employeeID string) error {
	companyID, err := companyIDFromContext(ctx)
	if err != nil {
		return err
	}
	return s.registry.Remove(ctx, companyID, employeeID)
}

func decodeUpload(fh *multipart.FileHeader) (image.Image, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", face.ErrUnsupportedImageType, fh.Filename)
	}
	return img, nil
}

func companyIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}
	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return "", fmt.Errorf("company_id claim is missing or invalid")
	}
	return companyID, nil
}
