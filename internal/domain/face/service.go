package face

import (
	"context"
)

// FrameSource yields camera frames. It returns ErrSourceClosed once exhausted.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
}

// Detector finds faces in a frame and fills landmarks, pose and embedding for each.
type Detector interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// Service is the admin facing face management API
type Service interface {
	// Enroll builds and stores a descriptor from uploaded still images
	Enroll(ctx context.Context, req EnrollRequest) (EnrollResponse, error)

	// GetStatus reports whether the employee has an enrolled face
	GetStatus(ctx context.Context, employeeID string) (StatusResponse, error)

	// Delete removes the employee's descriptor
	Delete(ctx context.Context, employeeID string) error
}
