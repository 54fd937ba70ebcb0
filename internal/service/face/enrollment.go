package face

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/camera"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
)

// Enroller averages several captures of one employee into a single descriptor.
type Enroller struct {
	detector face.Detector
	registry *StoreRegistry
	cfg      face.EnrollmentConfig
	dim      int
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEnroller(detector face.Detector, registry *StoreRegistry, cfg face.Config) *Enroller {
	return &Enroller{
		detector: detector,
		registry: registry,
		cfg:      cfg.Enrollment,
		dim:      cfg.EmbeddingDim,
		sleep:    sleepContext,
	}
}

// Enroll captures from a live camera: Attempts frames, Interval apart.
func (e *Enroller) Enroll(ctx context.Context, companyID, employeeID string, src face.FrameSource) (face.Descriptor, int, error) {
	return e.enroll(ctx, companyID, employeeID, src, e.cfg.Attempts, e.cfg.Interval)
}

// EnrollImages runs the same capture rules over uploaded still images.
func (e *Enroller) EnrollImages(ctx context.Context, companyID, employeeID string, images []image.Image) (face.Descriptor, int, error) {
	return e.enroll(ctx, companyID, employeeID, camera.NewStillSource(images...), len(images), 0)
}

func (e *Enroller) enroll(ctx context.Context, companyID, employeeID string, src face.FrameSource, attempts int, interval time.Duration) (face.Descriptor, int, error) {
	captures := make([][]float32, 0, attempts)

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := e.sleep(ctx, interval); err != nil {
				return face.Descriptor{}, 0, err
			}
		}

		frame, err := src.NextFrame(ctx)
		if errors.Is(err, face.ErrSourceClosed) {
			break
		}
		if err != nil {
			return face.Descriptor{}, 0, fmt.Errorf("failed to read enrollment frame: %w", err)
		}

		detections, err := e.detector.Detect(ctx, frame)
		if err != nil {
			return face.Descriptor{}, 0, fmt.Errorf("failed to detect face: %w", err)
		}
		det, ok := largest(detections)
		if !ok {
			slog.Debug("Enrollment attempt without face", "employee_id", employeeID, "attempt", i+1)
			continue
		}
		if !wellFormed(det.Embedding, e.dim) {
			slog.Warn("Enrollment capture has unexpected embedding", "employee_id", employeeID, "length", len(det.Embedding))
			continue
		}
		captures = append(captures, det.Embedding)
	}

	if len(captures) < e.cfg.MinCaptures {
		metrics.Enrollments.WithLabelValues("insufficient").Inc()
		return face.Descriptor{}, len(captures), face.ErrNotEnoughCaptures
	}

	saved, err := e.registry.Save(ctx, face.Descriptor{
		CompanyID:  companyID,
		EmployeeID: employeeID,
		Embedding:  Mean(captures),
	})
	if err != nil {
		metrics.Enrollments.WithLabelValues("error").Inc()
		return face.Descriptor{}, len(captures), err
	}

	metrics.Enrollments.WithLabelValues("ok").Inc()
	slog.Info("Face enrolled", "company_id", companyID, "employee_id", employeeID, "captures", len(captures))
	return saved, len(captures), nil
}
