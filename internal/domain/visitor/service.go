package visitor

import (
	"context"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
)

// Sighting is what a kiosk session hands over on an unverified face.
type Sighting struct {
	CompanyID string
	KioskID   string
	Embedding []float32
	Frame     face.Frame
}

type Service interface {
	// Record stores the sighting unless the same visitor was seen moments ago.
	// It reports whether a capture was written.
	Record(ctx context.Context, sighting Sighting) (bool, error)

	List(ctx context.Context, filter CaptureFilter) (ListCaptureResponse, error)

	// Purge removes captures and their snapshots older than cutoff
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
