package visitor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/storage"
	facesvc "github.com/cmlabs-hris/hris-face-attendance/internal/service/face"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	snapshotMaxWidth = 480
	snapshotQuality  = 80
	snapshotURLTTL   = 15 * time.Minute
	purgeBatchSize   = 500
)

type Config struct {
	// Sightings closer than DedupeDistance to the kiosk's previous sighting
	// within DedupeWindow are skipped.
	DedupeDistance float64
	DedupeWindow   time.Duration
}

func DefaultConfig() Config {
	return Config{
		DedupeDistance: 0.45,
		DedupeWindow:   30 * time.Second,
	}
}

var _ visitor.Service = (*VisitorServiceImpl)(nil)

type lastSighting struct {
	embedding []float32
	at        time.Time
}

type VisitorServiceImpl struct {
	visitor.CaptureRepository
	storage storage.FileStorage
	cfg     Config
	now     func() time.Time

	mu       sync.Mutex
	lastSeen map[string]lastSighting
}

func NewVisitorService(repo visitor.CaptureRepository, fileStorage storage.FileStorage, cfg Config) *VisitorServiceImpl {
	return &VisitorServiceImpl{
		CaptureRepository: repo,
		storage:           fileStorage,
		cfg:               cfg,
		now:               time.Now,
		lastSeen:          make(map[string]lastSighting),
	}
}

// Record implements visitor.Service.
func (s *VisitorServiceImpl) Record(ctx context.Context, sighting visitor.Sighting) (bool, error) {
	now := s.now()
	if s.repeatsLast(sighting.KioskID, sighting.Embedding, now) {
		return false, nil
	}

	id := uuid.New().String()
	key := fmt.Sprintf("visitors/%s/%s.jpg", sighting.CompanyID, id)

	snapshot, err := encodeSnapshot(sighting.Frame.Image)
	if err != nil {
		return false, err
	}
	if _, err := s.storage.Upload(ctx, bytes.NewReader(snapshot), key, "image/jpeg"); err != nil {
		return false, fmt.Errorf("failed to upload visitor snapshot: %w", err)
	}

	var kioskID *string
	if sighting.KioskID != "" {
		kioskID = &sighting.KioskID
	}
	capturedAt := sighting.Frame.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = now
	}

	_, err = s.CaptureRepository.Create(ctx, visitor.Capture{
		ID:          id,
		CompanyID:   sighting.CompanyID,
		KioskID:     kioskID,
		Descriptor:  sighting.Embedding,
		SnapshotKey: key,
		CapturedAt:  capturedAt.UTC(),
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			slog.Warn("Failed to remove orphaned visitor snapshot", "key", key, "error", delErr)
		}
		return false, fmt.Errorf("failed to create visitor capture: %w", err)
	}

	s.remember(sighting.KioskID, sighting.Embedding, now)
	metrics.VisitorCaptures.Inc()
	slog.Info("Visitor captured", "company_id", sighting.CompanyID, "kiosk_id", sighting.KioskID, "capture_id", id)
	return true, nil
}

// repeatsLast reports whether the sighting repeats the kiosk's last recorded
// one. A repeat slides the window forward.
func (s *VisitorServiceImpl) repeatsLast(kioskID string, embedding []float32, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.lastSeen[kioskID]
	if !ok || now.Sub(prev.at) >= s.cfg.DedupeWindow || len(prev.embedding) != len(embedding) {
		return false
	}
	if facesvc.EuclideanDistance(prev.embedding, embedding) >= s.cfg.DedupeDistance {
		return false
	}
	s.lastSeen[kioskID] = lastSighting{embedding: embedding, at: now}
	return true
}

// remember makes a stored sighting the kiosk's dedupe reference.
func (s *VisitorServiceImpl) remember(kioskID string, embedding []float32, now time.Time) {
	s.mu.Lock()
	s.lastSeen[kioskID] = lastSighting{embedding: embedding, at: now}
	s.mu.Unlock()
}

// Forget drops the dedupe reference of a kiosk, e.g. when its session ends.
func (s *VisitorServiceImpl) Forget(kioskID string) {
	s.mu.Lock()
	delete(s.lastSeen, kioskID)
	s.mu.Unlock()
}

// List implements visitor.Service.
func (s *VisitorServiceImpl) List(ctx context.Context, filter visitor.CaptureFilter) (visitor.ListCaptureResponse, error) {
	if err := filter.Validate(); err != nil {
		return visitor.ListCaptureResponse{}, err
	}

	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return visitor.ListCaptureResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return visitor.ListCaptureResponse{}, fmt.Errorf("company_id claim is missing or invalid")
	}

	captures, total, err := s.CaptureRepository.List(ctx, filter, companyID)
	if err != nil {
		return visitor.ListCaptureResponse{}, fmt.Errorf("failed to list visitor captures: %w", err)
	}

	responses := make([]visitor.CaptureResponse, 0, len(captures))
	for _, c := range captures {
		url, err := s.storage.GetURL(ctx, c.SnapshotKey, snapshotURLTTL)
		if err != nil {
			slog.Warn("Failed to sign visitor snapshot URL", "key", c.SnapshotKey, "error", err)
		}
		responses = append(responses, visitor.CaptureResponse{
			ID:          c.ID,
			KioskID:     c.KioskID,
			SnapshotURL: url,
			CapturedAt:  c.CapturedAt.Format(time.RFC3339),
		})
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return visitor.ListCaptureResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Captures:   responses,
	}, nil
}

// Purge implements visitor.Service.
func (s *VisitorServiceImpl) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	for {
		batch, err := s.CaptureRepository.ListBefore(ctx, cutoff, purgeBatchSize)
		if err != nil {
			return purged, fmt.Errorf("failed to list expired visitor captures: %w", err)
		}
		if len(batch) == 0 {
			return purged, nil
		}

		ids := make([]string, 0, len(batch))
		for _, c := range batch {
			if err := s.storage.Delete(ctx, c.SnapshotKey); err != nil {
				slog.Warn("Failed to delete visitor snapshot", "key", c.SnapshotKey, "error", err)
			}
			ids = append(ids, c.ID)
		}

		deleted, err := s.CaptureRepository.DeleteByIDs(ctx, ids)
		if err != nil {
			return purged, fmt.Errorf("failed to delete expired visitor captures: %w", err)
		}
		purged += deleted

		if len(batch) < purgeBatchSize || deleted == 0 {
			return purged, nil
		}
	}
}

func encodeSnapshot(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("visitor sighting has no frame")
	}

	b := img.Bounds()
	if b.Dx() > snapshotMaxWidth {
		h := b.Dy() * snapshotMaxWidth / b.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, snapshotMaxWidth, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		img = dst
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: snapshotQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode visitor snapshot: %w", err)
	}
	return buf.Bytes(), nil
}
