package vision

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
)

// Recognizer is the ONNX Runtime face.Detector: SCRFD detection, 68-point
// 3-D landmarks with head pose, and SFace embeddings. Sessions share bound
// tensors, so calls are serialized.
type Recognizer struct {
	mu       sync.Mutex
	detector *scrfd
	marker   *landmarker
	embedder *embedder
}

var _ face.Detector = (*Recognizer)(nil)

// NewRecognizer loads the three models. InitRuntime must have been called.
func NewRecognizer(cfg Config) (*Recognizer, error) {
	opts, err := newSessionOptions(cfg.IntraOpThreads)
	if err != nil {
		return nil, err
	}
	defer opts.Destroy()

	detPath := filepath.Join(cfg.ModelsDir, cfg.DetectorModel)
	slog.Info("Loading detection model", "path", detPath)
	det, err := newSCRFD(detPath, cfg.DetectionThreshold, opts)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	lmkPath := filepath.Join(cfg.ModelsDir, cfg.LandmarkModel)
	slog.Info("Loading landmark model", "path", lmkPath)
	marker, err := newLandmarker(lmkPath, opts)
	if err != nil {
		det.close()
		return nil, fmt.Errorf("load landmarker: %w", err)
	}

	embPath := filepath.Join(cfg.ModelsDir, cfg.EmbedderModel)
	slog.Info("Loading embedding model", "path", embPath)
	emb, err := newEmbedder(embPath, opts)
	if err != nil {
		det.close()
		marker.close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("Face recognizer ready")
	return &Recognizer{detector: det, marker: marker, embedder: emb}, nil
}

// Detect implements face.Detector.
func (r *Recognizer) Detect(ctx context.Context, frame face.Frame) ([]face.Detection, error) {
	if frame.Image == nil || frame.Image.Bounds().Empty() {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	boxes, err := r.detector.detect(frame.Image)
	if err != nil {
		return nil, err
	}
	metrics.StageDuration.WithLabelValues("scrfd").Observe(time.Since(start).Seconds())

	detections := make([]face.Detection, 0, len(boxes))
	for _, b := range boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start = time.Now()
		pts, err := r.marker.predict(frame.Image, b)
		if err != nil {
			return nil, err
		}
		metrics.StageDuration.WithLabelValues("landmarks").Observe(time.Since(start).Seconds())

		start = time.Now()
		embedding, err := r.embedder.extract(frame.Image, b)
		if err != nil {
			return nil, err
		}
		metrics.StageDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		detections = append(detections, face.Detection{
			BBox:      toRect(b.rect),
			Score:     b.score,
			Landmarks: flatten(pts),
			Pose:      poseFromLandmarks(pts),
			Embedding: embedding,
		})
	}
	return detections, nil
}

// Close releases every ONNX session.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.detector != nil {
		r.detector.close()
	}
	if r.marker != nil {
		r.marker.close()
	}
	if r.embedder != nil {
		r.embedder.close()
	}
}

func toRect(r [4]float32) image.Rectangle {
	return image.Rect(int(r[0]), int(r[1]), int(r[2]+0.5), int(r[3]+0.5))
}
