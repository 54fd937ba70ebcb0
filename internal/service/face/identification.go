package face

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
)

// Engine runs one identification attempt: detect, geometry guards, liveness, then match.
// It holds no per-call state; descriptors are passed in by the caller.
type Engine struct {
	detector face.Detector
	liveness *LivenessAnalyzer
	cfg      face.Config
}

func NewEngine(detector face.Detector, cfg face.Config) *Engine {
	return &Engine{
		detector: detector,
		liveness: NewLivenessAnalyzer(detector, cfg.Liveness),
		cfg:      cfg,
	}
}

// Identify matches the face in front of the camera against every descriptor.
// Rejections are reported as outcomes; errors mean the source or detector failed.
func (e *Engine) Identify(ctx context.Context, src face.FrameSource, descriptors []face.Descriptor) (face.Outcome, error) {
	frame, det, outcome, err := e.screen(ctx, src)
	if err != nil || outcome != nil {
		return e.record(outcome), err
	}

	employeeID, distance := nearest(det.Embedding, descriptors)
	if employeeID != "" && distance <= e.cfg.MatchThreshold {
		return e.record(face.Verified{EmployeeID: employeeID, Distance: distance, Frame: frame}), nil
	}
	return e.record(face.Unverified{Embedding: det.Embedding, Frame: frame, Distance: distance}), nil
}

// Verify is the 1:1 variant used for operator confirmed check-ins.
func (e *Engine) Verify(ctx context.Context, src face.FrameSource, descriptor face.Descriptor) (face.Outcome, error) {
	frame, det, outcome, err := e.screen(ctx, src)
	if err != nil || outcome != nil {
		return e.record(outcome), err
	}

	distance := math.Inf(1)
	if len(det.Embedding) == len(descriptor.Embedding) {
		distance = EuclideanDistance(det.Embedding, descriptor.Embedding)
	}
	if distance <= e.cfg.MatchThreshold {
		return e.record(face.Verified{EmployeeID: descriptor.EmployeeID, Distance: distance, Frame: frame}), nil
	}
	return e.record(face.Unverified{Embedding: det.Embedding, Frame: frame, Distance: distance}), nil
}

// screen runs every gate that precedes matching.
func (e *Engine) screen(ctx context.Context, src face.FrameSource) (face.Frame, face.Detection, face.Outcome, error) {
	frame, err := src.NextFrame(ctx)
	if err != nil {
		return face.Frame{}, face.Detection{}, nil, fmt.Errorf("failed to read frame: %w", err)
	}

	start := time.Now()
	detections, err := e.detector.Detect(ctx, frame)
	if err != nil {
		return face.Frame{}, face.Detection{}, nil, fmt.Errorf("failed to detect faces: %w", err)
	}
	metrics.StageDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	det, outcome := checkGeometry(frame, detections, e.cfg)
	if outcome != nil {
		return frame, face.Detection{}, outcome, nil
	}

	start = time.Now()
	verdict, err := e.liveness.Analyze(ctx, src)
	if err != nil {
		return face.Frame{}, face.Detection{}, nil, err
	}
	metrics.StageDuration.WithLabelValues("liveness").Observe(time.Since(start).Seconds())

	if !verdict.Live {
		return frame, face.Detection{}, face.SpoofRejected{Cause: verdict.Cause}, nil
	}
	return frame, det, nil, nil
}

func (e *Engine) record(outcome face.Outcome) face.Outcome {
	if outcome != nil {
		metrics.IdentificationOutcomes.WithLabelValues(string(outcome.Reason())).Inc()
	}
	return outcome
}

// nearest returns the closest descriptor by Euclidean distance, scanning all of them.
// Descriptors of a different length are skipped. With no candidates it returns ("", +Inf).
func nearest(probe []float32, descriptors []face.Descriptor) (string, float64) {
	bestID := ""
	bestDist := math.Inf(1)
	for _, d := range descriptors {
		if len(d.Embedding) != len(probe) {
			continue
		}
		dist := EuclideanDistance(probe, d.Embedding)
		if dist < bestDist {
			bestID, bestDist = d.EmployeeID, dist
		}
	}
	return bestID, bestDist
}
