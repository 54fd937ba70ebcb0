package face

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
)

// Eye landmark ranges in the 68-point layout, ordered p1..p6 around the eye.
var (
	rightEye = [6]int{36, 37, 38, 39, 40, 41}
	leftEye  = [6]int{42, 43, 44, 45, 46, 47}
)

// LivenessSample is one observation inside a liveness window.
type LivenessSample struct {
	EAR float64
	Yaw float64
	At  time.Time
}

// LivenessVerdict summarizes a window.
type LivenessVerdict struct {
	Live        bool
	Cause       face.ReasonCode
	Samples     int
	Blinked     bool
	YawMovement float64
}

// EyeAspectRatio computes (|p2-p6| + |p3-p5|) / (2|p1-p4|) for one eye.
func EyeAspectRatio(eye [6]face.Point) float64 {
	horizontal := eye[0].Dist(eye[3])
	if horizontal == 0 {
		return 0
	}
	vertical := eye[1].Dist(eye[5]) + eye[2].Dist(eye[4])
	return vertical / (2 * horizontal)
}

// AverageEAR is the mean eye aspect ratio of both eyes.
func AverageEAR(landmarks [face.LandmarkCount]face.Point) float64 {
	var r, l [6]face.Point
	for i := 0; i < 6; i++ {
		r[i] = landmarks[rightEye[i]]
		l[i] = landmarks[leftEye[i]]
	}
	return (EyeAspectRatio(r) + EyeAspectRatio(l)) / 2
}

// EvaluateLiveness decides a window. A blink is an open eye (EAR above EAROpen)
// followed later by a closed one (EAR below EARClosed). Head movement is the
// summed absolute yaw change between consecutive samples.
func EvaluateLiveness(samples []LivenessSample, cfg face.LivenessConfig) LivenessVerdict {
	v := LivenessVerdict{Samples: len(samples)}

	seenOpen := false
	for i, s := range samples {
		if s.EAR > cfg.EAROpen {
			seenOpen = true
		} else if seenOpen && s.EAR < cfg.EARClosed {
			v.Blinked = true
		}
		if i > 0 {
			v.YawMovement += math.Abs(s.Yaw - samples[i-1].Yaw)
		}
	}

	switch {
	case !v.Blinked:
		v.Cause = face.ReasonNoBlink
	case v.YawMovement <= cfg.MinYawMovement:
		v.Cause = face.ReasonNoHeadMovement
	default:
		v.Live = true
	}
	return v
}

// LivenessAnalyzer samples a frame source for one window and evaluates it.
type LivenessAnalyzer struct {
	detector face.Detector
	cfg      face.LivenessConfig
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewLivenessAnalyzer(detector face.Detector, cfg face.LivenessConfig) *LivenessAnalyzer {
	return &LivenessAnalyzer{
		detector: detector,
		cfg:      cfg,
		sleep:    sleepContext,
	}
}

// Analyze blocks for Iterations*Interval while it collects samples.
// Frames without a face contribute nothing.
func (l *LivenessAnalyzer) Analyze(ctx context.Context, src face.FrameSource) (LivenessVerdict, error) {
	samples := make([]LivenessSample, 0, l.cfg.Iterations)

	for i := 0; i < l.cfg.Iterations; i++ {
		if i > 0 {
			if err := l.sleep(ctx, l.cfg.Interval); err != nil {
				return LivenessVerdict{}, err
			}
		}

		frame, err := src.NextFrame(ctx)
		if err != nil {
			return LivenessVerdict{}, fmt.Errorf("failed to read liveness frame: %w", err)
		}

		detections, err := l.detector.Detect(ctx, frame)
		if err != nil {
			return LivenessVerdict{}, fmt.Errorf("failed to detect face during liveness: %w", err)
		}

		det, ok := largest(detections)
		if !ok {
			continue
		}
		samples = append(samples, LivenessSample{
			EAR: AverageEAR(det.Landmarks),
			Yaw: det.Pose.Yaw(),
			At:  frame.CapturedAt,
		})
	}

	return EvaluateLiveness(samples, l.cfg), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
