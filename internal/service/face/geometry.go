package face

import (
	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
)

// checkGeometry applies the single-face and distance-to-camera guards.
// It returns the detection to continue with, or the rejecting outcome.
func checkGeometry(frame face.Frame, detections []face.Detection, cfg face.Config) (face.Detection, face.Outcome) {
	switch {
	case len(detections) == 0:
		return face.Detection{}, face.NoFaceDetected{}
	case len(detections) > 1:
		return face.Detection{}, face.MultipleFaces{Count: len(detections)}
	}

	det := detections[0]
	ratio := det.WidthRatio(frame.Width())
	if ratio > cfg.MaxFaceWidthRatio {
		return face.Detection{}, face.TooClose{WidthRatio: ratio}
	}
	if ratio < cfg.MinFaceWidthRatio {
		return face.Detection{}, face.TooFar{WidthRatio: ratio}
	}
	return det, nil
}

// largest picks the detection with the widest box; used where extra faces are tolerated.
func largest(detections []face.Detection) (face.Detection, bool) {
	if len(detections) == 0 {
		return face.Detection{}, false
	}
	best := detections[0]
	for _, d := range detections[1:] {
		if d.BBox.Dx()*d.BBox.Dy() > best.BBox.Dx()*best.BBox.Dy() {
			best = d
		}
	}
	return best, true
}
