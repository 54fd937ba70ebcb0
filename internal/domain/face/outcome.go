package face

import "math"

// ReasonCode is the stable code reported to kiosks and stored in logs.
type ReasonCode string

const (
	ReasonNoFace         ReasonCode = "NO_FACE_DETECTED"
	ReasonTooClose       ReasonCode = "TOO_CLOSE"
	ReasonTooFar         ReasonCode = "TOO_FAR"
	ReasonMultipleFaces  ReasonCode = "MULTIPLE_FACES_DETECTED"
	ReasonNoBlink        ReasonCode = "NO_BLINK_DETECTED"
	ReasonNoHeadMovement ReasonCode = "NO_HEAD_MOVEMENT"
	ReasonUnverified     ReasonCode = "UNVERIFIED_FACE"
	ReasonVerified       ReasonCode = "VERIFIED"
)

// Outcome is the result of one identification attempt. The set of
// implementations is closed; switch on the concrete type.
type Outcome interface {
	Reason() ReasonCode
	isOutcome()
}

type NoFaceDetected struct{}

type TooClose struct {
	WidthRatio float64
}

type TooFar struct {
	WidthRatio float64
}

type MultipleFaces struct {
	Count int
}

// SpoofRejected means the liveness window failed. Cause is either
// ReasonNoBlink or ReasonNoHeadMovement.
type SpoofRejected struct {
	Cause ReasonCode
}

// Unverified carries the probe so callers can record a visitor sighting.
type Unverified struct {
	Embedding []float32
	Frame     Frame
	// Distance to the nearest enrolled descriptor, +Inf when none are enrolled.
	Distance float64
}

type Verified struct {
	EmployeeID string
	Distance   float64
	Frame      Frame
}

func (NoFaceDetected) Reason() ReasonCode  { return ReasonNoFace }
func (TooClose) Reason() ReasonCode        { return ReasonTooClose }
func (TooFar) Reason() ReasonCode          { return ReasonTooFar }
func (MultipleFaces) Reason() ReasonCode   { return ReasonMultipleFaces }
func (s SpoofRejected) Reason() ReasonCode { return s.Cause }
func (Unverified) Reason() ReasonCode      { return ReasonUnverified }
func (Verified) Reason() ReasonCode        { return ReasonVerified }

func (NoFaceDetected) isOutcome() {}
func (TooClose) isOutcome()       {}
func (TooFar) isOutcome()         {}
func (MultipleFaces) isOutcome()  {}
func (SpoofRejected) isOutcome()  {}
func (Unverified) isOutcome()     {}
func (Verified) isOutcome()       {}

// Confidence maps the match distance to a 0-100 score.
func (v Verified) Confidence() float64 {
	return math.Max(0, (1-v.Distance)*100)
}
