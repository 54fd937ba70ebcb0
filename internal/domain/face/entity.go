package face

import (
	"image"
	"math"
	"time"
)

// LandmarkCount is the size of the iBUG 68-point layout produced by the landmarker.
const LandmarkCount = 68

type Point struct {
	X float64
	Y float64
}

// Dist returns the Euclidean distance between two landmarks.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// HeadPose holds the head rotation matrix estimated from the 3D landmarks.
type HeadPose struct {
	Rotation [3][3]float64
}

// Yaw is the left/right head rotation in radians.
func (p HeadPose) Yaw() float64 {
	return math.Atan2(p.Rotation[0][2], p.Rotation[2][2])
}

// YawPose builds a pure yaw rotation. Mostly useful for fakes and tests.
func YawPose(yaw float64) HeadPose {
	c, s := math.Cos(yaw), math.Sin(yaw)
	return HeadPose{Rotation: [3][3]float64{
		{c, 0, s},
		{0, 1, 0},
		{-s, 0, c},
	}}
}

type Detection struct {
	BBox      image.Rectangle
	Score     float32
	Landmarks [LandmarkCount]Point
	Pose      HeadPose
	Embedding []float32
}

// WidthRatio is the face width relative to the frame width.
func (d Detection) WidthRatio(frameWidth int) float64 {
	if frameWidth <= 0 {
		return 0
	}
	return float64(d.BBox.Dx()) / float64(frameWidth)
}

type Frame struct {
	Image      image.Image
	CapturedAt time.Time
}

func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Bounds().Dx()
}

// Descriptor is the enrolled face vector of one employee inside one company.
type Descriptor struct {
	CompanyID  string
	EmployeeID string
	Embedding  []float32
	UpdatedAt  time.Time
}
