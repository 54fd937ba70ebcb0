package vision

import (
	"fmt"
	"image"
	"math"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	landmarkSize = 192
	// 1k3d68 emits 1103 3-D points; the 68 iBUG points are the tail.
	landmarkOutputs = 3309
	landmarkCropPad = 1.5
)

// Landmark indices used to build the head axes.
const (
	lmChin          = 8
	lmNoseBridge    = 27
	lmRightEyeOuter = 36
	lmLeftEyeOuter  = 45
)

type point3 [3]float64

type landmarker struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func newLandmarker(modelPath string, opts *ort.SessionOptions) (*landmarker, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, landmarkSize, landmarkSize))
	if err != nil {
		return nil, fmt.Errorf("create landmark input: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, landmarkOutputs))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create landmark output: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"data"}, []string{"fc1"},
		[]ort.Value{input}, []ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create landmark session: %w", err)
	}
	return &landmarker{session: session, input: input, output: output}, nil
}

// predict returns the 68 3-D landmarks of the face inside b, in img coordinates.
func (l *landmarker) predict(img image.Image, b box) ([face.LandmarkCount]point3, error) {
	m, s := cropTransform(b.rect, landmarkSize, landmarkCropPad)
	toCHW(warp(img, m, landmarkSize, landmarkSize), rawPixels, l.input.GetData())

	if err := l.session.Run(); err != nil {
		return [face.LandmarkCount]point3{}, fmt.Errorf("run landmarks: %w", err)
	}
	return decodeLandmarks(l.output.GetData(), m[2], m[5], s), nil
}

func (l *landmarker) close() {
	if l.session != nil {
		l.session.Destroy()
	}
	destroyTensors(l.input, l.output)
}

// decodeLandmarks maps the model output from the [-1, 1] crop space back to
// image pixels. tx, ty and s describe the crop transform.
func decodeLandmarks(raw []float32, tx, ty, s float64) [face.LandmarkCount]point3 {
	var pts [face.LandmarkCount]point3
	offset := len(raw) - face.LandmarkCount*3
	if offset < 0 {
		return pts
	}
	half := float64(landmarkSize / 2)
	for i := 0; i < face.LandmarkCount; i++ {
		v := raw[offset+i*3:]
		cx := (float64(v[0]) + 1) * half
		cy := (float64(v[1]) + 1) * half
		pts[i] = point3{(cx - tx) / s, (cy - ty) / s, float64(v[2]) * half / s}
	}
	return pts
}

// poseFromLandmarks builds an orthonormal head frame from the eye corners and
// the nose bridge to chin line. Columns are the head x, y and z axes in
// image space with y pointing down, so a frontal face gives the identity.
func poseFromLandmarks(pts [face.LandmarkCount]point3) face.HeadPose {
	x := normalize3(sub3(pts[lmLeftEyeOuter], pts[lmRightEyeOuter]))
	y := sub3(pts[lmChin], pts[lmNoseBridge])
	y = normalize3(sub3(y, scale3(x, dot3(y, x))))
	z := cross3(x, y)

	var pose face.HeadPose
	for i := 0; i < 3; i++ {
		pose.Rotation[i][0] = x[i]
		pose.Rotation[i][1] = y[i]
		pose.Rotation[i][2] = z[i]
	}
	return pose
}

// flatten drops the depth coordinate.
func flatten(pts [face.LandmarkCount]point3) [face.LandmarkCount]face.Point {
	var out [face.LandmarkCount]face.Point
	for i, p := range pts {
		out[i] = face.Point{X: p[0], Y: p[1]}
	}
	return out
}

func sub3(a, b point3) point3 { return point3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func scale3(a point3, k float64) point3 { return point3{a[0] * k, a[1] * k, a[2] * k} }

func dot3(a, b point3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross3(a, b point3) point3 {
	return point3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize3(a point3) point3 {
	n := math.Sqrt(dot3(a, a))
	if n == 0 {
		return a
	}
	return scale3(a, 1/n)
}
