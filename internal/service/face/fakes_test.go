package face

import (
	"context"
	"image"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
)

const testCompany = "0190a3c4-0000-7000-8000-000000000001"

// scriptedDetector returns script[i] on the i-th call and the last entry after that.
type scriptedDetector struct {
	mu     sync.Mutex
	script [][]face.Detection
	calls  int
}

func (d *scriptedDetector) Detect(_ context.Context, _ face.Frame) ([]face.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if len(d.script) == 0 {
		return nil, nil
	}
	if i >= len(d.script) {
		i = len(d.script) - 1
	}
	return d.script[i], nil
}

// blankSource serves blank frames of a fixed width forever.
type blankSource struct {
	width int
}

func (s blankSource) NextFrame(ctx context.Context) (face.Frame, error) {
	if err := ctx.Err(); err != nil {
		return face.Frame{}, err
	}
	return face.Frame{Image: image.NewGray(image.Rect(0, 0, s.width, s.width*3/4)), CapturedAt: time.Now()}, nil
}

type memoryRepo struct {
	mu   sync.Mutex
	rows map[string]face.Descriptor
	now  time.Time
}

func newMemoryRepo(rows ...face.Descriptor) *memoryRepo {
	r := &memoryRepo{rows: make(map[string]face.Descriptor), now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
	for _, d := range rows {
		r.rows[d.CompanyID+"/"+d.EmployeeID] = d
	}
	return r
}

func (r *memoryRepo) ListByCompany(_ context.Context, companyID string) ([]face.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []face.Descriptor
	for _, d := range r.rows {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (r *memoryRepo) GetByEmployee(_ context.Context, companyID, employeeID string) (face.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.rows[companyID+"/"+employeeID]
	if !ok {
		return face.Descriptor{}, face.ErrDescriptorNotFound
	}
	return d, nil
}

func (r *memoryRepo) Upsert(_ context.Context, d face.Descriptor) (face.Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.UpdatedAt = r.now
	r.rows[d.CompanyID+"/"+d.EmployeeID] = d
	return d, nil
}

func (r *memoryRepo) Delete(_ context.Context, companyID, employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := companyID + "/" + employeeID
	if _, ok := r.rows[key]; !ok {
		return face.ErrDescriptorNotFound
	}
	delete(r.rows, key)
	return nil
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// vec builds a dim-length vector with v at index i and zeros elsewhere.
func vec(dim, i int, v float32) []float32 {
	out := make([]float32, dim)
	out[i] = v
	return out
}

// eyeLandmarks returns landmarks whose eyes have the given aspect ratio.
func eyeLandmarks(ear float64) [face.LandmarkCount]face.Point {
	var lm [face.LandmarkCount]face.Point
	for _, start := range []int{36, 42} {
		// p1 and p4 are 2 apart; p2-p6 and p3-p5 are both 2*ear apart.
		lm[start+0] = face.Point{X: 0, Y: 0}
		lm[start+3] = face.Point{X: 2, Y: 0}
		lm[start+1] = face.Point{X: 0.5, Y: ear}
		lm[start+5] = face.Point{X: 0.5, Y: -ear}
		lm[start+2] = face.Point{X: 1.5, Y: ear}
		lm[start+4] = face.Point{X: 1.5, Y: -ear}
	}
	return lm
}

// faceAt builds one detection of the given box width with the given eye state, yaw and embedding.
func faceAt(width int, ear, yaw float64, emb []float32) face.Detection {
	return face.Detection{
		BBox:      image.Rect(10, 10, 10+width, 10+width),
		Score:     0.9,
		Landmarks: eyeLandmarks(ear),
		Pose:      face.YawPose(yaw),
		Embedding: emb,
	}
}

// liveScript is one screening detection followed by a liveness window that blinks and turns.
func liveScript(cfg face.LivenessConfig, width int, emb []float32) [][]face.Detection {
	script := [][]face.Detection{{faceAt(width, 0.3, 0, emb)}}
	for i := 0; i < cfg.Iterations; i++ {
		ear := 0.3
		if i == cfg.Iterations/2 {
			ear = 0.1
		}
		yaw := 0.0
		if i%2 == 1 {
			yaw = 0.1
		}
		script = append(script, []face.Detection{faceAt(width, ear, yaw, emb)})
	}
	return script
}

func testConfig() face.Config {
	cfg := face.DefaultConfig()
	cfg.EmbeddingDim = 4
	cfg.Liveness.Iterations = 6
	cfg.Liveness.Interval = 0
	cfg.Enrollment.Interval = 0
	return cfg
}
