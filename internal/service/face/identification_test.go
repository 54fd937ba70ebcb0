package face

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(script [][]face.Detection, cfg face.Config) *Engine {
	e := NewEngine(&scriptedDetector{script: script}, cfg)
	e.liveness.sleep = noSleep
	return e
}

func enrolled() []face.Descriptor {
	return []face.Descriptor{
		{CompanyID: testCompany, EmployeeID: "emp-a", Embedding: []float32{1, 0, 0, 0}},
		{CompanyID: testCompany, EmployeeID: "emp-b", Embedding: []float32{0, 1, 0, 0}},
	}
}

func TestEngine_Identify_Verified(t *testing.T) {
	cfg := testConfig()
	probe := []float32{0.1, 0.95, 0, 0}
	engine := newTestEngine(liveScript(cfg.Liveness, 200, probe), cfg)

	outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, enrolled())
	require.NoError(t, err)

	verified, ok := outcome.(face.Verified)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, "emp-b", verified.EmployeeID)
	assert.InDelta(t, EuclideanDistance(probe, []float32{0, 1, 0, 0}), verified.Distance, 1e-9)
	assert.Greater(t, verified.Confidence(), 80.0)
}

func TestEngine_Identify_NearestAboveThresholdIsUnverified(t *testing.T) {
	cfg := testConfig()
	probe := []float32{0, 0, 1, 0}
	engine := newTestEngine(liveScript(cfg.Liveness, 200, probe), cfg)

	outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, enrolled())
	require.NoError(t, err)

	unverified, ok := outcome.(face.Unverified)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, probe, unverified.Embedding)
	assert.InDelta(t, math.Sqrt2, unverified.Distance, 1e-9)
	assert.NotNil(t, unverified.Frame.Image)
}

func TestEngine_Identify_ThresholdBoundary(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, 0.45, cfg.MatchThreshold)
	probe := []float32{0, 0, 0, 0}

	// Distances are sorted; once a case is rejected every larger one must be too.
	tests := []struct {
		distance float32
		verified bool
	}{
		{0, true},
		{0.2, true},
		{0.45, true},
		{0.4500001, false},
		{1, false},
	}

	rejected := false
	for _, tt := range tests {
		t.Run(fmt.Sprintf("distance %v", tt.distance), func(t *testing.T) {
			engine := newTestEngine(liveScript(cfg.Liveness, 200, probe), cfg)
			stored := []face.Descriptor{{CompanyID: testCompany, EmployeeID: "emp-a", Embedding: []float32{tt.distance, 0, 0, 0}}}

			outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, stored)
			require.NoError(t, err)

			_, verified := outcome.(face.Verified)
			assert.Equal(t, tt.verified, verified, "got %T", outcome)
			if verified {
				assert.False(t, rejected, "accepted a larger distance after a rejection")
			} else {
				rejected = true
			}
		})
	}
}

func TestEngine_Identify_EmptyStoreIsUnverified(t *testing.T) {
	cfg := testConfig()
	engine := newTestEngine(liveScript(cfg.Liveness, 200, []float32{1, 0, 0, 0}), cfg)

	outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, nil)
	require.NoError(t, err)

	unverified, ok := outcome.(face.Unverified)
	require.True(t, ok, "got %T", outcome)
	assert.True(t, math.IsInf(unverified.Distance, 1))
}

func TestEngine_Identify_Rejections(t *testing.T) {
	cfg := testConfig()
	emb := []float32{1, 0, 0, 0}

	staticWindow := [][]face.Detection{{faceAt(200, 0.3, 0, emb)}}
	for i := 0; i < cfg.Liveness.Iterations; i++ {
		staticWindow = append(staticWindow, []face.Detection{faceAt(200, 0.3, 0, emb)})
	}

	tests := []struct {
		name   string
		script [][]face.Detection
		want   face.Outcome
	}{
		{"no face", [][]face.Detection{nil}, face.NoFaceDetected{}},
		{"multiple faces", [][]face.Detection{{faceAt(200, 0.3, 0, emb), faceAt(180, 0.3, 0, emb)}}, face.MultipleFaces{Count: 2}},
		{"photo held up", staticWindow, face.SpoofRejected{Cause: face.ReasonNoBlink}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(tt.script, cfg)
			outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, enrolled())
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)
		})
	}
}

func TestEngine_Identify_TooCloseSkipsLiveness(t *testing.T) {
	cfg := testConfig()
	detector := &scriptedDetector{script: [][]face.Detection{{faceAt(600, 0.3, 0, vec(4, 0, 1))}}}
	engine := NewEngine(detector, cfg)

	outcome, err := engine.Identify(context.Background(), blankSource{width: 640}, enrolled())
	require.NoError(t, err)
	assert.Equal(t, face.ReasonTooClose, outcome.Reason())
	assert.Equal(t, 1, detector.calls)
}

func TestEngine_Identify_SourceError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := newTestEngine(nil, testConfig())
	outcome, err := engine.Identify(ctx, blankSource{width: 640}, enrolled())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, outcome)
}

func TestEngine_Verify(t *testing.T) {
	cfg := testConfig()
	target := face.Descriptor{CompanyID: testCompany, EmployeeID: "emp-a", Embedding: []float32{1, 0, 0, 0}}

	engine := newTestEngine(liveScript(cfg.Liveness, 200, []float32{0.9, 0.1, 0, 0}), cfg)
	outcome, err := engine.Verify(context.Background(), blankSource{width: 640}, target)
	require.NoError(t, err)
	assert.Equal(t, face.ReasonVerified, outcome.Reason())

	engine = newTestEngine(liveScript(cfg.Liveness, 200, []float32{0, 1, 0, 0}), cfg)
	outcome, err = engine.Verify(context.Background(), blankSource{width: 640}, target)
	require.NoError(t, err)
	assert.Equal(t, face.ReasonUnverified, outcome.Reason())
}

func TestNearest(t *testing.T) {
	descriptors := append(enrolled(), face.Descriptor{EmployeeID: "short", Embedding: []float32{1}})

	id, dist := nearest([]float32{0.9, 0, 0, 0}, descriptors)
	assert.Equal(t, "emp-a", id)
	assert.InDelta(t, 0.1, dist, 1e-6)

	id, dist = nearest([]float32{1, 0, 0, 0}, nil)
	assert.Empty(t, id)
	assert.True(t, math.IsInf(dist, 1))
}
