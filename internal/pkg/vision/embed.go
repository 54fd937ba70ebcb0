package vision

import (
	"fmt"
	"image"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	embedSize = 112
	// EmbeddingDim is the length of the SFace descriptor.
	EmbeddingDim = 128
)

// embedder runs the SFace recognition model on 112x112 aligned crops.
type embedder struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func newEmbedder(modelPath string, opts *ort.SessionOptions) (*embedder, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, embedSize, embedSize))
	if err != nil {
		return nil, fmt.Errorf("create embedder input: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, EmbeddingDim))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("create embedder output: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"data"}, []string{"fc1"},
		[]ort.Value{input}, []ort.Value{output},
		opts,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create embedder session: %w", err)
	}
	return &embedder{session: session, input: input, output: output}, nil
}

// extract aligns the face on its five keypoints and returns the
// L2-normalized embedding.
func (e *embedder) extract(img image.Image, b box) ([]float32, error) {
	var src [5][2]float64
	for i, kp := range b.kps {
		src[i] = [2]float64{float64(kp[0]), float64(kp[1])}
	}
	aligned := warp(img, similarity(src, arcfaceTemplate), embedSize, embedSize)
	toCHW(aligned, rawPixels, e.input.GetData())

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("run embedding: %w", err)
	}

	embedding := make([]float32, EmbeddingDim)
	copy(embedding, e.output.GetData())
	l2Normalize(embedding)
	return embedding, nil
}

func (e *embedder) close() {
	if e.session != nil {
		e.session.Destroy()
	}
	destroyTensors(e.input, e.output)
}
