package vision

import (
	"fmt"
	"image"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	detectorSize     = 640
	anchorsPerStride = 2
	nmsThreshold     = 0.4
)

var strides = []int{8, 16, 32}

// box is one SCRFD detection in source image pixels.
type box struct {
	rect  [4]float32 // x1, y1, x2, y2
	score float32
	kps   [5][2]float32
}

func (b box) area() float32 {
	return (b.rect[2] - b.rect[0]) * (b.rect[3] - b.rect[1])
}

// scrfd wraps the det_10g session. Tensors are bound once, so Run is not
// safe for concurrent use.
type scrfd struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32]
	outputs   []*ort.Tensor[float32]
	threshold float32
}

func newSCRFD(modelPath string, threshold float32, opts *ort.SessionOptions) (*scrfd, error) {
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, detectorSize, detectorSize))
	if err != nil {
		return nil, fmt.Errorf("create detector input: %w", err)
	}

	// Output order: scores, boxes, keypoints; each for strides 8, 16, 32.
	outs := []struct {
		name  string
		shape ort.Shape
	}{
		{"448", ort.NewShape(12800, 1)},
		{"471", ort.NewShape(3200, 1)},
		{"494", ort.NewShape(800, 1)},
		{"451", ort.NewShape(12800, 4)},
		{"474", ort.NewShape(3200, 4)},
		{"497", ort.NewShape(800, 4)},
		{"454", ort.NewShape(12800, 10)},
		{"477", ort.NewShape(3200, 10)},
		{"500", ort.NewShape(800, 10)},
	}

	names := make([]string, len(outs))
	outputs := make([]*ort.Tensor[float32], len(outs))
	values := make([]ort.Value, len(outs))
	for i, o := range outs {
		t, err := ort.NewEmptyTensor[float32](o.shape)
		if err != nil {
			destroyTensors(outputs[:i]...)
			input.Destroy()
			return nil, fmt.Errorf("create detector output %s: %w", o.name, err)
		}
		names[i] = o.name
		outputs[i] = t
		values[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"}, names,
		[]ort.Value{input}, values,
		opts,
	)
	if err != nil {
		destroyTensors(outputs...)
		input.Destroy()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &scrfd{session: session, input: input, outputs: outputs, threshold: threshold}, nil
}

// detect runs the model on img and returns boxes in img coordinates.
func (d *scrfd) detect(img image.Image) ([]box, error) {
	canvas, scale := letterbox(img, detectorSize)
	toCHW(canvas, detectorNorm, d.input.GetData())

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	outputs := make([][]float32, len(d.outputs))
	for i, t := range d.outputs {
		outputs[i] = t.GetData()
	}

	b := img.Bounds()
	boxes := decodeSCRFD(outputs, d.threshold, scale, float32(b.Dx()), float32(b.Dy()))
	for i := range boxes {
		boxes[i].translate(float32(b.Min.X), float32(b.Min.Y))
	}
	return nms(boxes, nmsThreshold), nil
}

func (d *scrfd) close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.input != nil {
		d.input.Destroy()
	}
	destroyTensors(d.outputs...)
}

// decodeSCRFD turns the raw anchor outputs into boxes. outputs holds the
// score, box and keypoint tensors in stride order; scale is the letterbox
// factor and (w, h) the source size used for clamping.
func decodeSCRFD(outputs [][]float32, threshold float32, scale float64, w, h float32) []box {
	var boxes []box
	inv := float32(1 / scale)

	for si, stride := range strides {
		scores := outputs[si]
		deltas := outputs[si+len(strides)]
		kps := outputs[si+2*len(strides)]
		st := float32(stride)
		fm := detectorSize / stride

		idx := 0
		for cy := 0; cy < fm; cy++ {
			for cx := 0; cx < fm; cx++ {
				for a := 0; a < anchorsPerStride; a++ {
					if idx >= len(scores) {
						break
					}
					score := scores[idx]
					if score >= threshold {
						ax, ay := float32(cx)*st, float32(cy)*st

						bx := box{score: score}
						bx.rect = [4]float32{
							clampF((ax-deltas[idx*4+0]*st)*inv, 0, w),
							clampF((ay-deltas[idx*4+1]*st)*inv, 0, h),
							clampF((ax+deltas[idx*4+2]*st)*inv, 0, w),
							clampF((ay+deltas[idx*4+3]*st)*inv, 0, h),
						}
						for k := 0; k < 5; k++ {
							bx.kps[k][0] = (ax + kps[idx*10+k*2]*st) * inv
							bx.kps[k][1] = (ay + kps[idx*10+k*2+1]*st) * inv
						}
						boxes = append(boxes, bx)
					}
					idx++
				}
			}
		}
	}
	return boxes
}

func (b *box) translate(dx, dy float32) {
	b.rect[0] += dx
	b.rect[1] += dy
	b.rect[2] += dx
	b.rect[3] += dy
	for k := range b.kps {
		b.kps[k][0] += dx
		b.kps[k][1] += dy
	}
}

// nms keeps the highest scoring box of every overlapping group.
func nms(boxes []box, iouThreshold float32) []box {
	if len(boxes) == 0 {
		return boxes
	}

	sort.Slice(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	keep := make([]bool, len(boxes))
	for i := range keep {
		keep[i] = true
	}
	for i := 0; i < len(boxes); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(boxes); j++ {
			if keep[j] && iou(boxes[i].rect, boxes[j].rect) > iouThreshold {
				keep[j] = false
			}
		}
	}

	result := make([]box, 0, len(boxes))
	for i, b := range boxes {
		if keep[i] {
			result = append(result, b)
		}
	}
	return result
}

func iou(a, b [4]float32) float32 {
	x1 := float32(math.Max(float64(a[0]), float64(b[0])))
	y1 := float32(math.Max(float64(a[1]), float64(b[1])))
	x2 := float32(math.Min(float64(a[2]), float64(b[2])))
	y2 := float32(math.Min(float64(a[3]), float64(b[3])))

	intersection := float32(math.Max(0, float64(x2-x1))) * float32(math.Max(0, float64(y2-y1)))
	union := (a[2]-a[0])*(a[3]-a[1]) + (b[2]-b[0])*(b[3]-b[1]) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func clampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func destroyTensors(ts ...*ort.Tensor[float32]) {
	for _, t := range ts {
		if t != nil {
			t.Destroy()
		}
	}
}
