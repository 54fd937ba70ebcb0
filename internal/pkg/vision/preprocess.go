package vision

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// normalization is applied per channel as (pixel - mean) / std.
type normalization struct {
	mean float32
	std  float32
}

var (
	detectorNorm = normalization{mean: 127.5, std: 128}
	rawPixels    = normalization{mean: 0, std: 1}
)

// letterbox scales img into a size x size canvas anchored at the top left,
// keeping the aspect ratio. It returns the canvas and the applied scale.
func letterbox(img image.Image, size int) (*image.RGBA, float64) {
	b := img.Bounds()
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, image.Rect(0, 0, w, h), img, b, draw.Src, nil)
	return dst, scale
}

// warp renders img through the affine map m (source to destination coordinates)
// into a w x h canvas.
func warp(img image.Image, m f64.Aff3, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Transform(dst, m, img, img.Bounds(), draw.Src, nil)
	return dst
}

// toCHW writes the RGB planes of img into dst, which must hold 3*W*H values.
func toCHW(img *image.RGBA, n normalization, dst []float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			i := y*w + x
			dst[i] = (float32(px[0]) - n.mean) / n.std
			dst[plane+i] = (float32(px[1]) - n.mean) / n.std
			dst[2*plane+i] = (float32(px[2]) - n.mean) / n.std
		}
	}
}

// l2Normalize scales v to unit length in place.
func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}
