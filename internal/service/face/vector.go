package face

import (
	"math"
)

// EuclideanDistance returns the L2 distance between two vectors of equal length.
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Mean returns the component-wise mean. All vectors must have the same length.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	acc := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for i, x := range v {
			acc[i] += float64(x)
		}
	}
	out := make([]float32, len(acc))
	n := float64(len(vectors))
	for i, s := range acc {
		out[i] = float32(s / n)
	}
	return out
}

// wellFormed reports whether v has the expected length and only finite components.
func wellFormed(v []float32, dim int) bool {
	if len(v) != dim {
		return false
	}
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
