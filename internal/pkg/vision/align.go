package vision

import "golang.org/x/image/math/f64"

// arcfaceTemplate is the canonical position of the five SCRFD keypoints
// (eyes, nose tip, mouth corners) inside a 112x112 aligned crop.
var arcfaceTemplate = [5][2]float64{
	{38.2946, 51.6963},
	{73.5318, 51.5014},
	{56.0252, 71.7366},
	{41.5493, 92.3655},
	{70.7299, 92.2041},
}

// similarity estimates the least squares rotation, uniform scale and
// translation that maps src onto dst. The result maps source to destination.
func similarity(src, dst [5][2]float64) f64.Aff3 {
	var sx, sy, dx, dy float64
	for i := range src {
		sx += src[i][0]
		sy += src[i][1]
		dx += dst[i][0]
		dy += dst[i][1]
	}
	n := float64(len(src))
	sx, sy, dx, dy = sx/n, sy/n, dx/n, dy/n

	var num, cross, den float64
	for i := range src {
		px, py := src[i][0]-sx, src[i][1]-sy
		qx, qy := dst[i][0]-dx, dst[i][1]-dy
		num += px*qx + py*qy
		cross += px*qy - py*qx
		den += px*px + py*py
	}
	if den == 0 {
		return f64.Aff3{1, 0, dx - sx, 0, 1, dy - sy}
	}
	a, b := num/den, cross/den

	return f64.Aff3{
		a, -b, dx - (a*sx - b*sy),
		b, a, dy - (b*sx + a*sy),
	}
}

// cropTransform centers a square of side scaleBox*max(w,h) around box on a
// size x size canvas. It returns the map and its uniform scale.
func cropTransform(box [4]float32, size int, scaleBox float64) (f64.Aff3, float64) {
	w := float64(box[2] - box[0])
	h := float64(box[3] - box[1])
	cx := float64(box[0]+box[2]) / 2
	cy := float64(box[1]+box[3]) / 2

	side := max(w, h) * scaleBox
	if side <= 0 {
		side = 1
	}
	s := float64(size) / side
	half := float64(size) / 2
	return f64.Aff3{s, 0, half - cx*s, 0, s, half - cy*s}, s
}

// applyAff maps a point through m.
func applyAff(m f64.Aff3, x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}
