package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"golang.org/x/image/draw"
)

// FeedSource is fed by a transport (the kiosk websocket) and read by a recognition loop.
// Only the newest frame is kept: a slow reader never sees stale frames.
type FeedSource struct {
	maxWidth int

	mu      sync.Mutex
	pending *face.Frame
	closed  bool
	ready   chan struct{}
}

// NewFeedSource creates a feed. Frames wider than maxWidth are scaled down; 0 disables scaling.
func NewFeedSource(maxWidth int) *FeedSource {
	return &FeedSource{
		maxWidth: maxWidth,
		ready:    make(chan struct{}, 1),
	}
}

// Push replaces any frame not yet consumed.
func (f *FeedSource) Push(frame face.Frame) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return face.ErrSourceClosed
	}
	frame.Image = downscale(frame.Image, f.maxWidth)
	f.pending = &frame
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
	return nil
}

// PushEncoded decodes a JPEG or PNG payload and pushes it.
func (f *FeedSource) PushEncoded(data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}
	return f.Push(face.Frame{Image: img, CapturedAt: time.Now()})
}

// NextFrame blocks until a new frame arrives, the feed closes or ctx is done.
func (f *FeedSource) NextFrame(ctx context.Context) (face.Frame, error) {
	for {
		f.mu.Lock()
		if f.pending != nil {
			frame := *f.pending
			f.pending = nil
			f.mu.Unlock()
			return frame, nil
		}
		if f.closed {
			f.mu.Unlock()
			return face.Frame{}, face.ErrSourceClosed
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return face.Frame{}, ctx.Err()
		case <-f.ready:
		}
	}
}

// Close wakes any reader; later reads return face.ErrSourceClosed.
func (f *FeedSource) Close() {
	f.mu.Lock()
	f.closed = true
	f.pending = nil
	f.mu.Unlock()

	select {
	case f.ready <- struct{}{}:
	default:
	}
}

func downscale(img image.Image, maxWidth int) image.Image {
	if img == nil || maxWidth <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
