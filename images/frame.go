// Package images - Frame and mask types plus the pixel-level helpers of the
// motion pipeline: resampling, drawing and encoding.
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ Input Frame  │
// └──────┬───────┘
// ┌────────────────────────────────┐
// │ Preprocessing (resize, blur)   │
// └──────┬─────────────────────────┘
// ┌────────────────────────────┐
// │ Background Model (MoG)     │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Foreground Mask            │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Blob Extraction            │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Boxes drawn on source frame│
// └────────────────────────────┘
package images

import (
	"image"
	"image/draw"
	"time"

	"github.com/nvr-ai/go-motion/common"
	"github.com/pkg/errors"
)

// Frame is a single decoded video frame. The pixel data is shared and must be
// treated as read-only by every consumer; use Clone before drawing.
type Frame struct {
	// Image holds the pixels. Bounds always start at (0, 0).
	Image *image.RGBA
	// Index is the monotonic frame number reported by the source.
	Index int
	// Timestamp is the presentation time derived from the source frame rate.
	Timestamp time.Duration
}

// NewFrame wraps img as a Frame, normalising its bounds to start at the
// origin and deriving the timestamp from fps (0 when the rate is unknown).
//
// Arguments:
//   - img: The decoded image.
//   - index: The source frame number.
//   - fps: The source frame rate, or 0 if unknown.
//
// Returns:
//   - Frame: The wrapped frame.
//   - error: common.ErrInvalidFrame if img is nil or empty.
func NewFrame(img image.Image, index int, fps float64) (Frame, error) {
	if img == nil || img.Bounds().Empty() {
		return Frame{}, errors.Wrapf(common.ErrInvalidFrame, "frame %d is empty", index)
	}

	var ts time.Duration
	if fps > 0 {
		ts = time.Duration(float64(index) / fps * float64(time.Second))
	}

	return Frame{Image: ToRGBA(img), Index: index, Timestamp: ts}, nil
}

// Width returns the frame width in pixels.
func (f Frame) Width() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f Frame) Height() int {
	if f.Image == nil {
		return 0
	}
	return f.Image.Rect.Dy()
}

// Validate reports common.ErrInvalidFrame for nil or zero-sized frames.
func (f Frame) Validate() error {
	if f.Image == nil || f.Width() == 0 || f.Height() == 0 {
		return errors.Wrapf(common.ErrInvalidFrame, "frame %d has zero size", f.Index)
	}
	return nil
}

// Clone returns a deep copy of the frame pixels, suitable for drawing.
func (f Frame) Clone() *image.RGBA {
	dst := image.NewRGBA(f.Image.Rect)
	copy(dst.Pix, f.Image.Pix)
	return dst
}

// ToRGBA returns img as an *image.RGBA whose bounds start at (0, 0). An
// *image.RGBA that already satisfies this is returned as is.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}
