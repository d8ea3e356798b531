package controller

import (
	"context"
	"image"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
)

// Source produces frames for a run.
type Source interface {
	// Next returns the next frame, io.EOF once exhausted, or an error
	// wrapping common.ErrSourceUnavailable.
	Next(ctx context.Context) (images.Frame, error)
	// Rewind repositions the source at its first frame.
	Rewind() error
	// FrameCount returns the total number of frames, or <= 0 if unknown.
	FrameCount() int
	// FrameRate returns the native frame rate, or <= 0 if unknown.
	FrameRate() float64
	// Close releases the source.
	Close() error
}

// Display receives one Output per frame read. Show is called from the
// processing goroutine and must not block for long.
type Display interface {
	Show(out Output)
}

// Output is everything the controller publishes for one frame.
type Output struct {
	// RunID identifies the run that produced the frame.
	RunID string `json:"run_id"`
	// Index is the source frame number.
	Index int `json:"index"`
	// Frame is the rendered frame at source resolution. Skipped frames are
	// passed through unmodified.
	Frame *image.RGBA `json:"-"`
	// Original is the source frame as read. It is shared with the source and
	// must not be modified.
	Original *image.RGBA `json:"-"`
	// Mask is the classification upscaled to source resolution. It is empty
	// for skipped frames.
	Mask images.Mask `json:"-"`
	// Boxes are the detected objects at source resolution.
	Boxes []common.BoundingBox `json:"boxes"`
	// Objects is len(Boxes).
	Objects int `json:"objects"`
	// Activity summarises the boxes relative to the frame.
	Activity Activity `json:"activity"`
	// Learning is true while the frame index is inside the learning period.
	Learning bool `json:"learning"`
	// Detected is true when the frame passed the skip gate.
	Detected bool `json:"detected"`
	// Status is the human-readable status line.
	Status string `json:"status"`
	// Progress is (Index+1)/FrameCount clamped to [0, 1], or 0 if unknown.
	Progress float64 `json:"progress"`
}

// DisplayFunc adapts a function to the Display interface.
type DisplayFunc func(Output)

// Show calls f(out).
func (f DisplayFunc) Show(out Output) {
	f(out)
}

type discard struct{}

func (discard) Show(Output) {}
