// Package source - Frame sources for the motion controller: numbered image
// sequences on disk and deterministic generated scenes.
package source

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
	"github.com/pkg/errors"
)

// SyntheticOptions describes a generated scene: a flat background with
// optional per-frame noise and one solid patch that appears at PatchFrom and
// moves by Velocity every frame.
type SyntheticOptions struct {
	Width  int
	Height int
	// Frames is the sequence length; <= 0 generates frames forever.
	Frames int
	// FPS is reported as the native rate; 0 means unknown.
	FPS float64

	Background color.RGBA
	// Noise adds a deterministic ±1 ripple to the background.
	Noise bool

	Patch      image.Rectangle
	PatchColor color.RGBA
	PatchFrom  int
	Velocity   image.Point
}

// Synthetic generates deterministic frames for demos and tests.
type Synthetic struct {
	opts SyntheticOptions

	mu  sync.Mutex
	pos int
}

// NewSynthetic creates a generator.
//
// Arguments:
//   - opts: The scene description.
//
// Returns:
//   - *Synthetic: The source positioned at frame 0.
//   - error: common.ErrConfiguration for a non-positive size.
//
// @example
// src, err := source.NewSynthetic(source.DemoScene(640, 480, 300))
func NewSynthetic(opts SyntheticOptions) (*Synthetic, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Wrapf(common.ErrConfiguration, "synthetic size %dx%d", opts.Width, opts.Height)
	}
	return &Synthetic{opts: opts}, nil
}

// DemoScene is a mid-gray scene with a white square crossing it after a
// short learning period.
func DemoScene(width, height, frames int) SyntheticOptions {
	side := max(min(width, height)/8, 4)
	return SyntheticOptions{
		Width:      width,
		Height:     height,
		Frames:     frames,
		FPS:        25,
		Background: color.RGBA{R: 128, G: 128, B: 128, A: 255},
		Noise:      true,
		Patch:      image.Rect(0, height/3, side, height/3+side),
		PatchColor: color.RGBA{R: 255, G: 255, B: 255, A: 255},
		PatchFrom:  30,
		Velocity:   image.Pt(max(width/100, 1), 0),
	}
}

// Next renders the next frame, or io.EOF after Frames frames.
func (s *Synthetic) Next(ctx context.Context) (images.Frame, error) {
	if err := ctx.Err(); err != nil {
		return images.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Frames > 0 && s.pos >= s.opts.Frames {
		return images.Frame{}, io.EOF
	}
	index := s.pos
	s.pos++
	return images.NewFrame(s.render(index), index, s.opts.FPS)
}

// Render draws frame index without advancing the source.
func (s *Synthetic) Render(index int) *image.RGBA {
	return s.render(index)
}

func (s *Synthetic) render(index int) *image.RGBA {
	o := s.opts
	img := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	for y := 0; y < o.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < o.Width; x++ {
			c := o.Background
			if o.Noise {
				c = ripple(c, (x+y+index)%3-1)
			}
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}

	if !o.Patch.Empty() && index >= o.PatchFrom {
		steps := index - o.PatchFrom
		r := o.Patch.Add(image.Pt(o.Velocity.X*steps, o.Velocity.Y*steps)).Intersect(img.Rect)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetRGBA(x, y, o.PatchColor)
			}
		}
	}
	return img
}

func ripple(c color.RGBA, d int) color.RGBA {
	shift := func(v uint8) uint8 {
		return uint8(min(max(int(v)+d, 0), 255))
	}
	return color.RGBA{R: shift(c.R), G: shift(c.G), B: shift(c.B), A: c.A}
}

// Rewind restarts the sequence at frame 0.
func (s *Synthetic) Rewind() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	return nil
}

// FrameCount returns Frames, or -1 for an endless scene.
func (s *Synthetic) FrameCount() int {
	if s.opts.Frames <= 0 {
		return -1
	}
	return s.opts.Frames
}

// FrameRate returns the configured FPS.
func (s *Synthetic) FrameRate() float64 {
	return s.opts.FPS
}

// Close is a no-op.
func (s *Synthetic) Close() error {
	return nil
}
