// Package kernels holds the convolution kernels applied to frames before they
// reach the background model. Smoothing suppresses sensor noise that would
// otherwise show up as speckle in the foreground mask.
package kernels

import (
	"image"
	"image/draw"
	"sync"
)

// EdgeMode defines how sampling behaves outside the image bounds.
// - Clamp: repeats edge pixels.
// - Mirror: reflects coordinates without doubling the edge pixel.
// - Wrap: tiles the image.
type EdgeMode int

const (
	EdgeClamp EdgeMode = iota
	EdgeMirror
	EdgeWrap
)

// Options configures a blur call.
type Options struct {
	Radius   int      // Blur radius (window size = 2*Radius + 1). Must be >= 0.
	Edge     EdgeMode // Edge sampling mode.
	Pool     *Pool    // Optional buffer pool for intermediate/dst reuse.
	Parallel bool     // Enable row/column parallelism (good for 1080p+).
}

// Pool lets the frame loop reuse the intermediate buffer between frames.
type Pool struct {
	rgba sync.Pool // *image.RGBA
}

// GetRGBA returns a buffer with the given bounds, reusing a pooled one when
// the bounds match.
func (p *Pool) GetRGBA(bounds image.Rectangle) *image.RGBA {
	if p == nil {
		return image.NewRGBA(bounds)
	}
	if v := p.rgba.Get(); v != nil {
		img := v.(*image.RGBA)
		if img.Rect == bounds {
			return img
		}
	}
	return image.NewRGBA(bounds)
}

// PutRGBA hands a buffer back to the pool. The next writer fully overwrites it.
func (p *Pool) PutRGBA(img *image.RGBA) {
	if p == nil || img == nil {
		return
	}
	p.rgba.Put(img)
}

// BoxBlur applies a separable box blur using a sliding window per row and
// column, so the cost is O(W*H) independent of Radius.
//
// A radius of zero returns a copy of src. The result always has the bounds of
// src and is never drawn from the pool, so callers may keep it.
//
// Arguments:
//   - src: The source image. It is not modified.
//   - opt: Radius, edge mode, optional pool and parallelism.
//
// Returns:
//   - *image.RGBA: The blurred image.
//
// @example
// smooth := kernels.BoxBlur(frame.Image, kernels.Options{Radius: 2, Parallel: true})
func BoxBlur(src image.Image, opt Options) *image.RGBA {
	in := toRGBA(src)
	b := in.Rect
	dst := image.NewRGBA(b)
	if opt.Radius <= 0 || b.Empty() {
		copy(dst.Pix, in.Pix)
		return dst
	}

	tmp := opt.Pool.GetRGBA(b)
	blurRows(in, tmp, opt.Radius, opt.Edge, opt.Parallel)
	blurCols(tmp, dst, opt.Radius, opt.Edge, opt.Parallel)
	opt.Pool.PutRGBA(tmp)
	return dst
}

// toRGBA returns src as a tightly packed *image.RGBA with the same bounds.
func toRGBA(src image.Image) *image.RGBA {
	if r, ok := src.(*image.RGBA); ok && r.Stride == 4*r.Rect.Dx() {
		return r
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

// blurRows runs the horizontal pass. Both images share bounds and stride.
func blurRows(src, dst *image.RGBA, r int, edge EdgeMode, parallel bool) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	window := uint32(2*r + 1)

	row := func(y int) {
		start := y * src.Stride
		load := func(x int) (uint32, uint32, uint32, uint32) {
			off := start + mapCoord(x, w, edge)*4
			p := src.Pix[off : off+4 : off+4]
			return uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])
		}

		var sr, sg, sb, sa uint32
		for dx := -r; dx <= r; dx++ {
			r8, g8, b8, a8 := load(dx)
			sr, sg, sb, sa = sr+r8, sg+g8, sb+b8, sa+a8
		}
		for x := 0; x < w; x++ {
			off := start + x*4
			dst.Pix[off+0] = uint8((sr + window/2) / window)
			dst.Pix[off+1] = uint8((sg + window/2) / window)
			dst.Pix[off+2] = uint8((sb + window/2) / window)
			dst.Pix[off+3] = uint8((sa + window/2) / window)

			lr, lg, lb, la := load(x - r)
			rr, rg, rb, ra := load(x + r + 1)
			sr += rr - lr
			sg += rg - lg
			sb += rb - lb
			sa += ra - la
		}
	}

	run(h, parallel, row)
}

// blurCols runs the vertical pass.
func blurCols(src, dst *image.RGBA, r int, edge EdgeMode, parallel bool) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	window := uint32(2*r + 1)

	col := func(x int) {
		load := func(y int) (uint32, uint32, uint32, uint32) {
			off := mapCoord(y, h, edge)*src.Stride + x*4
			p := src.Pix[off : off+4 : off+4]
			return uint32(p[0]), uint32(p[1]), uint32(p[2]), uint32(p[3])
		}

		var sr, sg, sb, sa uint32
		for dy := -r; dy <= r; dy++ {
			r8, g8, b8, a8 := load(dy)
			sr, sg, sb, sa = sr+r8, sg+g8, sb+b8, sa+a8
		}
		for y := 0; y < h; y++ {
			off := y*dst.Stride + x*4
			dst.Pix[off+0] = uint8((sr + window/2) / window)
			dst.Pix[off+1] = uint8((sg + window/2) / window)
			dst.Pix[off+2] = uint8((sb + window/2) / window)
			dst.Pix[off+3] = uint8((sa + window/2) / window)

			lr, lg, lb, la := load(y - r)
			rr, rg, rb, ra := load(y + r + 1)
			sr += rr - lr
			sg += rg - lg
			sb += rb - lb
			sa += ra - la
		}
	}

	run(w, parallel, col)
}

// run calls task for every index in [0, n), split into chunks across
// goroutines when parallel is set.
func run(n int, parallel bool, task func(int)) {
	if !parallel || n < 4 {
		for i := 0; i < n; i++ {
			task(i)
		}
		return
	}

	chunk := chooseChunk(n)
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				task(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// mapCoord maps an index i to [0, n) according to edge mode.
func mapCoord(i, n int, mode EdgeMode) int {
	switch mode {
	case EdgeMirror:
		if n == 1 {
			return 0
		}
		for i < 0 || i >= n {
			if i < 0 {
				i = -i - 1
			} else {
				i = 2*n - i - 1
			}
		}
		return i
	case EdgeWrap:
		i %= n
		if i < 0 {
			i += n
		}
		return i
	default:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}
}

// chooseChunk picks a work chunk size that balances goroutine overhead and
// cache locality.
func chooseChunk(n int) int {
	switch {
	case n >= 2048:
		return 128
	case n >= 512:
		return 64
	default:
		return 32
	}
}
