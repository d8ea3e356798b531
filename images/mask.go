package images

import "image"

// Label classifies a single mask pixel.
type Label uint8

const (
	// Background pixels match the learned scene.
	Background Label = iota
	// Foreground pixels are candidates for blob extraction.
	Foreground
	// Shadow pixels are darker copies of the background and are never
	// treated as objects.
	Shadow
)

// Gray levels used when a mask is rendered, matching the usual MOG2 output.
const (
	GrayBackground uint8 = 0
	GrayShadow     uint8 = 127
	GrayForeground uint8 = 255
)

// Gray returns the display intensity of the label.
func (l Label) Gray() uint8 {
	switch l {
	case Foreground:
		return GrayForeground
	case Shadow:
		return GrayShadow
	default:
		return GrayBackground
	}
}

func (l Label) String() string {
	switch l {
	case Foreground:
		return "foreground"
	case Shadow:
		return "shadow"
	default:
		return "background"
	}
}

// LabelFromGray quantises a gray intensity back to a label.
func LabelFromGray(v uint8) Label {
	switch {
	case v >= 192:
		return Foreground
	case v >= 64:
		return Shadow
	default:
		return Background
	}
}

// Mask is a per-pixel classification congruent to the frame it was computed
// from. Pix is row-major.
type Mask struct {
	Width  int
	Height int
	Pix    []Label
}

// NewMask returns an all-background mask of the given size.
func NewMask(width, height int) Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return Mask{Width: width, Height: height, Pix: make([]Label, width*height)}
}

// Empty reports whether the mask has no pixels.
func (m Mask) Empty() bool {
	return m.Width == 0 || m.Height == 0
}

// At returns the label at (x, y); out-of-range coordinates read as Background.
func (m Mask) At(x, y int) Label {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Background
	}
	return m.Pix[y*m.Width+x]
}

// Set writes the label at (x, y). Out-of-range writes are ignored.
func (m Mask) Set(x, y int, l Label) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = l
}

// Count returns how many pixels carry label l.
func (m Mask) Count(l Label) int {
	n := 0
	for _, v := range m.Pix {
		if v == l {
			n++
		}
	}
	return n
}

// ToGray renders the mask as a grayscale image for display.
func (m Mask) ToGray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, l := range m.Pix {
		g.Pix[i] = l.Gray()
	}
	return g
}

// MaskFromGray converts a grayscale rendering back into a Mask.
func MaskFromGray(g *image.Gray) Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		row := g.Pix[(y)*g.Stride : (y)*g.Stride+m.Width]
		for x, v := range row {
			m.Pix[y*m.Width+x] = LabelFromGray(v)
		}
	}
	return m
}
