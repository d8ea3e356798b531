package images

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/nvr-ai/go-motion/common"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DrawBox strokes the outline of box onto dst with the given thickness. The
// stroke lies inside the box and is clipped to the image bounds.
func DrawBox(dst *image.RGBA, box common.BoundingBox, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	r := box.ToRect()
	if r.Empty() {
		return
	}
	t := min(thickness, r.Dx(), r.Dy())
	src := image.NewUniform(c)

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), // top
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), // left
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, e := range edges {
		e = e.Intersect(dst.Rect)
		if e.Empty() {
			continue
		}
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// DrawBoxes strokes every box onto dst.
func DrawBoxes(dst *image.RGBA, boxes []common.BoundingBox, c color.RGBA, thickness int) {
	for _, b := range boxes {
		DrawBox(dst, b, c, thickness)
	}
}

// DrawLabel writes text at the top-left corner of dst on a dark backing strip
// so it stays legible over any scene.
func DrawLabel(dst *image.RGBA, text string, c color.RGBA) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
	}

	const pad = 4
	width := d.MeasureString(text).Ceil()
	strip := image.Rect(dst.Rect.Min.X, dst.Rect.Min.Y, dst.Rect.Min.X+width+2*pad, dst.Rect.Min.Y+face.Height+2*pad)
	draw.Draw(dst, strip.Intersect(dst.Rect), image.NewUniform(color.RGBA{A: 255}), image.Point{}, draw.Over)

	d.Dot = fixed.P(dst.Rect.Min.X+pad, dst.Rect.Min.Y+pad+face.Ascent)
	d.DrawString(text)
}
