package blob

import (
	"image"

	"github.com/disintegration/gift"
	"github.com/nvr-ai/go-motion/images"
)

// Open removes foreground speckle smaller than the structuring element with a
// morphological opening (erode then dilate) using a square kernel of side
// 2*radius+1. Pixels dropped from the foreground become Background; Shadow
// pixels are untouched. A radius of 0 returns mask unchanged.
func Open(mask images.Mask, radius int) images.Mask {
	if radius <= 0 || mask.Empty() {
		return mask
	}

	src := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for i, l := range mask.Pix {
		if l == images.Foreground {
			src.Pix[i] = images.GrayForeground
		}
	}

	ksize := 2*radius + 1
	g := gift.New(
		gift.Minimum(ksize, false),
		gift.Maximum(ksize, false),
	)
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	out := images.NewMask(mask.Width, mask.Height)
	for i, l := range mask.Pix {
		switch {
		case l == images.Foreground && dst.Pix[i] >= 128:
			out.Pix[i] = images.Foreground
		case l == images.Shadow:
			out.Pix[i] = images.Shadow
		}
	}
	return out
}
