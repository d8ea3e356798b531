package images

import (
	"image"
	"math"

	"github.com/nfnt/resize"
	"github.com/nvr-ai/go-motion/common"
	"github.com/pkg/errors"
)

// ScaledSize returns the working resolution for a frame of width x height at
// the given linear factor. Each side is rounded and never drops below 1.
func ScaledSize(width, height int, factor float64) (int, int) {
	w := int(math.Round(float64(width) * factor))
	h := int(math.Round(float64(height) * factor))
	return max(w, 1), max(h, 1)
}

// Downscale reduces a frame to factor times its size using bilinear
// resampling. A factor of 1 returns the input frame itself without copying.
//
// Arguments:
//   - frame: The source frame.
//   - factor: The linear scale factor in (0, 1].
//
// Returns:
//   - Frame: The working-resolution frame, keeping Index and Timestamp.
//   - error: common.ErrInvalidFrame for empty frames,
//     common.ErrConfiguration for a factor outside (0, 1].
//
// @example
// small, err := Downscale(frame, 0.5)
// if err != nil {
//     return err
// }
// fmt.Printf("working size: %dx%d\n", small.Width(), small.Height())
func Downscale(frame Frame, factor float64) (Frame, error) {
	if err := frame.Validate(); err != nil {
		return Frame{}, err
	}
	if !(factor > 0 && factor <= 1) {
		return Frame{}, errors.Wrapf(common.ErrConfiguration, "resize factor %v outside (0, 1]", factor)
	}
	if factor == 1 {
		return frame, nil
	}

	w, h := ScaledSize(frame.Width(), frame.Height(), factor)
	resized := resize.Resize(uint(w), uint(h), frame.Image, resize.Bilinear)

	return Frame{
		Image:     ToRGBA(resized),
		Index:     frame.Index,
		Timestamp: frame.Timestamp,
	}, nil
}

// RescaleBox maps a box found at working resolution back to source
// resolution by multiplying every field by 1/factor and rounding to the
// nearest pixel. It is the inverse of the mapping used by ScaleMinArea.
func RescaleBox(box common.BoundingBox, factor float64) common.BoundingBox {
	if factor == 1 || factor <= 0 {
		return box
	}
	inv := 1 / factor
	return common.BoundingBox{
		X:      int(math.Round(float64(box.X) * inv)),
		Y:      int(math.Round(float64(box.Y) * inv)),
		Width:  int(math.Round(float64(box.Width) * inv)),
		Height: int(math.Round(float64(box.Height) * inv)),
	}
}

// ScaleMinArea converts a minimum blob area expressed at source resolution
// to the working resolution. Area scales with the square of the linear factor.
func ScaleMinArea(minArea, factor float64) float64 {
	return minArea * factor * factor
}

// UpscaleMask resizes a mask to width x height with nearest-neighbour
// sampling so labels stay crisp. It only serves display parity with the
// source frame.
func UpscaleMask(mask Mask, width, height int) Mask {
	if mask.Width == width && mask.Height == height {
		return mask
	}
	if mask.Empty() || width <= 0 || height <= 0 {
		return NewMask(max(width, 0), max(height, 0))
	}

	out := resize.Resize(uint(width), uint(height), mask.ToGray(), resize.NearestNeighbor)
	gray, ok := out.(*image.Gray)
	if !ok {
		b := out.Bounds()
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				gray.Set(x, y, out.At(b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return MaskFromGray(gray)
}
