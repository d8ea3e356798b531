package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/go-motion/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func getTestFrame(t *testing.T, width, height int) Frame {
	frame, err := NewFrame(getTestImage(width, height, color.RGBA{R: 255, A: 255}), 7, 25)
	require.NoError(t, err)
	return frame
}

func TestDownscale(t *testing.T) {
	frame := getTestFrame(t, 100, 80)

	tests := []struct {
		name       string
		factor     float64
		wantWidth  int
		wantHeight int
	}{
		{name: "half", factor: 0.5, wantWidth: 50, wantHeight: 40},
		{name: "seventy percent", factor: 0.7, wantWidth: 70, wantHeight: 56},
		{name: "tiny clamps to one pixel", factor: 0.001, wantWidth: 1, wantHeight: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			small, err := Downscale(frame, tt.factor)
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, small.Width())
			assert.Equal(t, tt.wantHeight, small.Height())
			assert.Equal(t, frame.Index, small.Index)
			assert.Equal(t, frame.Timestamp, small.Timestamp)

			// A solid frame stays solid after resampling.
			c := small.Image.RGBAAt(small.Width()/2, small.Height()/2)
			assert.InDelta(t, 255, int(c.R), 2)
			assert.InDelta(t, 0, int(c.G), 2)
		})
	}
}

func TestDownscaleIdentity(t *testing.T) {
	frame := getTestFrame(t, 64, 48)

	same, err := Downscale(frame, 1)
	require.NoError(t, err)
	assert.Same(t, frame.Image, same.Image, "factor 1 must not copy")
}

func TestDownscaleErrors(t *testing.T) {
	frame := getTestFrame(t, 10, 10)

	for _, factor := range []float64{0, -0.5, 1.5} {
		_, err := Downscale(frame, factor)
		assert.ErrorIs(t, err, common.ErrConfiguration, "factor %v", factor)
	}

	_, err := Downscale(Frame{}, 0.5)
	assert.ErrorIs(t, err, common.ErrInvalidFrame)
}

func TestRescaleBox(t *testing.T) {
	boxes := []common.BoundingBox{
		{X: 0, Y: 0, Width: 1, Height: 1},
		{X: 13, Y: 7, Width: 21, Height: 5},
		{X: 640, Y: 480, Width: 33, Height: 99},
	}

	for _, box := range boxes {
		assert.Equal(t, box, RescaleBox(box, 1), "factor 1 must be the identity")
	}

	got := RescaleBox(common.BoundingBox{X: 10, Y: 20, Width: 10, Height: 5}, 0.5)
	assert.Equal(t, common.BoundingBox{X: 20, Y: 40, Width: 20, Height: 10}, got)

	// 7 / 0.7 = 10, 3 / 0.7 = 4.29 -> 4
	got = RescaleBox(common.BoundingBox{X: 7, Y: 3, Width: 7, Height: 3}, 0.7)
	assert.Equal(t, common.BoundingBox{X: 10, Y: 4, Width: 10, Height: 4}, got)
}

func TestScaleMinAreaMatchesRescale(t *testing.T) {
	const minArea = 300.0

	assert.Equal(t, minArea, ScaleMinArea(minArea, 1))
	assert.InDelta(t, 75.0, ScaleMinArea(minArea, 0.5), 1e-9)

	// A 10x10 box at half resolution covers 20x20 = 400 at source resolution,
	// and 100 >= 300*0.25 holds on the working side as well.
	box := common.BoundingBox{Width: 10, Height: 10}
	assert.GreaterOrEqual(t, float64(box.Area()), ScaleMinArea(minArea, 0.5))
	assert.GreaterOrEqual(t, float64(RescaleBox(box, 0.5).Area()), minArea)
}

func TestUpscaleMask(t *testing.T) {
	mask := NewMask(10, 10)
	for y := 2; y < 5; y++ {
		for x := 2; x < 5; x++ {
			mask.Set(x, y, Foreground)
		}
	}
	mask.Set(8, 8, Shadow)

	big := UpscaleMask(mask, 20, 20)
	require.Equal(t, 20, big.Width)
	require.Equal(t, 20, big.Height)

	assert.Equal(t, Background, big.At(0, 0))
	assert.Equal(t, Foreground, big.At(6, 6))
	assert.Equal(t, Shadow, big.At(17, 17))
	assert.InDelta(t, 36, big.Count(Foreground), 13)

	same := UpscaleMask(mask, 10, 10)
	assert.Equal(t, mask, same)
}
