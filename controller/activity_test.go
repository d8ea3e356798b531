package controller

import (
	"image"
	"testing"

	"github.com/nvr-ai/go-motion/common"
	"github.com/stretchr/testify/assert"
)

func TestMeasureActivity(t *testing.T) {
	assert.Equal(t, Activity{}, MeasureActivity(nil, 100, 100))

	a := MeasureActivity([]common.BoundingBox{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: 10},
		{X: 50, Y: 50, Width: 20, Height: 5},
	}, 100, 100)

	assert.Equal(t, 3, a.Objects)
	assert.Equal(t, 100, a.LargestArea)
	assert.InDelta(t, 2.0/3, a.OverlapRatio, 1e-9)
	assert.InDelta(t, (175.0+100)/10000, a.Coverage, 1e-9)
	assert.Equal(t, image.Rect(0, 0, 70, 55), a.BoundingRegion)
}

func TestMeasureActivityClipsToFrame(t *testing.T) {
	a := MeasureActivity([]common.BoundingBox{{X: 90, Y: 90, Width: 20, Height: 20}}, 100, 100)
	assert.Equal(t, 400, a.LargestArea)
	assert.InDelta(t, 0.01, a.Coverage, 1e-9)
	assert.Equal(t, image.Rect(90, 90, 100, 100), a.BoundingRegion)
}
