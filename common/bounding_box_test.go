package common

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		a        BoundingBox
		b        BoundingBox
		expected float64
	}{
		{
			name:     "Identical boxes",
			a:        BoundingBox{0, 0, 100, 100},
			b:        BoundingBox{0, 0, 100, 100},
			expected: 1.0,
		},
		{
			name:     "No overlap",
			a:        BoundingBox{0, 0, 100, 100},
			b:        BoundingBox{200, 200, 100, 100},
			expected: 0.0,
		},
		{
			name:     "Touching edges",
			a:        BoundingBox{0, 0, 100, 100},
			b:        BoundingBox{100, 0, 100, 100},
			expected: 0.0,
		},
		{
			name:     "Half overlap",
			a:        BoundingBox{0, 0, 100, 100},
			b:        BoundingBox{50, 50, 100, 100},
			expected: 2500.0 / 17500.0,
		},
		{
			name:     "One inside other",
			a:        BoundingBox{0, 0, 100, 100},
			b:        BoundingBox{25, 25, 50, 50},
			expected: 0.25,
		},
		{
			name:     "Both empty",
			a:        BoundingBox{},
			b:        BoundingBox{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.a.IoU(tt.b), 0.001)
			// IoU(A, B) should equal IoU(B, A)
			assert.InDelta(t, tt.a.IoU(tt.b), tt.b.IoU(tt.a), 0.001)
		})
	}
}

func TestBoundingBoxRectRoundTrip(t *testing.T) {
	box := BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}
	rect := box.ToRect()

	assert.Equal(t, image.Rect(10, 20, 40, 60), rect)
	assert.Equal(t, box, FromRect(rect))
	assert.Equal(t, 1200, box.Area())
	assert.Equal(t, 0, BoundingBox{Width: -3, Height: 4}.Area())
}
