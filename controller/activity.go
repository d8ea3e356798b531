package controller

import (
	"image"

	"github.com/nvr-ai/go-motion/common"
)

// Activity summarises how much of a frame the detected objects occupy.
type Activity struct {
	// Objects is the number of boxes.
	Objects int `json:"objects"`
	// LargestArea is the area of the biggest box in px².
	LargestArea int `json:"largest_area"`
	// Coverage is the fraction of the frame covered by the union of the boxes.
	Coverage float64 `json:"coverage"`
	// OverlapRatio is the fraction of boxes that overlap another box.
	OverlapRatio float64 `json:"overlap_ratio"`
	// BoundingRegion contains every box.
	BoundingRegion image.Rectangle `json:"bounding_region"`
}

// MeasureActivity computes Activity for boxes on a width x height frame.
//
// Arguments:
//   - boxes: Detected objects at source resolution.
//   - width, height: The source frame size.
//
// Returns:
//   - Activity: The zero value when there are no boxes.
func MeasureActivity(boxes []common.BoundingBox, width, height int) Activity {
	a := Activity{Objects: len(boxes)}
	if len(boxes) == 0 || width <= 0 || height <= 0 {
		return a
	}

	frame := image.Rect(0, 0, width, height)
	overlapping := 0
	for i, b := range boxes {
		r := b.ToRect().Intersect(frame)
		a.LargestArea = max(a.LargestArea, b.Area())
		a.BoundingRegion = a.BoundingRegion.Union(r)
		for j, o := range boxes {
			if i != j && b.Intersection(o) > 0 {
				overlapping++
				break
			}
		}
	}
	a.OverlapRatio = float64(overlapping) / float64(len(boxes))

	// Coverage of the union is counted on the bounding region only.
	region := a.BoundingRegion
	if !region.Empty() {
		covered := make([]bool, region.Dx()*region.Dy())
		n := 0
		for _, b := range boxes {
			r := b.ToRect().Intersect(region)
			for y := r.Min.Y; y < r.Max.Y; y++ {
				row := (y - region.Min.Y) * region.Dx()
				for x := r.Min.X; x < r.Max.X; x++ {
					i := row + x - region.Min.X
					if !covered[i] {
						covered[i] = true
						n++
					}
				}
			}
		}
		a.Coverage = float64(n) / float64(width*height)
	}
	return a
}
