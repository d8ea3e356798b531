// Package blob groups foreground pixels of a mask into objects and reports
// their bounding boxes.
//
// Only the external boundary of a blob counts: background holes fully
// enclosed by foreground are filled before labelling, so a blob nested inside
// another blob's hole is absorbed by its parent.
package blob

import (
	"image"

	"github.com/nvr-ai/go-motion/common"
	"github.com/nvr-ai/go-motion/images"
)

// Extract returns one bounding box per 8-connected foreground component of
// mask whose filled area is at least minArea pixels. Shadow pixels are never
// candidates. The result order is unspecified. An empty mask yields an empty
// (non-nil) slice.
//
// Arguments:
//   - mask: The classified mask at working resolution.
//   - minArea: The minimum filled pixel count, in working-resolution pixels.
//
// Returns:
//   - []common.BoundingBox: The boxes that survived the area filter.
//
// @example
// boxes := blob.Extract(mask, images.ScaleMinArea(300, 0.7))
func Extract(mask images.Mask, minArea float64) []common.BoundingBox {
	boxes := []common.BoundingBox{}
	if mask.Empty() {
		return boxes
	}

	filled := fillHoles(mask)
	w, h := mask.Width, mask.Height
	visited := make([]bool, w*h)
	var stack []image.Point

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if !filled[idx] || visited[idx] {
				continue
			}

			minX, minY, maxX, maxY := x, y, x, y
			area := 0
			visited[idx] = true
			stack = append(stack[:0], image.Point{X: x, Y: y})

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				area++
				minX, maxX = min(minX, p.X), max(maxX, p.X)
				minY, maxY = min(minY, p.Y), max(maxY, p.Y)

				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := p.X+dx, p.Y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						n := ny*w + nx
						if filled[n] && !visited[n] {
							visited[n] = true
							stack = append(stack, image.Point{X: nx, Y: ny})
						}
					}
				}
			}

			if float64(area) >= minArea {
				boxes = append(boxes, common.BoundingBox{
					X:      minX,
					Y:      minY,
					Width:  maxX - minX + 1,
					Height: maxY - minY + 1,
				})
			}
		}
	}

	return boxes
}

// fillHoles marks every foreground pixel plus every non-foreground pixel that
// cannot reach the image border through 4-connected non-foreground pixels.
func fillHoles(mask images.Mask) []bool {
	w, h := mask.Width, mask.Height
	fg := func(i int) bool { return mask.Pix[i] == images.Foreground }

	outside := make([]bool, w*h)
	var stack []int
	seed := func(x, y int) {
		i := y*w + x
		if !fg(i) && !outside[i] {
			outside[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		seed(x, 0)
		seed(x, h-1)
	}
	for y := 0; y < h; y++ {
		seed(0, y)
		seed(w-1, y)
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			seed(x-1, y)
		}
		if x < w-1 {
			seed(x+1, y)
		}
		if y > 0 {
			seed(x, y-1)
		}
		if y < h-1 {
			seed(x, y+1)
		}
	}

	filled := make([]bool, w*h)
	for i := range filled {
		filled[i] = !outside[i]
	}
	return filled
}
