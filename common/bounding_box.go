// Package common - Types shared by every stage of the motion pipeline.
package common

import (
	"fmt"
	"image"
)

// BoundingBox is an axis-aligned box in pixel coordinates. X and Y are the
// top-left corner; Width and Height are exclusive extents, so the box covers
// columns [X, X+Width) and rows [Y, Y+Height).
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns Width*Height, or 0 for a degenerate box.
func (b BoundingBox) Area() int {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d, %d) %dx%d", b.X, b.Y, b.Width, b.Height)
}

// ToRect converts the bounding box to an image.Rectangle.
//
// Returns:
// - An image.Rectangle with canonicalized coordinates.
//
// @example
// box := BoundingBox{X: 10, Y: 20, Width: 30, Height: 40}
// rect := box.ToRect() // (10,20)-(40,60)
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).Canon()
}

// FromRect builds a BoundingBox from an image.Rectangle.
func FromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Intersection calculates the intersection area between two bounding boxes.
//
// Arguments:
// - other: The other bounding box to calculate intersection with.
//
// Returns:
// - The area of intersection in pixels.
//
// @example
// a := BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}
// b := BoundingBox{X: 50, Y: 50, Width: 100, Height: 100}
// area := a.Intersection(b) // 2500
func (b BoundingBox) Intersection(other BoundingBox) int {
	size := b.ToRect().Intersect(other.ToRect()).Size()
	return size.X * size.Y
}

// IoU calculates the Intersection over Union between two bounding boxes.
//
// Arguments:
// - other: The other bounding box to calculate IoU with.
//
// Returns:
// - The IoU value between 0 and 1. Two empty boxes have an IoU of 0.
//
// @example
// a := BoundingBox{X: 0, Y: 0, Width: 100, Height: 100}
// b := BoundingBox{X: 50, Y: 50, Width: 100, Height: 100}
// iou := a.IoU(b) // ~0.143 (2500/17500)
func (b BoundingBox) IoU(other BoundingBox) float64 {
	inter := b.Intersection(other)
	union := b.Area() + other.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
