// Package bbox provides pixel bounding-box geometry: intersection areas,
// mutual-overlap checks, and intersection-over-union.
package bbox

import "math"

// DefaultOverlapThreshold is the minimum mutual overlap ratio for two boxes
// to be considered the same physical object.
const DefaultOverlapThreshold = 0.75

// PixelBBox is a bounding box in image pixel space. X and Y locate the box
// center, not the top-left corner.
type PixelBBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area. Zero or negative dimensions yield 0.
func (b PixelBBox) Area() float64 {
	if b.Width <= 0 || b.Height <= 0 {
		return 0
	}
	return b.Width * b.Height
}

// Defined reports whether the box has positive dimensions.
func (b PixelBBox) Defined() bool {
	return b.Width > 0 && b.Height > 0
}

func (b PixelBBox) left() float64   { return b.X - b.Width/2 }
func (b PixelBBox) right() float64  { return b.X + b.Width/2 }
func (b PixelBBox) top() float64    { return b.Y - b.Height/2 }
func (b PixelBBox) bottom() float64 { return b.Y + b.Height/2 }

// IntersectionArea returns the area shared by two boxes, 0 if disjoint.
func IntersectionArea(a, b PixelBBox) float64 {
	x1 := math.Max(a.left(), b.left())
	y1 := math.Max(a.top(), b.top())
	x2 := math.Min(a.right(), b.right())
	y2 := math.Min(a.bottom(), b.bottom())

	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}

// OverlapMeetsThreshold reports whether the intersection covers at least
// threshold of BOTH boxes. Requiring both ratios prevents a small box from
// matching a much larger one it is merely contained within.
func OverlapMeetsThreshold(a, b PixelBBox, threshold float64) bool {
	inter := IntersectionArea(a, b)
	if inter == 0 {
		return false
	}
	return inter/a.Area() >= threshold && inter/b.Area() >= threshold
}

// IoU returns intersection-over-union: 1.0 for identical boxes, 0.0 for
// disjoint ones or when the union is empty.
func IoU(a, b PixelBBox) float64 {
	inter := IntersectionArea(a, b)
	union := a.Area() + b.Area() - inter
	if union == 0 {
		return 0
	}
	return inter / union
}
