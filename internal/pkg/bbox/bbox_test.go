package bbox_test

import (
	"math"
	"testing"

	"github.com/adierro/courtscan/internal/pkg/bbox"
)

func TestIntersectionArea(t *testing.T) {
	a := bbox.PixelBBox{X: 0, Y: 0, Width: 10, Height: 10}

	if got := bbox.IntersectionArea(a, a); got != 100 {
		t.Errorf("self intersection = %v, want 100", got)
	}

	// Disjoint boxes.
	b := bbox.PixelBBox{X: 100, Y: 100, Width: 10, Height: 10}
	if got := bbox.IntersectionArea(a, b); got != 0 {
		t.Errorf("disjoint intersection = %v, want 0", got)
	}

	// Boxes sharing only an edge do not overlap.
	b = bbox.PixelBBox{X: 10, Y: 0, Width: 10, Height: 10}
	if got := bbox.IntersectionArea(a, b); got != 0 {
		t.Errorf("edge-touching intersection = %v, want 0", got)
	}

	// Half overlap: corners (-5,-5)-(5,5) vs (0,-5)-(10,5).
	b = bbox.PixelBBox{X: 5, Y: 0, Width: 10, Height: 10}
	if got := bbox.IntersectionArea(a, b); got != 50 {
		t.Errorf("half intersection = %v, want 50", got)
	}
}

func TestOverlapMeetsThreshold(t *testing.T) {
	a := bbox.PixelBBox{X: 0, Y: 0, Width: 10, Height: 10}

	// Intersection 50 of two 100-area boxes: both ratios 0.5, below 0.75.
	b := bbox.PixelBBox{X: 5, Y: 0, Width: 10, Height: 10}
	if bbox.OverlapMeetsThreshold(a, b, 0.75) {
		t.Error("0.5 overlap must not meet 0.75 threshold")
	}

	// Offset 2 → intersection 80: both ratios 0.8, above 0.75.
	b = bbox.PixelBBox{X: 2, Y: 0, Width: 10, Height: 10}
	if !bbox.OverlapMeetsThreshold(a, b, 0.75) {
		t.Error("0.8 overlap must meet 0.75 threshold")
	}

	// A small box fully inside a big one: its own ratio is 1.0 but the big
	// box's ratio is tiny, so the mutual check fails.
	small := bbox.PixelBBox{X: 0, Y: 0, Width: 2, Height: 2}
	if bbox.OverlapMeetsThreshold(a, small, 0.75) {
		t.Error("containment must not satisfy the mutual overlap check")
	}

	// Disjoint boxes never match.
	far := bbox.PixelBBox{X: 50, Y: 50, Width: 10, Height: 10}
	if bbox.OverlapMeetsThreshold(a, far, 0) {
		t.Error("disjoint boxes must not match even at threshold 0")
	}
}

func TestIoU(t *testing.T) {
	a := bbox.PixelBBox{X: 0, Y: 0, Width: 10, Height: 10}

	if got := bbox.IoU(a, a); got != 1 {
		t.Errorf("identical IoU = %v, want 1", got)
	}

	// Intersection 80, union 120.
	b := bbox.PixelBBox{X: 2, Y: 0, Width: 10, Height: 10}
	want := 80.0 / 120.0
	if got := bbox.IoU(a, b); math.Abs(got-want) > 1e-6 {
		t.Errorf("IoU = %v, want %v", got, want)
	}

	// Disjoint.
	far := bbox.PixelBBox{X: 50, Y: 50, Width: 10, Height: 10}
	if got := bbox.IoU(a, far); got != 0 {
		t.Errorf("disjoint IoU = %v, want 0", got)
	}

	// Degenerate boxes produce an empty union, not a division by zero.
	zero := bbox.PixelBBox{}
	if got := bbox.IoU(zero, zero); got != 0 {
		t.Errorf("empty-union IoU = %v, want 0", got)
	}
}
