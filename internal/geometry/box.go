package geometry

import "math"

// Point is a location in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is a single detection rectangle with its confidence score.
// Callers must keep X1 < X2 and Y1 < Y2.
type BoundingBox struct {
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
	X2    float64 `json:"x2"`
	Y2    float64 `json:"y2"`
	Score float64 `json:"score"`
}

// Center returns the midpoint of the box.
func Center(b BoundingBox) Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Width returns the horizontal extent of the box.
func Width(b BoundingBox) float64 { return b.X2 - b.X1 }

// Height returns the vertical extent of the box.
func Height(b BoundingBox) float64 { return b.Y2 - b.Y1 }

// Valid reports whether the box has positive extent and a score in [0,1].
func (b BoundingBox) Valid() bool {
	for _, v := range []float64{b.X1, b.Y1, b.X2, b.Y2, b.Score} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.X1 < b.X2 && b.Y1 < b.Y2 && b.Score >= 0 && b.Score <= 1
}

// IsAbove reports whether a's center sits at or above b's center.
func IsAbove(a, b BoundingBox) bool {
	return Center(a).Y <= Center(b).Y
}

// IsHorizontallyCenteredWithin reports whether a's center lies within
// tolerance*width(b) of b's center on the x axis.
func IsHorizontallyCenteredWithin(a, b BoundingBox, tolerance float64) bool {
	return math.Abs(Center(a).X-Center(b).X) <= tolerance*Width(b)
}

// IsVerticallyCenteredWithin is IsHorizontallyCenteredWithin on the y axis,
// scaled by height(b).
func IsVerticallyCenteredWithin(a, b BoundingBox, tolerance float64) bool {
	return math.Abs(Center(a).Y-Center(b).Y) <= tolerance*Height(b)
}

// ContainsPoint reports whether p lies inside the box, bounds inclusive.
func ContainsPoint(container BoundingBox, p Point) bool {
	return p.X >= container.X1 && p.X <= container.X2 &&
		p.Y >= container.Y1 && p.Y <= container.Y2
}

// ContainsCenter reports whether box's center lies inside container.
func ContainsCenter(container, box BoundingBox) bool {
	return ContainsPoint(container, Center(box))
}

// HeightRatio returns height(a) / height(b). A degenerate b yields +Inf so
// threshold comparisons never panic.
func HeightRatio(a, b BoundingBox) float64 {
	hb := Height(b)
	if hb == 0 {
		return math.Inf(1)
	}
	return Height(a) / hb
}
