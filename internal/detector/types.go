package detector

import (
	"image"
	"math"
)

// Point represents a 2D point in frame pixel coordinates
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q
func (p Point) Dist(q Point) float64 {
	d := p.Sub(q)
	return math.Hypot(float64(d.X), float64(d.Y))
}

// BoundingBox is a floating point box used while decoding model output
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Center returns box center point
func (b BoundingBox) Center() Point {
	return Point{
		X: (b.X1 + b.X2) / 2,
		Y: (b.Y1 + b.Y2) / 2,
	}
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Scale divides every coordinate by s, mapping model input space back to frame space
func (b BoundingBox) Scale(s float32) BoundingBox {
	if s <= 0 {
		return b
	}
	return BoundingBox{X1: b.X1 / s, Y1: b.Y1 / s, X2: b.X2 / s, Y2: b.Y2 / s}
}

// Rect rounds the box to an integer rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(
		int(math.Round(float64(b.X1))),
		int(math.Round(float64(b.Y1))),
		int(math.Round(float64(b.X2))),
		int(math.Round(float64(b.Y2))),
	)
}

// Candidate is one scored face box produced by a neural backend
type Candidate struct {
	Box   BoundingBox
	Score float32
}
