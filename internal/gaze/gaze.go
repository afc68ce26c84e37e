// Package gaze estimates where the eyes point from eye landmark points.
package gaze

import (
	"math"

	"github.com/dudu/gazetrack/internal/detector"
)

const (
	// MinPoints is the number of eye points needed for any estimate
	MinPoints = 4
	// verticalPoints enables the vertical estimate from eye corners
	verticalPoints = 6

	neutralAspect  = 0.3
	aspectRange    = 0.2
	focusThreshold = 0.1
)

// Angle is a normalized gaze direction. Y is within [-1, 1].
type Angle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Estimate computes the gaze angle from eye points laid out as left eye
// center, right eye center, then optionally left eye corners and right eye
// corners. Fewer than MinPoints points, or coincident eye centers, give the
// zero angle.
func Estimate(points []detector.Point) Angle {
	if len(points) < MinPoints {
		return Angle{}
	}

	left, right := points[0], points[1]
	dist := left.Dist(right)
	if dist == 0 {
		return Angle{}
	}

	a := Angle{X: float64(left.X-right.X) / dist}

	if len(points) >= verticalPoints {
		avg := (aspect(points[2], points[3]) + aspect(points[4], points[5])) / 2
		a.Y = clamp((avg-neutralAspect)/aspectRange, -1, 1)
	}

	return a
}

// aspect is the eye opening: vertical corner span over horizontal span
func aspect(c1, c2 detector.Point) float64 {
	w := math.Abs(float64(c1.X - c2.X))
	if w == 0 {
		return 0
	}
	return math.Abs(float64(c1.Y-c2.Y)) / w
}

// Focused reports whether both gaze components are near center
func Focused(a Angle) bool {
	return math.Abs(a.X) < focusThreshold && math.Abs(a.Y) < focusThreshold
}

// Vector returns a unit 3D gaze direction, camera looking down -Z
func Vector(a Angle) [3]float64 {
	n := math.Sqrt(a.X*a.X + a.Y*a.Y + 1)
	return [3]float64{a.X / n, a.Y / n, -1 / n}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
