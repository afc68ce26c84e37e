// Package shoulder locates the two shoulders in the lower part of a frame
// and flags shoulder movement between frames.
package shoulder

import (
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/detector"
)

const (
	// MoveThreshold is the per-point displacement in pixels that counts as movement
	MoveThreshold = 10.0

	roiTop    = 0.6 // search band starts at 60% of frame height
	roiHeight = 0.4

	minArea   = 500.0
	maxArea   = 10000.0
	minAspect = 0.5
	maxAspect = 3.0

	cannyLow  = 50
	cannyHigh = 150

	fallbackLeft  = 0.25
	fallbackRight = 0.75
	fallbackY     = 0.8
)

// Estimate returns the left and right shoulder points of a grayscale frame
// in frame coordinates. When fewer than two shoulder-like contours are found
// it returns the proportional fallback. An empty frame yields no points.
func Estimate(gray gocv.Mat) []detector.Point {
	if gray.Empty() || gray.Rows() <= 0 || gray.Cols() <= 0 {
		return nil
	}

	w, h := gray.Cols(), gray.Rows()
	top := int(float64(h) * roiTop)
	roi := image.Rect(0, top, w, top+int(float64(h)*roiHeight))
	if roi.Dy() <= 0 {
		return Fallback(image.Pt(w, h))
	}

	candidates := candidates(gray, roi)
	if len(candidates) < 2 {
		return Fallback(image.Pt(w, h))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Min.X < candidates[j].Min.X
	})
	left := candidates[0]
	right := candidates[len(candidates)-1]

	return []detector.Point{center(left, top), center(right, top)}
}

// candidates returns bounding boxes of shoulder-like contours, relative to roi
func candidates(gray gocv.Mat, roi image.Rectangle) []image.Rectangle {
	band := gray.Region(roi)
	defer band.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(band, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, cannyLow, cannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var found []image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea || area >= maxArea {
			continue
		}

		rect := gocv.BoundingRect(contour)
		if rect.Dy() <= 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect <= minAspect || aspect >= maxAspect {
			continue
		}
		found = append(found, rect)
	}
	return found
}

func center(r image.Rectangle, top int) detector.Point {
	return detector.Point{
		X: float32(r.Min.X) + float32(r.Dx())/2,
		Y: float32(top+r.Min.Y) + float32(r.Dy())/2,
	}
}

// Fallback returns the proportional shoulder positions for a frame size
func Fallback(size image.Point) []detector.Point {
	y := float32(size.Y) * fallbackY
	return []detector.Point{
		{X: float32(size.X) * fallbackLeft, Y: y},
		{X: float32(size.X) * fallbackRight, Y: y},
	}
}

// Moved reports whether either shoulder moved more than MoveThreshold pixels.
// Both sides must hold exactly two points.
func Moved(cur, prev []detector.Point) bool {
	if len(cur) != 2 || len(prev) != 2 {
		return false
	}
	return cur[0].Dist(prev[0]) > MoveThreshold || cur[1].Dist(prev[1]) > MoveThreshold
}
