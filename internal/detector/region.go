package detector

import "image"

// Face box growth applied by Expand, as fractions of the detected box
const (
	expandSide = 0.10 // each side
	expandUp   = 0.30 // forehead
	expandDown = 0.20 // chin
)

// ClampToFrame intersects r with the frame [0,0,size.X,size.Y). The result is
// either fully inside the frame or the empty rectangle.
func ClampToFrame(r image.Rectangle, size image.Point) image.Rectangle {
	if r.Dx() <= 0 || r.Dy() <= 0 || size.X <= 0 || size.Y <= 0 {
		return image.Rectangle{}
	}

	c := r.Intersect(image.Rect(0, 0, size.X, size.Y))
	if c.Dx() <= 0 || c.Dy() <= 0 {
		return image.Rectangle{}
	}
	return c
}

// Expand grows a detected face box to cover the whole head, then clamps it
// to the frame. Detectors keyed on eyes, nose and mouth undershoot the head.
func Expand(r image.Rectangle, size image.Point) image.Rectangle {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return image.Rectangle{}
	}

	side := int(float64(r.Dx()) * expandSide)
	up := int(float64(r.Dy()) * expandUp)
	down := int(float64(r.Dy()) * expandDown)

	grown := image.Rect(r.Min.X-side, r.Min.Y-up, r.Max.X+side, r.Max.Y+down)
	return ClampToFrame(grown, size)
}

// IsEmpty reports whether r is the canonical no-detection region
func IsEmpty(r image.Rectangle) bool {
	return r.Dx() <= 0 || r.Dy() <= 0
}

// largest returns the rectangle with the biggest area, or the empty rectangle
func largest(rects []image.Rectangle) image.Rectangle {
	var best image.Rectangle
	bestArea := 0
	for _, r := range rects {
		if area := r.Dx() * r.Dy(); r.Dx() > 0 && r.Dy() > 0 && area > bestArea {
			best = r
			bestArea = area
		}
	}
	return best
}
