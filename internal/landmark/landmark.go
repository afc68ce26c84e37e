// Package landmark derives a fixed set of facial reference points from a
// face region.
package landmark

import (
	"image"
	"sort"

	"github.com/dudu/gazetrack/internal/detector"
)

// Face proportions used when a feature cannot be measured
const (
	eyeLineY     = 0.30 // of face height
	eyeSpacing   = 0.25 // of face width, each side of center
	noseY        = 0.50
	mouthY       = 0.75
	mouthSpacing = 0.20
	cornerOffset = 1.0 / 3.0 // of eye width, each side of eye center
)

// EyeCorners holds the synthesized outer and inner corners of one eye,
// left and right in image space
type EyeCorners struct {
	Left  detector.Point
	Right detector.Point
}

// Set is one face's landmarks. Eye corners are only meaningful when
// HasEyeCorners is true, i.e. when both eyes were measured.
type Set struct {
	FaceTopLeft     detector.Point
	FaceTopRight    detector.Point
	FaceBottomLeft  detector.Point
	FaceBottomRight detector.Point

	LeftEye  detector.Point
	RightEye detector.Point

	LeftEyeCorners  EyeCorners
	RightEyeCorners EyeCorners
	HasEyeCorners   bool

	Nose       detector.Point
	MouthLeft  detector.Point
	MouthRight detector.Point
}

// Points returns the positional layout: four face corners, two eye centers,
// four eye corners when measured, nose, then the two mouth corners.
// The result has 13 points, or 9 without eye corners.
func (s Set) Points() []detector.Point {
	pts := make([]detector.Point, 0, 13)
	pts = append(pts, s.FaceTopLeft, s.FaceTopRight, s.FaceBottomLeft, s.FaceBottomRight)
	pts = append(pts, s.LeftEye, s.RightEye)
	if s.HasEyeCorners {
		pts = append(pts,
			s.LeftEyeCorners.Left, s.LeftEyeCorners.Right,
			s.RightEyeCorners.Left, s.RightEyeCorners.Right,
		)
	}
	return append(pts, s.Nose, s.MouthLeft, s.MouthRight)
}

// EyePoints returns eye centers followed by eye corners when measured:
// six points, or two without eye corners
func (s Set) EyePoints() []detector.Point {
	if !s.HasEyeCorners {
		return []detector.Point{s.LeftEye, s.RightEye}
	}
	return []detector.Point{
		s.LeftEye, s.RightEye,
		s.LeftEyeCorners.Left, s.LeftEyeCorners.Right,
		s.RightEyeCorners.Left, s.RightEyeCorners.Right,
	}
}

// EyeCenter returns the midpoint between both eyes
func (s Set) EyeCenter() detector.Point {
	return detector.Point{
		X: (s.LeftEye.X + s.RightEye.X) / 2,
		Y: (s.LeftEye.Y + s.RightEye.Y) / 2,
	}
}

// FromEyes builds the landmark set for a face region. Eye rectangles are
// relative to the face region origin; with fewer than two of them the eyes
// are placed proportionally.
func FromEyes(face image.Rectangle, eyes []image.Rectangle) Set {
	fx := float32(face.Min.X)
	fy := float32(face.Min.Y)
	fw := float32(face.Dx())
	fh := float32(face.Dy())
	cx := fx + fw/2

	s := Set{
		FaceTopLeft:     detector.Point{X: fx, Y: fy},
		FaceTopRight:    detector.Point{X: fx + fw, Y: fy},
		FaceBottomLeft:  detector.Point{X: fx, Y: fy + fh},
		FaceBottomRight: detector.Point{X: fx + fw, Y: fy + fh},
		Nose:            detector.Point{X: cx, Y: fy + fh*noseY},
		MouthLeft:       detector.Point{X: cx - fw*mouthSpacing, Y: fy + fh*mouthY},
		MouthRight:      detector.Point{X: cx + fw*mouthSpacing, Y: fy + fh*mouthY},
	}

	if len(eyes) < 2 {
		s.LeftEye = detector.Point{X: cx - fw*eyeSpacing, Y: fy + fh*eyeLineY}
		s.RightEye = detector.Point{X: cx + fw*eyeSpacing, Y: fy + fh*eyeLineY}
		return s
	}

	sorted := append([]image.Rectangle(nil), eyes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Min.X < sorted[j].Min.X
	})
	left := sorted[0]
	right := sorted[len(sorted)-1]

	s.LeftEye = eyeCenter(face.Min, left)
	s.RightEye = eyeCenter(face.Min, right)
	s.LeftEyeCorners = corners(s.LeftEye, left)
	s.RightEyeCorners = corners(s.RightEye, right)
	s.HasEyeCorners = true
	return s
}

func eyeCenter(origin image.Point, eye image.Rectangle) detector.Point {
	return detector.Point{
		X: float32(origin.X+eye.Min.X) + float32(eye.Dx())/2,
		Y: float32(origin.Y+eye.Min.Y) + float32(eye.Dy())/2,
	}
}

func corners(center detector.Point, eye image.Rectangle) EyeCorners {
	off := float32(eye.Dx()) * cornerOffset
	return EyeCorners{
		Left:  detector.Point{X: center.X - off, Y: center.Y},
		Right: detector.Point{X: center.X + off, Y: center.Y},
	}
}
