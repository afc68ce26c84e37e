// Package pose approximates head orientation from 2D facial landmarks and
// flags head movement between frames.
package pose

import (
	"math"

	"github.com/dudu/gazetrack/internal/landmark"
)

const (
	// MinPoints is the landmark count needed for a pose estimate
	MinPoints = 10
	// MoveThreshold is the per-axis change that counts as movement
	MoveThreshold = 0.1

	noseRatio = 0.8 // expected eye-to-nose drop over eye distance
	maxRoll   = 0.5

	// degreesPerUnit maps a normalized axis value to degrees
	degreesPerUnit = 90
)

// Pose is a normalized head orientation. Pitch and Yaw are within [-1, 1],
// Roll within [-0.5, 0.5].
type Pose struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Estimate derives a pose from a landmark set. Sets without eye corners,
// or with coincident eyes, give the zero pose.
func Estimate(s landmark.Set) Pose {
	if len(s.Points()) < MinPoints {
		return Pose{}
	}

	dist := s.LeftEye.Dist(s.RightEye)
	if dist == 0 {
		return Pose{}
	}

	eyeVecY := float64(s.RightEye.Y-s.LeftEye.Y) / dist
	center := s.EyeCenter()

	expected := dist * noseRatio
	pitch := (float64(s.Nose.Y-center.Y) - expected) / expected

	mouthX := float64(s.MouthLeft.X+s.MouthRight.X) / 2
	faceX := float64(s.FaceTopLeft.X+s.FaceTopRight.X) / 2
	roll := (mouthX - faceX) / dist

	return Pose{
		Pitch: clamp(pitch, -1, 1),
		Yaw:   clamp(-eyeVecY, -1, 1),
		Roll:  clamp(roll, -maxRoll, maxRoll),
	}
}

// Moved reports whether any axis changed by more than MoveThreshold
func Moved(cur, prev Pose) bool {
	return math.Abs(cur.Pitch-prev.Pitch) > MoveThreshold ||
		math.Abs(cur.Yaw-prev.Yaw) > MoveThreshold ||
		math.Abs(cur.Roll-prev.Roll) > MoveThreshold
}

// Degrees converts the normalized pose to approximate degrees
func (p Pose) Degrees() Pose {
	return Pose{
		Pitch: p.Pitch * degreesPerUnit,
		Yaw:   p.Yaw * degreesPerUnit,
		Roll:  p.Roll * degreesPerUnit,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
