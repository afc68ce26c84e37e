package pipeline

import (
	"image"

	"github.com/dudu/gazetrack/internal/detector"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/landmark"
)

// Backend selects the face detector. Values match the host-facing enum.
type Backend = detector.Kind

const (
	BackendAuto        Backend = detector.KindAuto
	BackendYOLO        Backend = detector.KindYOLO
	BackendYuNet       Backend = detector.KindYuNet
	BackendHaarCascade Backend = detector.KindCascade
)

// FaceDetector finds the face region of a frame using a fallback chain
type FaceDetector interface {
	Detect(f *frame.Frame) (image.Rectangle, detector.Kind)
	Preference() detector.Kind
	SetPreference(pref detector.Kind)
	Backend(k detector.Kind) (detector.Backend, bool)
	Close() error
}

// LandmarkEstimator derives facial landmarks for a face region
type LandmarkEstimator interface {
	Estimate(f *frame.Frame, face image.Rectangle) landmark.Set
}

// variantSetter is implemented by backends with selectable model sizes
type variantSetter interface {
	Variant() string
	SetVariant(v string)
}

var (
	_ FaceDetector      = (*detector.Selector)(nil)
	_ LandmarkEstimator = (*landmark.Estimator)(nil)
	_ variantSetter     = (*detector.YOLO)(nil)
)
