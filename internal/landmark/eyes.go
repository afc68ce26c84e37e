package landmark

import (
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/assets"
	"github.com/dudu/gazetrack/internal/detector"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/log"
)

// EyeFinder locates eyes inside a grayscale face crop. Returned rectangles
// are relative to the crop.
type EyeFinder interface {
	FindEyes(face gocv.Mat) []image.Rectangle
}

// CascadeEyeFinder finds eyes with the OpenCV eye cascade. The classifier is
// loaded once, on first use; a missing classifier yields no eyes.
type CascadeEyeFinder struct {
	resolver assets.Resolver
	log      *logrus.Entry

	once       sync.Once
	loaded     bool
	classifier gocv.CascadeClassifier
}

// NewCascadeEyeFinder creates an eye finder backed by the eye cascade
func NewCascadeEyeFinder(resolver assets.Resolver, logger *logrus.Entry) *CascadeEyeFinder {
	return &CascadeEyeFinder{
		resolver: resolver,
		log:      log.OrDiscard(logger),
	}
}

func (c *CascadeEyeFinder) load() {
	path, ok := c.resolver.Resolve(assets.EyeCascade)
	if !ok {
		c.log.Warn("eye cascade not found, using proportional eye positions")
		return
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		c.log.WithField("path", path).Warn("failed to load eye cascade")
		return
	}

	c.classifier = classifier
	c.loaded = true
	c.log.WithField("path", path).Debug("eye cascade loaded")
}

// Loaded reports whether the classifier is available. It triggers loading.
func (c *CascadeEyeFinder) Loaded() bool {
	c.once.Do(c.load)
	return c.loaded
}

// FindEyes implements EyeFinder
func (c *CascadeEyeFinder) FindEyes(face gocv.Mat) (eyes []image.Rectangle) {
	if face.Empty() || !c.Loaded() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("eye detection failed: %v", r)
			eyes = nil
		}
	}()

	return c.classifier.DetectMultiScaleWithParams(face, 1.1, 2, 0, image.Pt(20, 20), image.Point{})
}

// Close releases the classifier
func (c *CascadeEyeFinder) Close() error {
	c.once.Do(func() {})
	if c.loaded {
		c.loaded = false
		return c.classifier.Close()
	}
	return nil
}

// Estimator produces landmark sets for detected faces
type Estimator struct {
	eyes EyeFinder
}

// NewEstimator creates an estimator. A nil finder always falls back to
// proportional eye positions.
func NewEstimator(eyes EyeFinder) *Estimator {
	return &Estimator{eyes: eyes}
}

// Estimate returns the landmarks for a face region of f. The region is
// clamped to the frame first.
func (e *Estimator) Estimate(f *frame.Frame, face image.Rectangle) Set {
	face = detector.ClampToFrame(face, f.Size())
	if detector.IsEmpty(face) || e.eyes == nil {
		return FromEyes(face, nil)
	}

	crop := f.Gray().Region(face)
	defer crop.Close()

	return FromEyes(face, e.eyes.FindEyes(crop))
}
