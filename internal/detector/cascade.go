package detector

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/assets"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/log"
)

// Cascade detects faces with an OpenCV Haar cascade. It is the cheapest and
// least accurate backend and the last one tried in automatic mode.
type Cascade struct {
	loadTracker
	resolver     assets.Resolver
	log          *logrus.Entry
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
	minSize      image.Point
}

// NewCascade creates a cascade backend. The classifier loads on first Detect.
func NewCascade(resolver assets.Resolver, logger *logrus.Entry) *Cascade {
	return &Cascade{
		resolver:     resolver,
		log:          log.OrDiscard(logger),
		scaleFactor:  1.1,
		minNeighbors: 3,
		minSize:      image.Pt(30, 30),
	}
}

// Kind implements Backend
func (c *Cascade) Kind() Kind {
	return KindCascade
}

func (c *Cascade) load() error {
	path, ok := c.resolver.Resolve(assets.FaceCascade)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, assets.FaceCascade.Name)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return fmt.Errorf("failed to load face cascade %s", path)
	}

	c.classifier = classifier
	return nil
}

// Detect returns the largest face found by the cascade
func (c *Cascade) Detect(f *frame.Frame) (region image.Rectangle) {
	if f.Empty() || !c.ensure(KindCascade, c.log, c.load) {
		return image.Rectangle{}
	}
	defer recoverMiss(KindCascade, c.log, &region)

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(f.Gray(), &equalized)

	faces := c.classifier.DetectMultiScaleWithParams(
		equalized,
		c.scaleFactor,
		c.minNeighbors,
		0,
		c.minSize,
		image.Point{},
	)

	return ClampToFrame(largest(faces), f.Size())
}

// Reset implements Backend
func (c *Cascade) Reset() {
	if c.state == Loaded {
		c.classifier.Close()
	}
	c.reset()
}

// Close releases the classifier
func (c *Cascade) Close() error {
	c.Reset()
	return nil
}
