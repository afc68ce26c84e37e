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

// YuNet output row layout: x, y, w, h, 5 landmark pairs, score
const (
	yunetCols     = 15
	yunetScoreCol = 14
)

// YuNet detects faces with OpenCV's FaceDetectorYN single-shot network
type YuNet struct {
	loadTracker
	resolver       assets.Resolver
	log            *logrus.Entry
	net            gocv.FaceDetectorYN
	scoreThreshold float32
	nmsThreshold   float32
	topK           int
}

// NewYuNet creates a YuNet backend. The network loads on first Detect.
func NewYuNet(resolver assets.Resolver, logger *logrus.Entry, scoreThreshold float32) *YuNet {
	return &YuNet{
		resolver:       resolver,
		log:            log.OrDiscard(logger),
		scoreThreshold: scoreThreshold,
		nmsThreshold:   0.3,
		topK:           5000,
	}
}

// Kind implements Backend
func (y *YuNet) Kind() Kind {
	return KindYuNet
}

func (y *YuNet) load() (err error) {
	path, ok := y.resolver.Resolve(assets.YuNetModel)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModelNotFound, assets.YuNetModel.Name)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to load yunet model %s: %v", path, r)
		}
	}()

	y.net = gocv.NewFaceDetectorYNWithParams(path, "", image.Pt(320, 320),
		y.scoreThreshold, y.nmsThreshold, y.topK, 0, 0)
	return nil
}

// Detect returns the highest scoring face at or above the score threshold
func (y *YuNet) Detect(f *frame.Frame) (region image.Rectangle) {
	if f.Empty() || !y.ensure(KindYuNet, y.log, y.load) {
		return image.Rectangle{}
	}
	defer recoverMiss(KindYuNet, y.log, &region)

	size := f.Size()
	y.net.SetInputSize(size)

	faces := gocv.NewMat()
	defer faces.Close()
	y.net.Detect(f.Color(), &faces)

	if faces.Empty() || faces.Cols() < yunetCols {
		return image.Rectangle{}
	}

	candidates := make([]Candidate, 0, faces.Rows())
	for i := 0; i < faces.Rows(); i++ {
		x := faces.GetFloatAt(i, 0)
		yy := faces.GetFloatAt(i, 1)
		w := faces.GetFloatAt(i, 2)
		h := faces.GetFloatAt(i, 3)
		candidates = append(candidates, Candidate{
			Box:   BoundingBox{X1: x, Y1: yy, X2: x + w, Y2: yy + h},
			Score: faces.GetFloatAt(i, yunetScoreCol),
		})
	}

	best, ok := bestAbove(candidates, y.scoreThreshold)
	if !ok {
		return image.Rectangle{}
	}
	return ClampToFrame(best.Box.Rect(), size)
}

// Reset implements Backend
func (y *YuNet) Reset() {
	if y.state == Loaded {
		y.net.Close()
	}
	y.reset()
}

// Close releases the network
func (y *YuNet) Close() error {
	y.Reset()
	return nil
}

// bestAbove picks the highest scoring candidate with score >= threshold
func bestAbove(candidates []Candidate, threshold float32) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		if c.Score < threshold || c.Box.Width() <= 0 || c.Box.Height() <= 0 {
			continue
		}
		if !found || c.Score > best.Score {
			best = c
			found = true
		}
	}
	return best, found
}
