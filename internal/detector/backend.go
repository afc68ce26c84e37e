package detector

import (
	"errors"
	"image"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/log"
)

// ErrModelNotFound is returned by backend loaders when no model file resolves
var ErrModelNotFound = errors.New("model file not found")

// Kind identifies a face detection backend. Values match the host-facing enum.
type Kind int

const (
	KindAuto    Kind = 0
	KindYOLO    Kind = 1
	KindYuNet   Kind = 2
	KindCascade Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindYOLO:
		return "yolo"
	case KindYuNet:
		return "yunet"
	case KindCascade:
		return "haar"
	default:
		return "auto"
	}
}

// ParseKind maps a backend name to a Kind, case-insensitively.
// Unrecognized names select KindAuto.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yolo":
		return KindYOLO
	case "yunet":
		return KindYuNet
	case "haar", "haarcascade", "cascade":
		return KindCascade
	default:
		return KindAuto
	}
}

// KindFromInt maps a host enum value to a Kind; out of range values select KindAuto
func KindFromInt(v int) Kind {
	k := Kind(v)
	switch k {
	case KindYOLO, KindYuNet, KindCascade:
		return k
	default:
		return KindAuto
	}
}

// LoadState tracks lazy model loading. Transitions are monotonic until Reset.
type LoadState int

const (
	NotAttempted LoadState = iota
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "not-attempted"
	}
}

// Backend finds the single best face region in a frame. Detect returns the
// empty rectangle on a miss, including when the model is unavailable.
type Backend interface {
	Kind() Kind
	State() LoadState
	Detect(f *frame.Frame) image.Rectangle
	// Reset releases the model and allows the next Detect to load again
	Reset()
	Close() error
}

// loadTracker implements the sticky lazy-load state shared by all backends
type loadTracker struct {
	state LoadState
}

// State returns the current load state
func (t *loadTracker) State() LoadState {
	return t.state
}

// ensure runs load once. A failure is permanent until reset.
func (t *loadTracker) ensure(kind Kind, logger *logrus.Entry, load func() error) bool {
	switch t.state {
	case Loaded:
		return true
	case Failed:
		return false
	}

	logger = log.OrDiscard(logger)
	if err := load(); err != nil {
		t.state = Failed
		logger.WithField("backend", kind.String()).WithError(err).Warn("face detector unavailable")
		return false
	}

	t.state = Loaded
	logger.WithField("backend", kind.String()).Info("face detector loaded")
	return true
}

func (t *loadTracker) reset() {
	t.state = NotAttempted
}

// recoverMiss turns a panic raised during inference into a detection miss
func recoverMiss(kind Kind, logger *logrus.Entry, region *image.Rectangle) {
	if r := recover(); r != nil {
		logger.WithField("backend", kind.String()).Errorf("inference failed: %v", r)
		*region = image.Rectangle{}
	}
}
