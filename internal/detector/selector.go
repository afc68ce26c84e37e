package detector

import (
	"image"

	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/log"
)

// autoOrder is the automatic fallback chain, most accurate first. It also
// breaks ties after an explicit preference.
var autoOrder = []Kind{KindYOLO, KindYuNet, KindCascade}

// Order returns the try-order for a preference: the preferred backend first,
// then the remaining ones in automatic order
func Order(pref Kind) []Kind {
	if pref == KindAuto {
		return append([]Kind(nil), autoOrder...)
	}

	order := make([]Kind, 0, len(autoOrder))
	order = append(order, pref)
	for _, k := range autoOrder {
		if k != pref {
			order = append(order, k)
		}
	}
	return order
}

// Selector runs backends in preference order until one finds a face
type Selector struct {
	backends   map[Kind]Backend
	preference Kind
	log        *logrus.Entry
	last       Kind
}

// NewSelector creates a selector over the given backends. Kinds without a
// backend are skipped when building the chain.
func NewSelector(logger *logrus.Entry, preference Kind, backends ...Backend) *Selector {
	s := &Selector{
		backends:   make(map[Kind]Backend, len(backends)),
		preference: KindFromInt(int(preference)),
		log:        log.OrDiscard(logger),
		last:       KindAuto,
	}
	for _, b := range backends {
		if b != nil {
			s.backends[b.Kind()] = b
		}
	}
	return s
}

// Preference returns the configured backend preference
func (s *Selector) Preference() Kind {
	return s.preference
}

// SetPreference changes the backend preference for subsequent detections
func (s *Selector) SetPreference(pref Kind) {
	pref = KindFromInt(int(pref))
	if pref == s.preference {
		return
	}
	s.preference = pref
	s.log.WithFields(logrus.Fields{
		"preference": pref.String(),
		"order":      Order(pref),
	}).Info("face detector preference changed")
}

// Backend returns the backend registered for a kind
func (s *Selector) Backend(k Kind) (Backend, bool) {
	b, ok := s.backends[k]
	return b, ok
}

// Detect tries each backend in order and returns the first non-empty region
// with the kind that produced it. A miss returns the empty rectangle and KindAuto.
func (s *Selector) Detect(f *frame.Frame) (image.Rectangle, Kind) {
	if f.Empty() {
		return image.Rectangle{}, KindAuto
	}

	for _, k := range Order(s.preference) {
		b, ok := s.backends[k]
		if !ok {
			continue
		}
		region := ClampToFrame(b.Detect(f), f.Size())
		if IsEmpty(region) {
			continue
		}
		if k != s.last {
			s.log.WithField("backend", k.String()).Debug("face detected")
			s.last = k
		}
		return region, k
	}

	return image.Rectangle{}, KindAuto
}

// Reset drops the loaded model of one backend so it is loaded again on next use
func (s *Selector) Reset(k Kind) {
	if b, ok := s.backends[k]; ok {
		b.Reset()
	}
}

// Close releases every backend
func (s *Selector) Close() error {
	var firstErr error
	for _, b := range s.backends {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
