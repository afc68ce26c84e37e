package pipeline

import (
	"errors"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/assets"
	"github.com/dudu/gazetrack/internal/detector"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/gaze"
	"github.com/dudu/gazetrack/internal/landmark"
	"github.com/dudu/gazetrack/internal/log"
	"github.com/dudu/gazetrack/internal/pose"
	"github.com/dudu/gazetrack/internal/shoulder"
)

const (
	// AverageFaceWidth is the assumed real face width in centimeters
	AverageFaceWidth = 14.0
	// DefaultFocalLength is used until camera parameters are set
	DefaultFocalLength = 1000.0
	// DefaultFaceScoreThreshold is the minimum YuNet detection score
	DefaultFaceScoreThreshold = 0.6

	measuredConfidence     = 1.0
	proportionalConfidence = 0.5
)

// Config holds engine configuration
type Config struct {
	Backend            Backend
	YOLOVariant        string
	FocalLength        float64
	PrincipalPoint     detector.Point
	ModelDirs          []string
	ORTLibrary         string
	FaceScoreThreshold float32
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		Backend:            BackendAuto,
		FocalLength:        DefaultFocalLength,
		ModelDirs:          []string{"models"},
		FaceScoreThreshold: DefaultFaceScoreThreshold,
	}
}

// Timing holds per-stage durations of the last processed frame
type Timing struct {
	Detection time.Duration
	Landmarks time.Duration
	Shoulders time.Duration
	Total     time.Duration
}

// Rect is a face region normalized to frame width and height
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Result is the tracking reading for one frame. A frame without a face
// yields the zero Result.
type Result struct {
	FaceDetected    bool             `json:"face_detected"`
	FaceRect        Rect             `json:"face_rect"`
	FaceDistance    float64          `json:"face_distance"`
	GazeAngle       gaze.Angle       `json:"gaze_angle"`
	EyesFocused     bool             `json:"eyes_focused"`
	HeadMoving      bool             `json:"head_moving"`
	ShouldersMoving bool             `json:"shoulders_moving"`
	Landmarks       []detector.Point `json:"landmarks,omitempty"`
	HeadPose        pose.Pose        `json:"head_pose"` // degrees
	GazeVector      [3]float64       `json:"gaze_vector"`
	Confidence      float64          `json:"confidence"`
	Backend         string           `json:"backend,omitempty"`
}

// Option customizes engine construction
type Option func(*options)

type options struct {
	logger   *logrus.Entry
	resolver assets.Resolver
	backends []detector.Backend
	eyes     landmark.EyeFinder
	eyesSet  bool
}

// WithLogger sets the parent log entry. The engine adds its own engine_id.
func WithLogger(entry *logrus.Entry) Option {
	return func(o *options) { o.logger = entry }
}

// WithResolver replaces the file resolver built from Config.ModelDirs
func WithResolver(r assets.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithBackends replaces the default YOLO, YuNet and cascade backends
func WithBackends(backends ...detector.Backend) Option {
	return func(o *options) { o.backends = backends }
}

// WithEyeFinder replaces the eye cascade. A nil finder disables eye detection.
func WithEyeFinder(f landmark.EyeFinder) Option {
	return func(o *options) {
		o.eyes = f
		o.eyesSet = true
	}
}

// Engine turns frames into tracking results. It keeps the previous pose,
// previous shoulder points and calibration state between calls and is not
// safe for concurrent use.
type Engine struct {
	id  string
	log *logrus.Entry

	faces     FaceDetector
	landmarks LandmarkEstimator
	closers   []io.Closer

	focalLength    float64
	principalPoint detector.Point
	yoloVariant    string

	prevPose      pose.Pose
	prevShoulders []detector.Point

	calibration
	lastTiming Timing
}

// New creates an engine. Models are loaded lazily by the first frames.
func New(cfg Config, opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	logger := log.OrDiscard(o.logger).WithField("engine_id", id)

	resolver := o.resolver
	if resolver == nil {
		resolver = assets.NewFileResolver(cfg.ModelDirs...)
	}

	threshold := cfg.FaceScoreThreshold
	if threshold <= 0 {
		threshold = DefaultFaceScoreThreshold
	}

	variant := detector.NormalizeVariant(cfg.YOLOVariant)
	backends := o.backends
	if backends == nil {
		backends = []detector.Backend{
			detector.NewYOLO(resolver, logger, cfg.ORTLibrary, variant),
			detector.NewYuNet(resolver, logger, threshold),
			detector.NewCascade(resolver, logger),
		}
	}

	eyes := o.eyes
	if !o.eyesSet {
		eyes = landmark.NewCascadeEyeFinder(resolver, logger)
	}

	e := &Engine{
		id:             id,
		log:            logger,
		faces:          detector.NewSelector(logger, cfg.Backend, backends...),
		landmarks:      landmark.NewEstimator(eyes),
		focalLength:    cfg.FocalLength,
		principalPoint: cfg.PrincipalPoint,
		yoloVariant:    variant,
	}
	if c, ok := eyes.(io.Closer); ok {
		e.closers = append(e.closers, c)
	}

	logger.WithFields(logrus.Fields{
		"preference": e.faces.Preference().String(),
		"order":      detector.Order(e.faces.Preference()),
		"focal":      cfg.FocalLength,
	}).Info("tracking engine created")

	return e
}

// ID returns the engine instance id used in logs
func (e *Engine) ID() string {
	return e.id
}

// ProcessFrame produces the tracking result for one frame. A non-empty
// override region is used instead of running face detection.
func (e *Engine) ProcessFrame(f *frame.Frame, override *image.Rectangle) Result {
	totalStart := time.Now()
	var timing Timing
	defer func() {
		timing.Total = time.Since(totalStart)
		e.lastTiming = timing
	}()

	if f.Empty() {
		return Result{}
	}
	size := f.Size()

	detectStart := time.Now()
	region, source := e.resolveRegion(f, override)
	timing.Detection = time.Since(detectStart)

	if detector.IsEmpty(region) {
		return Result{}
	}

	result := Result{
		FaceDetected: true,
		FaceRect:     normalize(region, size),
		FaceDistance: CalculateDistance(region.Dx(), e.focalLength),
		Backend:      source,
	}

	landmarkStart := time.Now()
	set := e.landmarks.Estimate(f, region)
	timing.Landmarks = time.Since(landmarkStart)

	if eyePoints := set.EyePoints(); len(eyePoints) >= gaze.MinPoints {
		result.GazeAngle = gaze.Estimate(eyePoints)
		result.EyesFocused = gaze.Focused(result.GazeAngle)
	}
	result.GazeVector = gaze.Vector(result.GazeAngle)

	p := pose.Estimate(set)
	result.HeadMoving = pose.Moved(p, e.prevPose)
	result.HeadPose = p.Degrees()
	e.prevPose = p

	shoulderStart := time.Now()
	shoulders := shoulder.Estimate(f.Gray())
	timing.Shoulders = time.Since(shoulderStart)
	result.ShouldersMoving = shoulder.Moved(shoulders, e.prevShoulders)
	e.prevShoulders = shoulders

	result.Landmarks = set.Points()
	result.Confidence = proportionalConfidence
	if set.HasEyeCorners {
		result.Confidence = measuredConfidence
	}

	return result
}

// ProcessFrameNormalized is ProcessFrame with an override region given as
// fractions of the frame size
func (e *Engine) ProcessFrameNormalized(f *frame.Frame, x, y, width, height float64) Result {
	region := frame.NormalizedRegion(x, y, width, height, f.Size())
	return e.ProcessFrame(f, &region)
}

// resolveRegion returns the face region and the name of what produced it.
// Detected regions are expanded to the whole head; overrides are only clamped.
func (e *Engine) resolveRegion(f *frame.Frame, override *image.Rectangle) (image.Rectangle, string) {
	size := f.Size()

	if override != nil && !detector.IsEmpty(*override) {
		if region := detector.ClampToFrame(*override, size); !detector.IsEmpty(region) {
			return region, "override"
		}
	}

	region, kind := e.faces.Detect(f)
	if detector.IsEmpty(region) {
		return image.Rectangle{}, ""
	}
	return detector.Expand(region, size), kind.String()
}

func normalize(r image.Rectangle, size image.Point) Rect {
	w := float64(size.X)
	h := float64(size.Y)
	return Rect{
		X:      float64(r.Min.X) / w,
		Y:      float64(r.Min.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}

// CalculateDistance estimates the face distance in centimeters with a
// pinhole model. It returns 0 for non-positive inputs.
func CalculateDistance(regionWidth int, focalLength float64) float64 {
	if regionWidth <= 0 || focalLength <= 0 {
		return 0
	}
	return AverageFaceWidth * focalLength / float64(regionWidth)
}

// SetCameraParameters sets the focal length in pixels and the principal point
func (e *Engine) SetCameraParameters(focalLength float64, principalPoint detector.Point) {
	e.focalLength = focalLength
	e.principalPoint = principalPoint
	e.log.WithFields(logrus.Fields{
		"focal":     focalLength,
		"principal": principalPoint,
	}).Debug("camera parameters updated")
}

// CameraParameters returns the focal length and principal point
func (e *Engine) CameraParameters() (float64, detector.Point) {
	return e.focalLength, e.principalPoint
}

// SetBackend selects the preferred face detector
func (e *Engine) SetBackend(b Backend) {
	e.faces.SetPreference(detector.KindFromInt(int(b)))
}

// SetBackendByName selects the preferred face detector by name.
// Unknown names select automatic fallback.
func (e *Engine) SetBackendByName(name string) {
	e.SetBackend(detector.ParseKind(name))
}

// Backend returns the preferred face detector
func (e *Engine) Backend() Backend {
	return e.faces.Preference()
}

// SetYOLOVariant selects the YOLO model size (n, s, m, l or x). A change
// unloads the current model so the new one loads on the next frame.
func (e *Engine) SetYOLOVariant(v string) {
	e.yoloVariant = detector.NormalizeVariant(v)
	if b, ok := e.faces.Backend(detector.KindYOLO); ok {
		if vs, ok := b.(variantSetter); ok {
			vs.SetVariant(e.yoloVariant)
		}
	}
}

// YOLOVariant returns the selected YOLO model size, empty for the default
func (e *Engine) YOLOVariant() string {
	return e.yoloVariant
}

// LastTiming returns timing from the last ProcessFrame call
func (e *Engine) LastTiming() Timing {
	return e.lastTiming
}

// Close releases every model held by the engine
func (e *Engine) Close() error {
	var errs []error
	if err := e.faces.Close(); err != nil {
		errs = append(errs, err)
	}
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.log.Debug("tracking engine closed")
	return errors.Join(errs...)
}
