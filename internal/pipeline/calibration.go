package pipeline

import "github.com/dudu/gazetrack/internal/detector"

// MinCalibrationPoints is the number of points needed to finish calibration
const MinCalibrationPoints = 4

// CalibrationState is the progress of the calibration workflow
type CalibrationState int

const (
	Uncalibrated CalibrationState = iota
	Collecting
	Calibrated
)

func (s CalibrationState) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Calibrated:
		return "calibrated"
	default:
		return "uncalibrated"
	}
}

// calibration records reference points. The points are not used by any
// estimate yet.
type calibration struct {
	points []detector.Point
	state  CalibrationState
}

// StartCalibration clears collected points and begins collecting
func (e *Engine) StartCalibration() {
	e.points = nil
	e.state = Collecting
	e.log.Info("calibration started")
}

// AddCalibrationPoint records one reference point
func (e *Engine) AddCalibrationPoint(p detector.Point) {
	e.points = append(e.points, p)
	e.log.WithField("points", len(e.points)).Debug("calibration point added")
}

// FinishCalibration marks the engine calibrated when enough points were
// collected and reports whether it is calibrated
func (e *Engine) FinishCalibration() bool {
	if len(e.points) < MinCalibrationPoints {
		e.log.WithField("points", len(e.points)).Warn("not enough calibration points")
		return e.state == Calibrated
	}
	e.state = Calibrated
	e.log.WithField("points", len(e.points)).Info("calibration finished")
	return true
}

// IsCalibrated reports whether calibration finished successfully
func (e *Engine) IsCalibrated() bool {
	return e.state == Calibrated
}

// CalibrationState returns the workflow state
func (e *Engine) CalibrationState() CalibrationState {
	return e.state
}

// CalibrationPoints returns a copy of the collected points
func (e *Engine) CalibrationPoints() []detector.Point {
	return append([]detector.Point(nil), e.points...)
}
