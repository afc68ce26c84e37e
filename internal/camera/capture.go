package camera

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/frame"
)

// ErrClosed is returned when reading from a closed capture
var ErrClosed = errors.New("capture is closed")

// ErrNoFrame is returned when the source produced no frame, e.g. at the end
// of a video file
var ErrNoFrame = errors.New("no frame captured")

// Capture reads frames from a webcam or a video file
type Capture struct {
	video     *gocv.VideoCapture
	source    string
	targetFPS int
	width     int
	height    int
	buf       gocv.Mat
	mu        sync.Mutex
}

// Open opens a capture source. A numeric source is a device id, anything
// else is a video file or stream URL.
func Open(source string, targetFPS, width, height int) (*Capture, error) {
	var (
		video *gocv.VideoCapture
		err   error
	)
	if id, convErr := strconv.Atoi(source); convErr == nil {
		video, err = gocv.OpenVideoCapture(id)
	} else {
		video, err = gocv.VideoCaptureFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", source, err)
	}

	if width > 0 && height > 0 {
		video.Set(gocv.VideoCaptureFrameWidth, float64(width))
		video.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	if targetFPS > 0 {
		video.Set(gocv.VideoCaptureFPS, float64(targetFPS))
	}

	// the device may not support the requested resolution
	return &Capture{
		video:     video,
		source:    source,
		targetFPS: targetFPS,
		width:     int(video.Get(gocv.VideoCaptureFrameWidth)),
		height:    int(video.Get(gocv.VideoCaptureFrameHeight)),
		buf:       gocv.NewMat(),
	}, nil
}

// Read captures a frame into the provided Mat
func (c *Capture) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video == nil {
		return false
	}
	return c.video.Read(dst)
}

// Next captures one frame. The caller owns and must close it.
func (c *Capture) Next() (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video == nil {
		return nil, ErrClosed
	}
	if !c.video.Read(&c.buf) || c.buf.Empty() {
		return nil, ErrNoFrame
	}
	return frame.New(c.buf)
}

// Source returns the device id or path the capture was opened with
func (c *Capture) Source() string {
	return c.source
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the capture device
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.video == nil {
		return nil
	}
	err := c.video.Close()
	c.video = nil
	c.buf.Close()
	return err
}
