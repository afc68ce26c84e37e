package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/pipeline"
)

var (
	green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	yellow = color.RGBA{R: 255, G: 220, B: 0, A: 255}
	red    = color.RGBA{R: 255, G: 60, B: 60, A: 255}
	cyan   = color.RGBA{R: 0, G: 220, B: 255, A: 255}
)

type line struct {
	text string
	c    color.RGBA
}

// Window manages the preview display
type Window struct {
	window     *gocv.Window
	name       string
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates a new preview window
func NewWindow(name string, width, height int) *Window {
	window := gocv.NewWindow(name)
	// force the window to appear on macOS
	window.ResizeWindow(width, height)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		lastFrame: time.Now(),
	}
}

// Show draws the tracking overlay on img and displays it
func (w *Window) Show(img *gocv.Mat, result pipeline.Result, status string) {
	w.frameCount++
	now := time.Now()

	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	DrawOverlay(img, result)
	gocv.PutText(img, fmt.Sprintf("FPS: %.1f  %s", w.fps, status), image.Pt(10, img.Rows()-12),
		gocv.FontHersheyPlain, 1.4, green, 2)

	w.window.IMShow(*img)
}

// DrawOverlay renders a tracking result onto a BGR frame
func DrawOverlay(img *gocv.Mat, r pipeline.Result) {
	if !r.FaceDetected {
		gocv.PutText(img, "no face", image.Pt(10, 30), gocv.FontHersheyPlain, 2, red, 2)
		return
	}

	fw := float64(img.Cols())
	fh := float64(img.Rows())
	face := image.Rect(
		int(r.FaceRect.X*fw),
		int(r.FaceRect.Y*fh),
		int((r.FaceRect.X+r.FaceRect.Width)*fw),
		int((r.FaceRect.Y+r.FaceRect.Height)*fh),
	)
	gocv.Rectangle(img, face, green, 2)

	for _, p := range r.Landmarks {
		gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 3, cyan, -1)
	}

	focus := red
	if r.EyesFocused {
		focus = green
	}

	lines := []line{
		{fmt.Sprintf("%s  %.0f cm  conf %.1f", r.Backend, r.FaceDistance, r.Confidence), green},
		{fmt.Sprintf("gaze %+.2f %+.2f", r.GazeAngle.X, r.GazeAngle.Y), focus},
		{fmt.Sprintf("pose p%+.0f y%+.0f r%+.0f", r.HeadPose.Pitch, r.HeadPose.Yaw, r.HeadPose.Roll), yellow},
	}
	if r.HeadMoving {
		lines = append(lines, line{"head moving", red})
	}
	if r.ShouldersMoving {
		lines = append(lines, line{"shoulders moving", red})
	}

	for i, l := range lines {
		gocv.PutText(img, l.text, image.Pt(10, 30+i*26), gocv.FontHersheyPlain, 1.6, l.c, 2)
	}
}

// WaitKey waits for key press, returns key code or -1
func (w *Window) WaitKey(delayMs int) int {
	return w.window.WaitKey(delayMs)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		return w.window.Close()
	}
	return nil
}
