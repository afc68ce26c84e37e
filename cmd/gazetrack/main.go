package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/camera"
	"github.com/dudu/gazetrack/internal/config"
	"github.com/dudu/gazetrack/internal/detector"
	"github.com/dudu/gazetrack/internal/inference"
	"github.com/dudu/gazetrack/internal/log"
	"github.com/dudu/gazetrack/internal/pipeline"
	"github.com/dudu/gazetrack/internal/stream"
	"github.com/dudu/gazetrack/internal/ui"
)

func init() {
	// OpenCV highgui needs the main OS thread on macOS
	runtime.LockOSThread()
}

type Flags struct {
	Source    string
	TargetFPS int
	Width     int
	Height    int
	Preview   bool
	Serve     string
	Backend   string
	Variant   string
	Focal     float64
	LogLevel  string
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.Source, "source", "0", "Camera device index or video file")
	flag.StringVar(&f.Source, "s", "0", "Camera device index or video file (shorthand)")
	flag.IntVar(&f.TargetFPS, "fps", 30, "Target frames per second")
	flag.IntVar(&f.Width, "width", 1280, "Requested capture width")
	flag.IntVar(&f.Height, "height", 720, "Requested capture height")
	flag.BoolVar(&f.Preview, "preview", true, "Show preview window")
	flag.BoolVar(&f.Preview, "p", true, "Show preview window (shorthand)")
	flag.StringVar(&f.Serve, "serve", "", "Stream results over websocket on this address, e.g. :8765")
	flag.StringVar(&f.Backend, "backend", "", "Face detector: auto, yolo, yunet or haar (overrides env)")
	flag.StringVar(&f.Backend, "b", "", "Face detector (shorthand)")
	flag.StringVar(&f.Variant, "variant", "", "YOLO model size: n, s, m, l or x (overrides env)")
	flag.Float64Var(&f.Focal, "focal", 0, "Camera focal length in pixels (overrides env)")
	flag.StringVar(&f.LogLevel, "log", "", "Log level: debug, info, warn or error (overrides env)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gazetrack - live face, gaze and posture tracking\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gazetrack [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys: c start calibration, space add calibration point, f finish calibration,\n")
		fmt.Fprintf(os.Stderr, "      1-4 select detector (auto, yolo, yunet, haar), q or ESC quit\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  gazetrack --backend yunet\n")
		fmt.Fprintf(os.Stderr, "  gazetrack --source clip.mp4 --preview=false --serve :8765\n")
	}

	flag.Parse()
	return f
}

func run(f Flags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if f.Backend != "" {
		cfg.Backend = f.Backend
	}
	if f.Variant != "" {
		cfg.YOLOVariant = f.Variant
	}
	if f.Focal > 0 {
		cfg.FocalLength = f.Focal
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.NewLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	entry := logrus.NewEntry(logger)

	engine := pipeline.New(cfg.Engine(), pipeline.WithLogger(entry))
	defer engine.Close()
	defer inference.Shutdown()

	cam, err := camera.Open(f.Source, f.TargetFPS, f.Width, f.Height)
	if err != nil {
		return err
	}
	defer cam.Close()
	entry.WithFields(logrus.Fields{
		"source": cam.Source(),
		"width":  cam.Width(),
		"height": cam.Height(),
	}).Info("capture opened")

	var hub *stream.Hub
	if f.Serve != "" {
		hub = stream.NewHub(entry)
		srv := &http.Server{Addr: f.Serve, Handler: hub, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				entry.WithError(err).Error("stream server stopped")
			}
		}()
		defer func() {
			hub.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		entry.WithField("addr", f.Serve).Info("streaming results")
	}

	var window *ui.Window
	if f.Preview {
		window = ui.NewWindow("gazetrack", cam.Width(), cam.Height())
		defer window.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	entry.Info("running, press q to quit")

	for {
		select {
		case <-sigChan:
			entry.Info("shutting down")
			return nil
		default:
		}

		frame, err := cam.Next()
		if errors.Is(err, camera.ErrNoFrame) {
			if !isDevice(f.Source) {
				entry.Info("end of input")
				return nil
			}
			continue
		}
		if err != nil {
			return err
		}

		result := engine.ProcessFrame(frame, nil)
		timing := engine.LastTiming()
		entry.WithFields(logrus.Fields{
			"detected":  result.FaceDetected,
			"backend":   result.Backend,
			"detect_ms": timing.Detection.Milliseconds(),
			"total_ms":  timing.Total.Milliseconds(),
		}).Debug("frame processed")

		if hub != nil {
			if err := hub.Publish("result", result); err != nil {
				entry.WithError(err).Warn("failed to publish result")
			}
		}

		if window != nil {
			img := frame.Color().Clone()
			status := fmt.Sprintf("%s  %s", engine.Backend(), engine.CalibrationState())
			window.Show(&img, result, status)
			img.Close()

			if quit := handleKey(window.WaitKey(1), engine, result); quit {
				frame.Close()
				return nil
			}
		}
		frame.Close()
	}
}

// handleKey applies a preview key press and reports whether to quit
func handleKey(key int, engine *pipeline.Engine, last pipeline.Result) bool {
	switch key {
	case 'q', 27:
		return true
	case 'c':
		engine.StartCalibration()
	case ' ':
		if last.FaceDetected {
			// calibrate on the face center, in normalized coordinates
			engine.AddCalibrationPoint(detector.Point{
				X: float32(last.FaceRect.X + last.FaceRect.Width/2),
				Y: float32(last.FaceRect.Y + last.FaceRect.Height/2),
			})
		}
	case 'f':
		engine.FinishCalibration()
	case '1', '2', '3', '4':
		engine.SetBackend(detector.KindFromInt(key - '1'))
	}
	return false
}

func isDevice(source string) bool {
	for _, r := range source {
		if r < '0' || r > '9' {
			return false
		}
	}
	return source != ""
}
