package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/dudu/gazetrack/internal/config"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/inference"
	"github.com/dudu/gazetrack/internal/log"
	"github.com/dudu/gazetrack/internal/pipeline"
)

type Flags struct {
	Image    string
	Backend  string
	MaxSize  int
	Region   string
	Focal    float64
	LogLevel string
}

// Output is the JSON document printed for an image
type Output struct {
	Image  string           `json:"image"`
	Width  int              `json:"width"`
	Height int              `json:"height"`
	Result pipeline.Result  `json:"result"`
	Timing map[string]int64 `json:"timing_us"`
}

func main() {
	f := parseFlags()

	if f.Image == "" {
		fmt.Fprintln(os.Stderr, "Error: --image flag is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.Image, "image", "", "Image file to analyze (required)")
	flag.StringVar(&f.Image, "i", "", "Image file to analyze (shorthand)")
	flag.StringVar(&f.Backend, "backend", "", "Face detector: auto, yolo, yunet or haar (overrides env)")
	flag.IntVar(&f.MaxSize, "max", 1280, "Downscale images larger than this on their longest side, 0 disables")
	flag.StringVar(&f.Region, "region", "", "Face region override as x,y,w,h fractions of the image")
	flag.Float64Var(&f.Focal, "focal", 0, "Camera focal length in pixels (overrides env)")
	flag.StringVar(&f.LogLevel, "log", "warn", "Log level")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "trackimage - print the tracking reading of one image as JSON\n\n")
		fmt.Fprintf(os.Stderr, "Usage: trackimage --image photo.jpg [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
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
	if f.Focal > 0 {
		cfg.FocalLength = f.Focal
	}

	logger := log.NewLogger(log.Options{Level: f.LogLevel, File: cfg.LogFile})
	engine := pipeline.New(cfg.Engine(), pipeline.WithLogger(logrus.NewEntry(logger)))
	defer engine.Close()
	defer inference.Shutdown()

	img, err := imaging.Open(f.Image, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	img = fit(img, f.MaxSize)

	fr, err := frame.FromImage(img)
	if err != nil {
		return fmt.Errorf("failed to convert image: %w", err)
	}
	defer fr.Close()

	var result pipeline.Result
	if f.Region != "" {
		x, y, w, h, err := parseRegion(f.Region)
		if err != nil {
			return err
		}
		result = engine.ProcessFrameNormalized(fr, x, y, w, h)
	} else {
		result = engine.ProcessFrame(fr, nil)
	}

	timing := engine.LastTiming()
	size := fr.Size()
	out := Output{
		Image:  f.Image,
		Width:  size.X,
		Height: size.Y,
		Result: result,
		Timing: map[string]int64{
			"detection": timing.Detection.Microseconds(),
			"landmarks": timing.Landmarks.Microseconds(),
			"shoulders": timing.Shoulders.Microseconds(),
			"total":     timing.Total.Microseconds(),
		},
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// fit downscales img so its longest side is at most maxSize
func fit(img image.Image, maxSize int) image.Image {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}
	return imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
}

func parseRegion(s string) (x, y, w, h float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("region %q: want x,y,w,h", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		if vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("region %q: %w", s, err)
		}
	}
	return vals[0], vals[1], vals[2], vals[3], nil
}
