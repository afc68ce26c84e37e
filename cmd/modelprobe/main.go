package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tsawler/go-metal/checkpoints"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dudu/gazetrack/internal/assets"
	"github.com/dudu/gazetrack/internal/config"
	"github.com/dudu/gazetrack/internal/inference"
)

type Flags struct {
	Model   string
	Asset   string
	Variant string
	Library string
	Metal   bool
}

func main() {
	f := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if f.Library == "" {
		f.Library = cfg.ORTLibrary
	}

	path, err := modelPath(f, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := probeRuntime(path, f.Library); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if f.Metal {
		probeMetal(path)
	}
}

func parseFlags() Flags {
	f := Flags{}

	flag.StringVar(&f.Model, "model", "", "Path to an ONNX model")
	flag.StringVar(&f.Model, "m", "", "Path to an ONNX model (shorthand)")
	flag.StringVar(&f.Asset, "asset", "", "Resolve a bundled model instead: yolo or yunet")
	flag.StringVar(&f.Variant, "variant", "", "YOLO model size when --asset=yolo")
	flag.StringVar(&f.Library, "lib", "", "ONNX Runtime shared library (overrides env)")
	flag.BoolVar(&f.Metal, "metal", false, "Also try importing the model with go-metal")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "modelprobe - check that a face model loads\n\n")
		fmt.Fprintf(os.Stderr, "Usage: modelprobe --model face.onnx | --asset yolo|yunet [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return f
}

// modelPath picks the explicit model or resolves a known asset through the
// same search path the tracker uses
func modelPath(f Flags, cfg config.Config) (string, error) {
	if f.Model != "" {
		if _, err := os.Stat(f.Model); err != nil {
			return "", fmt.Errorf("model not found: %s", f.Model)
		}
		return f.Model, nil
	}

	variant := cfg.YOLOVariant
	if f.Variant != "" {
		variant = f.Variant
	}

	var asset assets.Asset
	switch f.Asset {
	case "yolo":
		asset = assets.YOLOModel(variant)
	case "yunet":
		asset = assets.YuNetModel
	case "":
		return "", fmt.Errorf("--model or --asset is required")
	default:
		return "", fmt.Errorf("unknown asset %q", f.Asset)
	}

	resolver := assets.NewFileResolver(cfg.Engine().ModelDirs...)
	path, ok := resolver.Resolve(asset)
	if !ok {
		return "", fmt.Errorf("%s model not found in %v", asset.Name, resolver.Dirs())
	}
	return path, nil
}

func probeRuntime(path, library string) error {
	fmt.Printf("Model: %s\n", path)

	if err := inference.Initialize(library); err != nil {
		return err
	}
	defer inference.Shutdown()

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return fmt.Errorf("failed to read model info: %w", err)
	}

	fmt.Printf("\nInputs (%d):\n", len(inputs))
	for _, info := range inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	fmt.Printf("\nOutputs (%d):\n", len(outputs))
	for _, info := range outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", info.Name, info.Dimensions, info.DataType)
	}

	metadata, err := ort.GetModelMetadata(path)
	if err != nil {
		fmt.Printf("\nMetadata unavailable: %v\n", err)
	} else {
		defer metadata.Destroy()
		fmt.Println("\nMetadata:")
		if producer, err := metadata.GetProducerName(); err == nil {
			fmt.Printf("  Producer: %s\n", producer)
		}
		if version, err := metadata.GetVersion(); err == nil {
			fmt.Printf("  Version: %d\n", version)
		}
		if domain, err := metadata.GetDomain(); err == nil {
			fmt.Printf("  Domain: %s\n", domain)
		}
		if desc, err := metadata.GetDescription(); err == nil {
			fmt.Printf("  Description: %s\n", desc)
		}
	}

	// a session is what the detectors actually build
	session, err := inference.NewSession(path)
	if err != nil {
		return err
	}
	defer session.Destroy()
	fmt.Printf("\nSession ready, %d outputs\n", session.OutputCount())
	return nil
}

// probeMetal reports whether go-metal can import the graph. Most detection
// models use operators it does not support, which is not an error here.
func probeMetal(path string) {
	fmt.Println("\ngo-metal import:")
	checkpoint, err := checkpoints.NewONNXImporter().ImportFromONNX(path)
	if err != nil {
		fmt.Printf("  unsupported: %v\n", err)
		return
	}

	fmt.Printf("  Layers: %d\n", len(checkpoint.ModelSpec.Layers))
	fmt.Printf("  Weights: %d tensors\n", len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
}
