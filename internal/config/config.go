// Package config loads tracker settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/dudu/gazetrack/internal/detector"
	"github.com/dudu/gazetrack/internal/inference"
	"github.com/dudu/gazetrack/internal/pipeline"
)

const (
	EnvBackend     = "GAZETRACK_FACE_BACKEND"
	EnvYOLOVariant = "GAZETRACK_YOLO_VARIANT"
	EnvFocalLength = "GAZETRACK_FOCAL_LENGTH"
	EnvPrincipalX  = "GAZETRACK_PRINCIPAL_X"
	EnvPrincipalY  = "GAZETRACK_PRINCIPAL_Y"
	EnvModelDir    = "GAZETRACK_MODEL_DIR"
	EnvORTLibrary  = "GAZETRACK_ORT_LIBRARY"
	EnvLogLevel    = "GAZETRACK_LOG_LEVEL"
	EnvLogFile     = "GAZETRACK_LOG_FILE"
)

// Config holds every tracker setting
type Config struct {
	Backend     string
	YOLOVariant string  `validate:"omitempty,oneof=n s m l x"`
	FocalLength float64 `validate:"gte=0"`
	PrincipalX  float64
	PrincipalY  float64
	ModelDir    string `validate:"required"`
	ORTLibrary  string
	LogLevel    string `validate:"oneof=debug info warn warning error"`
	LogFile     string
}

// Default returns the settings used when nothing is configured
func Default() Config {
	return Config{
		Backend:     "auto",
		FocalLength: pipeline.DefaultFocalLength,
		ModelDir:    "models",
		ORTLibrary:  inference.DefaultLibraryPath(),
		LogLevel:    "info",
	}
}

// NewValidator returns the validator used for Config
func NewValidator() *validator.Validate {
	return validator.New()
}

// Load reads the given .env files (default ".env"), then the environment.
// Missing .env files are ignored.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := Default()
	var err error

	cfg.Backend = stringEnv(EnvBackend, cfg.Backend)
	cfg.YOLOVariant = strings.ToLower(stringEnv(EnvYOLOVariant, cfg.YOLOVariant))
	cfg.ModelDir = stringEnv(EnvModelDir, cfg.ModelDir)
	cfg.ORTLibrary = stringEnv(EnvORTLibrary, cfg.ORTLibrary)
	cfg.LogLevel = strings.ToLower(stringEnv(EnvLogLevel, cfg.LogLevel))
	cfg.LogFile = stringEnv(EnvLogFile, cfg.LogFile)

	if cfg.FocalLength, err = floatEnv(EnvFocalLength, cfg.FocalLength); err != nil {
		return Config{}, err
	}
	if cfg.PrincipalX, err = floatEnv(EnvPrincipalX, cfg.PrincipalX); err != nil {
		return Config{}, err
	}
	if cfg.PrincipalY, err = floatEnv(EnvPrincipalY, cfg.PrincipalY); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c Config) Validate() error {
	if err := NewValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Engine maps the settings onto an engine configuration
func (c Config) Engine() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	cfg.Backend = detector.ParseKind(c.Backend)
	cfg.YOLOVariant = c.YOLOVariant
	cfg.FocalLength = c.FocalLength
	cfg.PrincipalPoint = detector.Point{X: float32(c.PrincipalX), Y: float32(c.PrincipalY)}
	cfg.ModelDirs = []string{c.ModelDir}
	cfg.ORTLibrary = c.ORTLibrary
	return cfg
}

func stringEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func floatEnv(key string, fallback float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}
