package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dudu/gazetrack/internal/detector"
)

var allKeys = []string{
	EnvBackend, EnvYOLOVariant, EnvFocalLength, EnvPrincipalX, EnvPrincipalY,
	EnvModelDir, EnvORTLibrary, EnvLogLevel, EnvLogFile,
}

// clearEnv blanks every key for the test; blank values read as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != "auto" || cfg.FocalLength != 1000 || cfg.ModelDir != "models" || cfg.LogLevel != "info" {
		t.Errorf("defaults: got %+v", cfg)
	}
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvBackend, "YuNet")
	t.Setenv(EnvYOLOVariant, "M")
	t.Setenv(EnvFocalLength, "812.5")
	t.Setenv(EnvPrincipalX, "320")
	t.Setenv(EnvPrincipalY, "240")
	t.Setenv(EnvModelDir, "/opt/models")
	t.Setenv(EnvLogLevel, "DEBUG")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.YOLOVariant != "m" || cfg.FocalLength != 812.5 || cfg.LogLevel != "debug" {
		t.Errorf("got %+v", cfg)
	}

	engine := cfg.Engine()
	if engine.Backend != detector.KindYuNet {
		t.Errorf("backend: got %v, want yunet", engine.Backend)
	}
	if engine.PrincipalPoint != (detector.Point{X: 320, Y: 240}) {
		t.Errorf("principal point: got %+v", engine.PrincipalPoint)
	}
	if len(engine.ModelDirs) != 1 || engine.ModelDirs[0] != "/opt/models" {
		t.Errorf("model dirs: got %v", engine.ModelDirs)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvFocalLength)
	os.Unsetenv(EnvBackend)

	file := filepath.Join(t.TempDir(), "test.env")
	content := EnvFocalLength + "=640\n" + EnvBackend + "=haar\n"
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv(EnvFocalLength)
		os.Unsetenv(EnvBackend)
	})

	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FocalLength != 640 || cfg.Engine().Backend != detector.KindCascade {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown variant", EnvYOLOVariant, "xxl"},
		{"negative focal length", EnvFocalLength, "-3"},
		{"non-numeric focal length", EnvFocalLength, "wide"},
		{"bad principal point", EnvPrincipalX, "center"},
		{"unknown log level", EnvLogLevel, "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(missingEnvFile(t)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEngine_UnknownBackendIsAuto(t *testing.T) {
	cfg := Default()
	cfg.Backend = "mediapipe"
	if got := cfg.Engine().Backend; got != detector.KindAuto {
		t.Errorf("got %v, want auto", got)
	}
}
