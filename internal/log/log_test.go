package log

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := NewLogger(Options{Level: "warn", NoColors: true})
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v, want warn", logger.GetLevel())
	}
}

func TestNewLogger_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "gazetrack.log")
	logger := NewLogger(Options{Level: "info", File: file, NoColors: true})
	logger.Info("hello")
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}

	entry := logrus.NewEntry(logrus.New())
	if OrDiscard(entry) != entry {
		t.Error("OrDiscard should return the given entry")
	}
}
