package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestFileResolver_SearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	touch(t, second, "haarcascade_eye.xml")
	want := touch(t, first, "haarcascade_eye.xml")

	r := NewFileResolver(first, second)
	r.lookupEnv = func(string) (string, bool) { return "", false }

	got, ok := r.Resolve(EyeCascade)
	if !ok {
		t.Fatal("expected eye cascade to resolve")
	}
	if got != want {
		t.Errorf("path: got %s, want %s", got, want)
	}
}

func TestFileResolver_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "face_detection_yunet_2023mar.onnx")
	override := touch(t, t.TempDir(), "custom.onnx")

	r := NewFileResolver(dir)
	r.lookupEnv = func(key string) (string, bool) {
		if key == YuNetModel.Env {
			return override, true
		}
		return "", false
	}

	got, ok := r.Resolve(YuNetModel)
	if !ok || got != override {
		t.Errorf("got (%s, %v), want (%s, true)", got, ok, override)
	}
}

func TestFileResolver_MissingEnvFallsBackToDirs(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "haarcascade_frontalface_default.xml")

	r := NewFileResolver(dir)
	r.lookupEnv = func(string) (string, bool) { return "/does/not/exist.xml", true }

	got, ok := r.Resolve(FaceCascade)
	if !ok || got != want {
		t.Errorf("got (%s, %v), want (%s, true)", got, ok, want)
	}
}

func TestFileResolver_NotFound(t *testing.T) {
	r := NewFileResolver(t.TempDir())
	r.dirs = r.dirs[:1]
	r.lookupEnv = func(string) (string, bool) { return "", false }

	if p, ok := r.Resolve(YOLOModel("s")); ok {
		t.Errorf("expected miss, got %s", p)
	}
}

func TestFileResolver_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "haarcascade_eye.xml"), 0o755); err != nil {
		t.Fatal(err)
	}

	r := NewFileResolver(dir)
	r.dirs = r.dirs[:1]
	r.lookupEnv = func(string) (string, bool) { return "", false }

	if _, ok := r.Resolve(EyeCascade); ok {
		t.Error("directory should not resolve as an asset")
	}
}

func TestYOLOModel(t *testing.T) {
	tests := []struct {
		variant string
		want    []string
	}{
		{"", []string{"yolov5n-face.onnx", "yolo-face.onnx"}},
		{"n", []string{"yolov5n-face.onnx", "yolo-face.onnx"}},
		{"S", []string{"yolov5s-face.onnx", "yolov5n-face.onnx", "yolo-face.onnx"}},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			got := YOLOModel(tt.variant).Files
			if len(got) != len(tt.want) {
				t.Fatalf("files: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("files[%d]: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}
