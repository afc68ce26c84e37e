package assets

import (
	"os"
	"path/filepath"
	"strings"
)

// Asset describes a model or classifier file and where to look for it
type Asset struct {
	Name  string   // human readable, used in logs
	Env   string   // environment variable holding an explicit path
	Files []string // candidate file names, tried in order
}

// Resolver finds asset files on disk. A miss is reported with ok == false,
// never as an error.
type Resolver interface {
	Resolve(asset Asset) (path string, ok bool)
}

// Well-known OpenCV data directories searched after the configured ones
var systemDirs = []string{
	"/usr/share/opencv4/haarcascades",
	"/usr/local/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
}

var (
	FaceCascade = Asset{
		Name:  "face cascade",
		Env:   "GAZETRACK_FACE_CASCADE",
		Files: []string{"haarcascade_frontalface_default.xml"},
	}
	EyeCascade = Asset{
		Name:  "eye cascade",
		Env:   "GAZETRACK_EYE_CASCADE",
		Files: []string{"haarcascade_eye.xml"},
	}
	YuNetModel = Asset{
		Name:  "yunet",
		Env:   "GAZETRACK_YUNET_MODEL",
		Files: []string{"face_detection_yunet_2023mar.onnx", "face_detection_yunet.onnx"},
	}
)

// YOLOModel returns the YOLO face model asset for a size variant (n/s/m/l/x).
// An empty variant resolves the nano model.
func YOLOModel(variant string) Asset {
	variant = strings.ToLower(strings.TrimSpace(variant))
	files := make([]string, 0, 3)
	if variant != "" {
		files = append(files, "yolov5"+variant+"-face.onnx")
	}
	if variant != "n" {
		files = append(files, "yolov5n-face.onnx")
	}
	files = append(files, "yolo-face.onnx")

	return Asset{
		Name:  "yolo",
		Env:   "GAZETRACK_YOLO_MODEL",
		Files: files,
	}
}

// FileResolver resolves assets from an environment override first, then
// from a list of directories.
type FileResolver struct {
	dirs      []string
	lookupEnv func(string) (string, bool)
}

// NewFileResolver creates a resolver searching dirs followed by the
// system OpenCV data directories
func NewFileResolver(dirs ...string) *FileResolver {
	all := make([]string, 0, len(dirs)+len(systemDirs))
	for _, d := range dirs {
		if d != "" {
			all = append(all, d)
		}
	}
	all = append(all, systemDirs...)

	return &FileResolver{
		dirs:      all,
		lookupEnv: os.LookupEnv,
	}
}

// Dirs returns the search path in order
func (r *FileResolver) Dirs() []string {
	return append([]string(nil), r.dirs...)
}

// Resolve implements Resolver
func (r *FileResolver) Resolve(asset Asset) (string, bool) {
	if asset.Env != "" {
		if p, ok := r.lookupEnv(asset.Env); ok && p != "" && isFile(p) {
			return p, true
		}
	}

	for _, dir := range r.dirs {
		for _, name := range asset.Files {
			p := filepath.Join(dir, name)
			if isFile(p) {
				return p, true
			}
		}
	}

	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
