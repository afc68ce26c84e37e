package detector

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/gazetrack/internal/assets"
	"github.com/dudu/gazetrack/internal/frame"
	"github.com/dudu/gazetrack/internal/inference"
	"github.com/dudu/gazetrack/internal/log"
)

// yolov5-face rows carry 10 landmark values between objectness and the class score
const yoloFaceAttrs = 16

// YOLO detects faces with a grid-based YOLO network run through ONNX Runtime
type YOLO struct {
	loadTracker
	resolver      assets.Resolver
	log           *logrus.Entry
	session       *inference.Session
	libraryPath   string
	variant       string
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// NewYOLO creates a YOLO backend for a model size variant (n/s/m/l/x, empty
// for the default). The runtime and model load on first Detect.
func NewYOLO(resolver assets.Resolver, logger *logrus.Entry, libraryPath, variant string) *YOLO {
	return &YOLO{
		resolver:      resolver,
		log:           log.OrDiscard(logger),
		libraryPath:   libraryPath,
		variant:       NormalizeVariant(variant),
		inputSize:     640,
		confThreshold: 0.45,
		nmsThreshold:  0.35,
	}
}

// NormalizeVariant lowercases a model size code. Unknown codes become empty.
func NormalizeVariant(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "n", "s", "m", "l", "x":
		return v
	default:
		return ""
	}
}

// Kind implements Backend
func (y *YOLO) Kind() Kind {
	return KindYOLO
}

// Variant returns the configured model size code
func (y *YOLO) Variant() string {
	return y.variant
}

// SetVariant switches the model size. A change drops any loaded model so the
// new variant loads on the next Detect.
func (y *YOLO) SetVariant(v string) {
	v = NormalizeVariant(v)
	if v == y.variant {
		return
	}
	y.variant = v
	y.Reset()
	y.log.WithField("variant", v).Info("yolo model variant changed")
}

func (y *YOLO) load() error {
	asset := assets.YOLOModel(y.variant)
	path, ok := y.resolver.Resolve(asset)
	if !ok {
		return fmt.Errorf("%w: %s (variant %q)", ErrModelNotFound, asset.Name, y.variant)
	}

	if err := inference.Initialize(y.libraryPath); err != nil {
		return err
	}

	session, err := inference.NewSession(path)
	if err != nil {
		return err
	}
	y.session = session
	return nil
}

// Detect returns the top surviving candidate after confidence filtering and NMS
func (y *YOLO) Detect(f *frame.Frame) (region image.Rectangle) {
	if f.Empty() || !y.ensure(KindYOLO, y.log, y.load) {
		return image.Rectangle{}
	}
	defer recoverMiss(KindYOLO, y.log, &region)

	blob, scale := y.preprocess(f.Color())
	floatData := bytesToFloat32(blob.ToBytes())
	blob.Close()

	inputTensor, err := inference.CreateTensor(
		[]int64{1, 3, int64(y.inputSize), int64(y.inputSize)},
		floatData,
	)
	if err != nil {
		y.log.WithError(err).Error("failed to create input tensor")
		return image.Rectangle{}
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, y.session.OutputCount())
	if err := y.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		y.log.WithError(err).Error("yolo inference failed")
		return image.Rectangle{}
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		y.log.Error("unexpected yolo output type")
		return image.Rectangle{}
	}

	candidates := decodeYOLO(output.GetData(), output.GetShape(), y.confThreshold)
	candidates = nms(candidates, y.nmsThreshold)
	if len(candidates) == 0 {
		return image.Rectangle{}
	}

	return ClampToFrame(candidates[0].Box.Scale(scale).Rect(), f.Size())
}

// preprocess letterboxes the frame into a square input blob (top-left
// aligned, gray padding) and returns the resize scale
func (y *YOLO) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	scale := float32(y.inputSize) / float32(max(height, width))
	newWidth := max(1, int(float32(width)*scale))
	newHeight := max(1, int(float32(height)*scale))

	resized := gocv.NewMat()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(114, 114, 114, 0), y.inputSize, y.inputSize, gocv.MatTypeCV8UC3)
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()
	resized.Close()

	// BGR -> RGB, scale to [0,1], HWC -> NCHW
	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(y.inputSize, y.inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	padded.Close()

	return blob, scale
}

// decodeYOLO converts raw network output into scored candidates in model
// input space. Two layouts are understood:
//
//	[1, N, attrs] with attrs = cx, cy, w, h, objectness, class scores
//	  (the 16-attribute yolov5-face layout keeps its class score last)
//	[1, 5+K, N]   anchor-free, transposed, face score then K keypoint values
func decodeYOLO(data []float32, shape ort.Shape, confThreshold float32) []Candidate {
	if len(shape) != 3 {
		return nil
	}
	d1, d2 := int(shape[1]), int(shape[2])
	if d1 <= 0 || d2 <= 0 || len(data) < d1*d2 {
		return nil
	}

	if d1 < d2 && d1 >= 5 && d1 < 5+yoloFaceAttrs {
		return decodeTransposed(data, d2, confThreshold)
	}
	if d2 < 6 {
		return nil
	}

	var candidates []Candidate
	for i := 0; i < d1; i++ {
		row := data[i*d2 : (i+1)*d2]

		objectness := row[4]
		var classScore float32
		if d2 == yoloFaceAttrs {
			classScore = row[15]
		} else {
			for _, s := range row[5:] {
				classScore = max(classScore, s)
			}
		}

		conf := objectness * classScore
		if conf < confThreshold {
			continue
		}
		candidates = append(candidates, Candidate{Box: centerBox(row[0], row[1], row[2], row[3]), Score: conf})
	}

	return candidates
}

// decodeTransposed reads single-class output; channels after the face score
// (keypoints) are ignored
func decodeTransposed(data []float32, n int, confThreshold float32) []Candidate {
	var candidates []Candidate
	for i := 0; i < n; i++ {
		conf := data[4*n+i]
		if conf < confThreshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Box:   centerBox(data[i], data[n+i], data[2*n+i], data[3*n+i]),
			Score: conf,
		})
	}
	return candidates
}

func centerBox(cx, cy, w, h float32) BoundingBox {
	return BoundingBox{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// Reset implements Backend
func (y *YOLO) Reset() {
	if y.session != nil {
		y.session.Destroy()
		y.session = nil
	}
	y.reset()
}

// Close releases the session
func (y *YOLO) Close() error {
	y.Reset()
	return nil
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
