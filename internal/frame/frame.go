package frame

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

var (
	// ErrEmptyFrame is returned for frames with no pixels
	ErrEmptyFrame = errors.New("frame is empty")
	// ErrBufferSize is returned when a pixel buffer does not match its dimensions
	ErrBufferSize = errors.New("pixel buffer size does not match dimensions")
	// ErrChannels is returned for channel counts other than 1, 3 or 4
	ErrChannels = errors.New("unsupported channel count")
)

// Frame is an immutable video frame held in both BGR and grayscale form.
// The source matrix is copied, so callers keep ownership of what they pass in.
type Frame struct {
	color gocv.Mat
	gray  gocv.Mat
}

// New builds a frame from a 1, 3 or 4 channel matrix
func New(src gocv.Mat) (*Frame, error) {
	if src.Empty() || src.Rows() <= 0 || src.Cols() <= 0 {
		return nil, ErrEmptyFrame
	}

	color := gocv.NewMat()
	gray := gocv.NewMat()

	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
		gocv.CvtColor(src, &color, gocv.ColorGrayToBGR)
	case 3:
		src.CopyTo(&color)
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &color, gocv.ColorBGRAToBGR)
		gocv.CvtColor(color, &gray, gocv.ColorBGRToGray)
	default:
		color.Close()
		gray.Close()
		return nil, fmt.Errorf("%w: %d", ErrChannels, src.Channels())
	}

	return &Frame{color: color, gray: gray}, nil
}

// FromBytes wraps a raw interleaved pixel buffer (BGR, BGRA or gray)
func FromBytes(pix []byte, width, height, channels int) (*Frame, error) {
	if width <= 0 || height <= 0 || len(pix) == 0 {
		return nil, ErrEmptyFrame
	}

	var matType gocv.MatType
	switch channels {
	case 1:
		matType = gocv.MatTypeCV8UC1
	case 3:
		matType = gocv.MatTypeCV8UC3
	case 4:
		matType = gocv.MatTypeCV8UC4
	default:
		return nil, fmt.Errorf("%w: %d", ErrChannels, channels)
	}

	if len(pix) != width*height*channels {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(pix), width*height*channels)
	}

	mat, err := gocv.NewMatFromBytes(height, width, matType, pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}
	defer mat.Close()

	return New(mat)
}

// FromImage converts any image.Image into a frame
func FromImage(img image.Image) (*Frame, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyFrame
	}

	nrgba := imaging.Clone(img)
	width := nrgba.Bounds().Dx()
	height := nrgba.Bounds().Dy()

	bgr := make([]byte, width*height*3)
	for y := 0; y < height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		for x := 0; x < width; x++ {
			dst := (y*width + x) * 3
			bgr[dst] = row[x*4+2]
			bgr[dst+1] = row[x*4+1]
			bgr[dst+2] = row[x*4]
		}
	}

	return FromBytes(bgr, width, height, 3)
}

// Color returns the 3-channel BGR matrix. It must not be modified.
func (f *Frame) Color() gocv.Mat {
	return f.color
}

// Gray returns the single-channel matrix. It must not be modified.
func (f *Frame) Gray() gocv.Mat {
	return f.gray
}

// Size returns frame width and height
func (f *Frame) Size() image.Point {
	if f == nil {
		return image.Point{}
	}
	return image.Pt(f.gray.Cols(), f.gray.Rows())
}

// Empty reports whether the frame has no pixels
func (f *Frame) Empty() bool {
	return f == nil || f.gray.Empty() || f.gray.Rows() <= 0 || f.gray.Cols() <= 0
}

// Close releases frame matrices
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	if err := f.color.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := f.gray.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NormalizedRegion converts a region given as fractions of the frame size
// into pixels. Non-finite inputs become 0 and every value is clamped to [0,1].
func NormalizedRegion(x, y, width, height float64, size image.Point) image.Rectangle {
	x = unit(x)
	y = unit(y)
	width = unit(width)
	height = unit(height)

	x0 := int(x * float64(size.X))
	y0 := int(y * float64(size.Y))
	w := int(width * float64(size.X))
	h := int(height * float64(size.Y))
	if w <= 0 || h <= 0 {
		return image.Rectangle{}
	}

	return image.Rect(x0, y0, x0+w, y0+h)
}

func unit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
