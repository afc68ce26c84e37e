package frame

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name     string
		pix      []byte
		width    int
		height   int
		channels int
		wantErr  error
	}{
		{"gray", make([]byte, 40*30), 40, 30, 1, nil},
		{"bgr", make([]byte, 40*30*3), 40, 30, 3, nil},
		{"bgra", make([]byte, 40*30*4), 40, 30, 4, nil},
		{"empty buffer", nil, 40, 30, 3, ErrEmptyFrame},
		{"zero width", make([]byte, 10), 0, 30, 3, ErrEmptyFrame},
		{"short buffer", make([]byte, 100), 40, 30, 3, ErrBufferSize},
		{"two channels", make([]byte, 40*30*2), 40, 30, 2, ErrChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := FromBytes(tt.pix, tt.width, tt.height, tt.channels)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error: got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromBytes failed: %v", err)
			}
			defer f.Close()

			if got := f.Size(); got != image.Pt(tt.width, tt.height) {
				t.Errorf("size: got %v, want %dx%d", got, tt.width, tt.height)
			}
			if f.Color().Channels() != 3 {
				t.Errorf("color channels: got %d, want 3", f.Color().Channels())
			}
			if f.Gray().Channels() != 1 {
				t.Errorf("gray channels: got %d, want 1", f.Gray().Channels())
			}
		})
	}
}

func TestNew_DoesNotAliasSource(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 10, 10, 0), 20, 20, gocv.MatTypeCV8UC3)
	defer src.Close()

	f, err := New(src)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer f.Close()

	src.SetTo(gocv.NewScalar(200, 200, 200, 0))

	if got := f.Gray().GetUCharAt(5, 5); got != 10 {
		t.Errorf("gray pixel changed with source: got %d, want 10", got)
	}
}

func TestNew_EmptyMat(t *testing.T) {
	m := gocv.NewMat()
	defer m.Close()

	if _, err := New(m); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("error: got %v, want ErrEmptyFrame", err)
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	f, err := FromImage(img)
	if err != nil {
		t.Fatalf("FromImage failed: %v", err)
	}
	defer f.Close()

	if f.Size() != image.Pt(16, 8) {
		t.Fatalf("size: got %v, want 16x8", f.Size())
	}

	// BGR order: red lands in the third channel
	px := f.Color().GetVecbAt(3, 3)
	if px[0] != 0 || px[2] != 255 {
		t.Errorf("pixel: got %v, want [0 0 255]", px)
	}
}

func TestFrameNilSafety(t *testing.T) {
	var f *Frame
	if !f.Empty() {
		t.Error("nil frame should be empty")
	}
	if f.Size() != (image.Point{}) {
		t.Errorf("nil frame size: got %v", f.Size())
	}
	if err := f.Close(); err != nil {
		t.Errorf("nil frame close: %v", err)
	}
}

func TestNormalizedRegion(t *testing.T) {
	size := image.Pt(640, 480)

	tests := []struct {
		name       string
		x, y, w, h float64
		want       image.Rectangle
	}{
		{"centered", 0.25, 0.25, 0.5, 0.5, image.Rect(160, 120, 480, 360)},
		{"clamped above one", 0.5, 0.5, 2, 2, image.Rect(320, 240, 960, 720)},
		{"negative origin", -0.5, -1, 0.5, 0.5, image.Rect(0, 0, 320, 240)},
		{"nan width", 0.1, 0.1, math.NaN(), 0.5, image.Rectangle{}},
		{"inf origin", math.Inf(1), 0, 0.5, 0.5, image.Rect(0, 0, 320, 240)},
		{"zero height", 0.1, 0.1, 0.5, 0, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizedRegion(tt.x, tt.y, tt.w, tt.h, size)
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
