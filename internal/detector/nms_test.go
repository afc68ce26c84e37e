package detector

import (
	"math"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
)

func TestIoU(t *testing.T) {
	a := BoundingBox{X1: 0, Y1: 0, X2: 10, Y2: 10}

	tests := []struct {
		name string
		b    BoundingBox
		want float32
	}{
		{"identical", a, 1},
		{"disjoint", BoundingBox{X1: 20, Y1: 20, X2: 30, Y2: 30}, 0},
		{"touching", BoundingBox{X1: 10, Y1: 0, X2: 20, Y2: 10}, 0},
		{"half overlap", BoundingBox{X1: 5, Y1: 0, X2: 15, Y2: 10}, 50.0 / 150.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := iou(a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNMS(t *testing.T) {
	candidates := []Candidate{
		{Box: BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100}, Score: 0.7},
		{Box: BoundingBox{X1: 5, Y1: 5, X2: 105, Y2: 105}, Score: 0.9},
		{Box: BoundingBox{X1: 300, Y1: 300, X2: 350, Y2: 350}, Score: 0.6},
	}

	kept := nms(candidates, 0.35)
	if len(kept) != 2 {
		t.Fatalf("kept %d candidates, want 2", len(kept))
	}
	if kept[0].Score != 0.9 {
		t.Errorf("first kept score: got %v, want 0.9", kept[0].Score)
	}
	if kept[1].Score != 0.6 {
		t.Errorf("second kept score: got %v, want 0.6", kept[1].Score)
	}
}

func TestNMS_Empty(t *testing.T) {
	if got := nms(nil, 0.5); len(got) != 0 {
		t.Errorf("got %d candidates, want 0", len(got))
	}
}

func TestDecodeYOLO_RowLayout(t *testing.T) {
	// two rows of cx, cy, w, h, obj, cls
	data := []float32{
		100, 100, 40, 60, 0.9, 0.8, // 0.72, kept
		300, 200, 50, 50, 0.9, 0.4, // 0.36, below threshold
	}

	got := decodeYOLO(data, ort.NewShape(1, 2, 6), 0.45)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	want := BoundingBox{X1: 80, Y1: 70, X2: 120, Y2: 130}
	if got[0].Box != want {
		t.Errorf("box: got %+v, want %+v", got[0].Box, want)
	}
	if math.Abs(float64(got[0].Score)-0.72) > 1e-6 {
		t.Errorf("score: got %v, want 0.72", got[0].Score)
	}
}

func TestDecodeYOLO_FaceLayout(t *testing.T) {
	row := make([]float32, yoloFaceAttrs)
	row[0], row[1], row[2], row[3] = 320, 240, 100, 120
	row[4] = 0.95
	// landmark values must not be mistaken for class scores
	for i := 5; i < 15; i++ {
		row[i] = 250
	}
	row[15] = 0.9

	got := decodeYOLO(row, ort.NewShape(1, 1, yoloFaceAttrs), 0.45)
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if math.Abs(float64(got[0].Score)-0.855) > 1e-5 {
		t.Errorf("score: got %v, want 0.855", got[0].Score)
	}
}

func TestDecodeYOLO_Transposed(t *testing.T) {
	// [1, 5, 6]: channel-major cx, cy, w, h, score for six anchors
	data := []float32{
		10, 200, 400, 50, 60, 70, // cx
		10, 200, 400, 50, 60, 70, // cy
		4, 80, 40, 4, 4, 4, // w
		4, 80, 40, 4, 4, 4, // h
		0.1, 0.8, 0.5, 0.2, 0.3, 0.4, // score
	}

	got := decodeYOLO(data, ort.NewShape(1, 5, 6), 0.45)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	want := BoundingBox{X1: 160, Y1: 160, X2: 240, Y2: 240}
	if got[0].Box != want {
		t.Errorf("box: got %+v, want %+v", got[0].Box, want)
	}
}

func TestDecodeYOLO_BadShape(t *testing.T) {
	tests := []struct {
		name  string
		data  []float32
		shape ort.Shape
	}{
		{"two dims", make([]float32, 12), ort.NewShape(2, 6)},
		{"short data", make([]float32, 5), ort.NewShape(1, 2, 6)},
		{"too few attrs", make([]float32, 40), ort.NewShape(1, 10, 4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeYOLO(tt.data, tt.shape, 0.1); len(got) != 0 {
				t.Errorf("got %d candidates, want 0", len(got))
			}
		})
	}
}

func TestBoundingBoxScaleAndRect(t *testing.T) {
	b := BoundingBox{X1: 10, Y1: 20, X2: 110, Y2: 220}.Scale(0.5)
	if got := b.Rect(); got.Min.X != 20 || got.Min.Y != 40 || got.Max.X != 220 || got.Max.Y != 440 {
		t.Errorf("rect: got %v, want (20,40)-(220,440)", got)
	}
}
