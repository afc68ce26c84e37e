package gaze

import (
	"math"
	"testing"

	"github.com/dudu/gazetrack/internal/detector"
)

type pt = detector.Point

func TestEstimate_TooFewPoints(t *testing.T) {
	tests := [][]pt{
		nil,
		{{X: 100, Y: 100}},
		{{X: 100, Y: 100}, {X: 200, Y: 100}},
		{{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 90, Y: 100}},
	}

	for _, points := range tests {
		if a := Estimate(points); a != (Angle{}) {
			t.Errorf("%d points: got %+v, want zero", len(points), a)
		}
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name   string
		points []pt
		want   Angle
	}{
		{
			name:   "four points, level eyes",
			points: []pt{{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 90, Y: 100}, {X: 110, Y: 100}},
			want:   Angle{X: -1, Y: 0},
		},
		{
			name:   "mirrored eye order",
			points: []pt{{X: 200, Y: 100}, {X: 100, Y: 100}, {X: 0, Y: 0}, {X: 0, Y: 0}},
			want:   Angle{X: 1, Y: 0},
		},
		{
			name:   "vertically stacked eyes",
			points: []pt{{X: 100, Y: 100}, {X: 100, Y: 200}, {X: 0, Y: 0}, {X: 0, Y: 0}},
			want:   Angle{X: 0, Y: 0},
		},
		{
			name: "flat corners clamp down",
			points: []pt{
				{X: 100, Y: 100}, {X: 200, Y: 100},
				{X: 90, Y: 100}, {X: 110, Y: 100},
				{X: 190, Y: 100}, {X: 210, Y: 100},
			},
			want: Angle{X: -1, Y: -1},
		},
		{
			name: "neutral opening",
			points: []pt{
				{X: 100, Y: 100}, {X: 200, Y: 100},
				{X: 90, Y: 97}, {X: 110, Y: 103},
				{X: 190, Y: 97}, {X: 210, Y: 103},
			},
			want: Angle{X: -1, Y: 0},
		},
		{
			name: "wide opening",
			points: []pt{
				{X: 100, Y: 100}, {X: 200, Y: 100},
				{X: 90, Y: 95}, {X: 110, Y: 105},
				{X: 190, Y: 95}, {X: 210, Y: 105},
			},
			want: Angle{X: -1, Y: 1},
		},
		{
			name: "degenerate corners",
			points: []pt{
				{X: 100, Y: 100}, {X: 200, Y: 100},
				{X: 100, Y: 90}, {X: 100, Y: 110},
				{X: 200, Y: 90}, {X: 200, Y: 110},
			},
			want: Angle{X: -1, Y: -1},
		},
		{
			name:   "coincident eyes",
			points: []pt{{X: 50, Y: 50}, {X: 50, Y: 50}, {X: 40, Y: 45}, {X: 60, Y: 55}},
			want:   Angle{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.points)
			if math.Abs(got.X-tt.want.X) > 1e-6 || math.Abs(got.Y-tt.want.Y) > 1e-6 {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEstimate_VerticalAlwaysClamped(t *testing.T) {
	for dy := float32(0); dy < 200; dy += 7 {
		points := []pt{
			{X: 100, Y: 100}, {X: 200, Y: 100},
			{X: 99, Y: 100 - dy}, {X: 101, Y: 100 + dy},
			{X: 199, Y: 100 - dy}, {X: 201, Y: 100 + dy},
		}
		if a := Estimate(points); a.Y < -1 || a.Y > 1 {
			t.Fatalf("dy=%v: vertical gaze %v out of range", dy, a.Y)
		}
	}
}

func TestFocused(t *testing.T) {
	tests := []struct {
		a    Angle
		want bool
	}{
		{Angle{0, 0}, true},
		{Angle{0.05, -0.05}, true},
		{Angle{0.1, 0}, false},
		{Angle{0, -0.1}, false},
		{Angle{-1, 0}, false},
		{Angle{0.099, 0.099}, true},
	}

	for _, tt := range tests {
		if got := Focused(tt.a); got != tt.want {
			t.Errorf("Focused(%+v): got %v, want %v", tt.a, got, tt.want)
		}
	}
}

func TestVector(t *testing.T) {
	for _, a := range []Angle{{0, 0}, {-1, 1}, {0.3, -0.2}} {
		v := Vector(a)
		n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
		if math.Abs(n-1) > 1e-9 {
			t.Errorf("Vector(%+v) length %v, want 1", a, n)
		}
		if v[2] >= 0 {
			t.Errorf("Vector(%+v) z=%v, want negative", a, v[2])
		}
	}
	if v := Vector(Angle{}); v != [3]float64{0, 0, -1} {
		t.Errorf("centered vector: got %v", v)
	}
}
