package vad

import (
	"math"
	"testing"
)

func TestPropagate_ZeroRange(t *testing.T) {
	for _, el := range []float64{-90, -5, 0, 2, 45, 89.5, 90} {
		beam := Propagate(0, el)
		if beam.Height != 0 {
			t.Errorf("Propagate(0, %g).Height = %g, want 0", el, beam.Height)
		}
		if beam.HorizontalRange != 0 {
			t.Errorf("Propagate(0, %g).HorizontalRange = %g, want 0", el, beam.HorizontalRange)
		}
		if beam.EffectiveElevation != el {
			t.Errorf("Propagate(0, %g).EffectiveElevation = %g, want %g", el, beam.EffectiveElevation, el)
		}
	}
}

func TestPropagate_VerticalBeam(t *testing.T) {
	for _, r := range []float64{1, 500, 1000, 15000} {
		beam := Propagate(r, 90)
		if beam.HorizontalRange != 0 {
			t.Errorf("Propagate(%g, 90).HorizontalRange = %g, want 0", r, beam.HorizontalRange)
		}
		// Straight up the beam height is the range itself.
		if math.Abs(beam.Height-r) > 1e-6*r {
			t.Errorf("Propagate(%g, 90).Height = %g, want %g", r, beam.Height, r)
		}
		if math.Abs(beam.EffectiveElevation-90) > 1e-9 {
			t.Errorf("Propagate(%g, 90).EffectiveElevation = %g, want 90", r, beam.EffectiveElevation)
		}
	}
}

func TestPropagate_Formula(t *testing.T) {
	re := 4.0 * 6371000.0 / 3.0
	tests := []struct {
		name  string
		r, el float64
	}{
		{"horizontal 1km", 1000, 0},
		{"2 degrees 1km", 1000, 2},
		{"0.5 degrees 100km", 100000, 0.5},
		{"10 degrees 30km", 30000, 10},
		{"negative elevation", 5000, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := tt.el * math.Pi / 180
			wantH := math.Sqrt(tt.r*tt.r+re*re+2*tt.r*re*math.Sin(el)) - re
			wantX := tt.r * math.Cos(el)
			wantE := (el + math.Atan(tt.r*math.Cos(el)/(tt.r*math.Sin(el)+re))) * 180 / math.Pi

			beam := Propagate(tt.r, tt.el)
			if math.Abs(beam.Height-wantH) > 1e-6 {
				t.Errorf("Height = %.9f, want %.9f", beam.Height, wantH)
			}
			if math.Abs(beam.HorizontalRange-wantX) > 1e-6 {
				t.Errorf("HorizontalRange = %.9f, want %.9f", beam.HorizontalRange, wantX)
			}
			if math.Abs(beam.EffectiveElevation-wantE) > 1e-9 {
				t.Errorf("EffectiveElevation = %.12f, want %.12f", beam.EffectiveElevation, wantE)
			}
		})
	}
}

func TestPropagate_CurvatureRaisesBeam(t *testing.T) {
	// A horizontal beam climbs above the tangent plane as the Earth falls away.
	beam := Propagate(100000, 0)
	want := 100000.0 * 100000.0 / (2 * EffectiveRadius)
	if math.Abs(beam.Height-want) > 1 {
		t.Errorf("Height = %g, want about %g", beam.Height, want)
	}

	// A smaller effective radius (no refraction) bends the beam up faster.
	geometric := PropagateWithRadius(100000, 0, EarthRadius)
	if geometric.Height <= beam.Height {
		t.Errorf("geometric height %g should exceed refracted height %g", geometric.Height, beam.Height)
	}
}

func TestEffectiveRadius(t *testing.T) {
	if math.Abs(EffectiveRadius-8494666.666666666) > 1e-6 {
		t.Errorf("EffectiveRadius = %f, want 8494666.67", EffectiveRadius)
	}
}

func TestTrigHelpers(t *testing.T) {
	tests := []struct {
		deg      float64
		sin, cos float64
	}{
		{0, 0, 1},
		{90, 1, 0},
		{-90, -1, 0},
		{180, 0, -1},
		{270, -1, 0},
		{360, 0, 1},
	}
	for _, tt := range tests {
		if got := sinDeg(tt.deg); got != tt.sin {
			t.Errorf("sinDeg(%g) = %g, want %g", tt.deg, got, tt.sin)
		}
		if got := cosDeg(tt.deg); got != tt.cos {
			t.Errorf("cosDeg(%g) = %g, want %g", tt.deg, got, tt.cos)
		}
	}
}
