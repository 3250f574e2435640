package vad

import (
	"math"
	"testing"

	"github.com/banshee-data/windprofile/internal/testutil"
)

func allNaN(xs []float64) bool {
	for _, x := range xs {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}

func TestRingQC_FullRingAccepted(t *testing.T) {
	vr, az := testutil.SyntheticRing(5, 3, 2, 36)
	out, report := RingQCReport(vr, az, DefaultMaxNA, DefaultMaxGap)

	if report.Status != RingAccepted {
		t.Fatalf("Status = %v, want accepted", report.Status)
	}
	if report.MissingFraction != 0 {
		t.Errorf("MissingFraction = %g, want 0", report.MissingFraction)
	}
	if math.Abs(report.MaxGap-10) > 1e-9 {
		t.Errorf("MaxGap = %g, want 10", report.MaxGap)
	}
	for i := range vr {
		if out[i] != vr[i] {
			t.Fatalf("out[%d] = %g, want %g", i, out[i], vr[i])
		}
	}
}

func TestRingQC_CoverageBoundary(t *testing.T) {
	// 40 samples at 9°, every fifth missing: 8/40 = 0.2 missing, 18° gaps.
	vr, az := testutil.SyntheticRing(5, 3, 2, 40)
	for i := 0; i < 40; i += 5 {
		vr[i] = math.NaN()
	}

	tests := []struct {
		name   string
		maxNA  float64
		status RingStatus
	}{
		{"fraction equal to max_na accepted", 0.2, RingAccepted},
		{"fraction just above max_na rejected", 0.2 - 1e-9, RingRejectedCoverage},
		{"generous max_na accepted", 0.5, RingAccepted},
		{"zero max_na rejected", 0, RingRejectedCoverage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, report := RingQCReport(vr, az, tt.maxNA, DefaultMaxGap)
			if report.Status != tt.status {
				t.Fatalf("Status = %v, want %v (missing=%g)", report.Status, tt.status, report.MissingFraction)
			}
			if tt.status != RingAccepted && !allNaN(out) {
				t.Error("rejected ring should be all missing")
			}
		})
	}

	// One more missing sample crosses the default limit.
	vr[2] = math.NaN()
	if _, report := RingQCReport(vr, az, DefaultMaxNA, DefaultMaxGap); report.Status != RingRejectedCoverage {
		t.Errorf("9/40 missing: Status = %v, want rejected_coverage", report.Status)
	}
}

func TestRingQC_GapGate(t *testing.T) {
	tests := []struct {
		name    string
		azimuth []float64
		maxGap  float64
		wantGap float64
		status  RingStatus
	}{
		{
			name:    "all samples inside a 30 degree arc",
			azimuth: []float64{0, 5, 10, 15, 20, 25, 30},
			maxGap:  30,
			wantGap: 330,
			status:  RingRejectedGap,
		},
		{
			name:    "gap exactly at limit accepted",
			azimuth: []float64{0, 30, 60, 90, 120, 150, 180, 210, 240, 270, 300, 330},
			maxGap:  30,
			wantGap: 30,
			status:  RingAccepted,
		},
		{
			name:    "gap wraps through north",
			azimuth: []float64{20, 40, 60, 80, 100, 120, 140, 160, 180, 200, 220, 240, 260, 280, 300, 320},
			maxGap:  30,
			wantGap: 60,
			status:  RingRejectedGap,
		},
		{
			name:    "negative and large azimuths wrap",
			azimuth: []float64{-20, -40, 0, 380, 400, 60, 80, 100, 120, 140, 160, 180, 200, 220, 240, 260, 280, 300},
			maxGap:  30,
			wantGap: 20,
			status:  RingAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vr := make([]float64, len(tt.azimuth))
			for i := range vr {
				vr[i] = float64(i)
			}
			_, report := RingQCReport(vr, tt.azimuth, 1, tt.maxGap)
			if math.Abs(report.MaxGap-tt.wantGap) > 1e-9 {
				t.Errorf("MaxGap = %g, want %g", report.MaxGap, tt.wantGap)
			}
			if report.Status != tt.status {
				t.Errorf("Status = %v, want %v", report.Status, tt.status)
			}
		})
	}
}

func TestRingQC_MissingArcOpensGap(t *testing.T) {
	vr, az := testutil.SyntheticRing(5, 3, 2, 36)
	blanked := testutil.BlankArc(vr, 10, 8)

	// Coverage alone would pass with a generous max_na; the gap gate must not.
	out, report := RingQCReport(blanked, az, 0.5, DefaultMaxGap)
	if report.Status != RingRejectedGap {
		t.Fatalf("Status = %v, want rejected_gap", report.Status)
	}
	if math.Abs(report.MaxGap-90) > 1e-9 {
		t.Errorf("MaxGap = %g, want 90", report.MaxGap)
	}
	if !allNaN(out) {
		t.Error("rejected ring should be all missing")
	}
	if math.IsNaN(vr[10]) {
		t.Error("RingQC modified its input")
	}
}

func TestRingQC_DegenerateRings(t *testing.T) {
	if out := RingQC(nil, nil, DefaultMaxNA, DefaultMaxGap); len(out) != 0 {
		t.Errorf("empty ring: len(out) = %d, want 0", len(out))
	}

	// A single valid sample leaves the whole circle uncovered.
	_, report := RingQCReport([]float64{1, math.NaN()}, []float64{0, 180}, 1, 359)
	if report.MaxGap != 360 || report.Status != RingRejectedGap {
		t.Errorf("single sample: gap=%g status=%v, want 360 rejected_gap", report.MaxGap, report.Status)
	}

	// Non-finite azimuths count as missing.
	_, report = RingQCReport([]float64{1, 2, 3, 4}, []float64{0, 90, math.NaN(), 270}, 0.2, 360)
	if report.MissingFraction != 0.25 || report.Status != RingRejectedCoverage {
		t.Errorf("NaN azimuth: missing=%g status=%v", report.MissingFraction, report.Status)
	}
}
