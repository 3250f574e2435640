package vad

import (
	"math"
	"sort"
)

// QCReport describes the ring quality-control decision.
type QCReport struct {
	MissingFraction float64
	MaxGap          float64 // degrees between consecutive valid azimuths
	Status          RingStatus
}

// RingQC applies the coverage and gap gates to one ring. Missing samples are
// NaN. The result has the same length as radialWind; a rejected ring is
// returned as all NaN. The inputs are not modified.
func RingQC(radialWind, azimuth []float64, maxNA, maxGap float64) []float64 {
	out, _ := RingQCReport(radialWind, azimuth, maxNA, maxGap)
	return out
}

// RingQCReport is RingQC that also reports the measured coverage and gap.
func RingQCReport(radialWind, azimuth []float64, maxNA, maxGap float64) ([]float64, QCReport) {
	out := make([]float64, len(radialWind))
	copy(out, radialWind)

	report := QCReport{
		MissingFraction: missingFraction(radialWind, azimuth),
		MaxGap:          largestGap(radialWind, azimuth),
		Status:          RingAccepted,
	}

	switch {
	case report.MissingFraction > maxNA:
		report.Status = RingRejectedCoverage
	case report.MaxGap > maxGap:
		report.Status = RingRejectedGap
	default:
		return out, report
	}

	for i := range out {
		out[i] = math.NaN()
	}
	return out, report
}

func valid(radialWind, azimuth []float64, i int) bool {
	return !math.IsNaN(radialWind[i]) && !math.IsInf(radialWind[i], 0) &&
		!math.IsNaN(azimuth[i]) && !math.IsInf(azimuth[i], 0)
}

func missingFraction(radialWind, azimuth []float64) float64 {
	if len(radialWind) == 0 {
		return 1
	}
	missing := 0
	for i := range radialWind {
		if !valid(radialWind, azimuth, i) {
			missing++
		}
	}
	return float64(missing) / float64(len(radialWind))
}

// largestGap returns the widest azimuth arc with no valid sample, wrapping
// through 360°. Fewer than two valid samples leave the whole circle open.
func largestGap(radialWind, azimuth []float64) float64 {
	az := make([]float64, 0, len(azimuth))
	for i := range radialWind {
		if valid(radialWind, azimuth, i) {
			az = append(az, wrap360(azimuth[i]))
		}
	}
	if len(az) < 2 {
		return 360
	}
	sort.Float64s(az)

	gap := az[0] + 360 - az[len(az)-1]
	for i := 1; i < len(az); i++ {
		if d := az[i] - az[i-1]; d > gap {
			gap = d
		}
	}
	return gap
}

// wrap360 maps an angle in degrees into [0, 360).
func wrap360(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
