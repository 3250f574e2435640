package vad

import "math"

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// EffectiveRadius is the 4/3 effective Earth radius used to fold standard
// atmospheric refraction into straight-ray geometry.
const EffectiveRadius = 4.0 * EarthRadius / 3.0

// Beam describes where a radar beam is at a given slant range.
type Beam struct {
	Height             float64 // meters above the radar
	HorizontalRange    float64 // meters along the ground
	EffectiveElevation float64 // degrees, elevation corrected for beam bending
}

// Propagate computes beam height and horizontal range for a slant range
// (meters) and elevation angle (degrees) under the 4/3 Earth radius model.
func Propagate(rangeM, elevationDeg float64) Beam {
	return PropagateWithRadius(rangeM, elevationDeg, EffectiveRadius)
}

// PropagateWithRadius is Propagate with an explicit effective Earth radius.
func PropagateWithRadius(rangeM, elevationDeg, effectiveRadius float64) Beam {
	if rangeM == 0 {
		return Beam{EffectiveElevation: elevationDeg}
	}
	el := deg2rad(elevationDeg)
	sinEl := sinDeg(elevationDeg)
	cosEl := cosDeg(elevationDeg)
	re := effectiveRadius

	height := math.Sqrt(rangeM*rangeM+re*re+2*rangeM*re*sinEl) - re
	horizontal := rangeM * cosEl
	effective := el + math.Atan(horizontal/(rangeM*sinEl+re))

	return Beam{
		Height:             height,
		HorizontalRange:    horizontal,
		EffectiveElevation: rad2deg(effective),
	}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180.0 }
func rad2deg(r float64) float64 { return r * 180.0 / math.Pi }

// cosDeg is cos of an angle in degrees, exact at odd multiples of 90° so a
// vertical beam has no horizontal footprint.
func cosDeg(d float64) float64 {
	if m := math.Mod(math.Abs(d), 180); m == 90 {
		return 0
	}
	return math.Cos(deg2rad(d))
}

// sinDeg is sin of an angle in degrees, exact at multiples of 180°.
func sinDeg(d float64) float64 {
	if math.Mod(d, 180) == 0 {
		return 0
	}
	return math.Sin(deg2rad(d))
}
