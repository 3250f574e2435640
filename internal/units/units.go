// Package units provides shared constants and conversion for wind speed units.
// Profiles are computed and stored in m/s; conversion happens at output.
package units

import "strings"

// Unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
	KT   = "kt"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH, KT}

const (
	mpsToMPH  = 2.2369362920544
	mpsToKMPH = 3.6
	mpsToKT   = 1.9438444924406
)

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertSpeed converts a speed from meters per second to the target units.
// Unknown units fall back to m/s.
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPH:
		return speedMPS * mpsToMPH
	case KMPH, KPH:
		return speedMPS * mpsToKMPH
	case KT:
		return speedMPS * mpsToKT
	default:
		return speedMPS
	}
}

// ConvertToMPS converts a speed in the given units to meters per second.
func ConvertToMPS(speed float64, fromUnits string) float64 {
	switch fromUnits {
	case MPH:
		return speed / mpsToMPH
	case KMPH, KPH:
		return speed / mpsToKMPH
	case KT:
		return speed / mpsToKT
	default:
		return speed
	}
}

// Label returns a short axis label for the unit, e.g. "m/s".
func Label(unit string) string {
	switch unit {
	case MPH:
		return "mph"
	case KMPH, KPH:
		return "km/h"
	case KT:
		return "kt"
	default:
		return "m/s"
	}
}
