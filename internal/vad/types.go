package vad

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
)

// NullFloat is a float64 that may be undefined. Undefined is distinct from
// zero: a calm wind component is a valid 0.
//
// It embeds sql.NullFloat64 so rows can be written to and scanned from the
// database directly, and marshals to JSON null when undefined.
type NullFloat struct {
	sql.NullFloat64
}

// Some returns a defined value. NaN and ±Inf are treated as undefined.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{sql.NullFloat64{Float64: v, Valid: true}}
}

// None returns an undefined value.
func None() NullFloat { return NullFloat{} }

// Or returns the value if defined, otherwise def.
func (n NullFloat) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Float64
}

// NaN returns the value, or NaN when undefined.
func (n NullFloat) NaN() float64 { return n.Or(math.NaN()) }

func (n NullFloat) String() string {
	if !n.Valid {
		return "NA"
	}
	return fmt.Sprintf("%g", n.Float64)
}

// MarshalJSON encodes an undefined value as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON decodes null as undefined.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}

// Observation is a single radial-velocity sample from a PPI scan.
type Observation struct {
	RadialWind NullFloat `json:"radial_wind"` // m/s, positive away from the radar
	Azimuth    float64   `json:"azimuth"`     // degrees, in the caller's convention
	Range      float64   `json:"range"`       // slant range in meters
	Elevation  float64   `json:"elevation"`   // degrees above horizontal
}

// RingStatus records why a ring's wind fields are (or are not) defined.
type RingStatus int

const (
	RingAccepted RingStatus = iota
	RingRejectedCoverage
	RingRejectedGap
	RingInsufficient
	RingLowR2
)

var ringStatusNames = [...]string{"accepted", "rejected_coverage", "rejected_gap", "insufficient", "low_r2"}

func (s RingStatus) String() string {
	if int(s) >= 0 && int(s) < len(ringStatusNames) {
		return ringStatusNames[s]
	}
	return fmt.Sprintf("RingStatus(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s RingStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RingStatus) UnmarshalText(text []byte) error {
	for i, name := range ringStatusNames {
		if name == string(text) {
			*s = RingStatus(i)
			return nil
		}
	}
	return fmt.Errorf("unknown ring status %q", text)
}

// Row is the result for one (range, elevation) ring.
type Row struct {
	Height    float64    `json:"height"`
	U         NullFloat  `json:"u"`
	V         NullFloat  `json:"v"`
	Range     float64    `json:"range"`
	Elevation float64    `json:"elevation"`
	R2        NullFloat  `json:"r2"`
	RMSE      NullFloat  `json:"rmse"`
	Samples   int        `json:"samples"` // valid samples used in the final fit
	Status    RingStatus `json:"status"`
}

// Accepted reports whether the ring produced a wind estimate.
func (r Row) Accepted() bool { return r.Status == RingAccepted && r.U.Valid && r.V.Valid }

// Direction is the sense in which input azimuths increase.
type Direction string

const (
	Clockwise        Direction = "cw"
	CounterClockwise Direction = "ccw"
)

// ParseDirection parses a direction name. Accepted spellings are cw,
// clockwise, ccw, counterclockwise and counter-clockwise (case-insensitive).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cw", "clockwise":
		return Clockwise, nil
	case "ccw", "counterclockwise", "counter-clockwise", "anticlockwise":
		return CounterClockwise, nil
	}
	return "", &ConfigError{Field: "azimuth_direction", Value: s, Err: ErrInvalidDirection}
}

// sign returns -1 for clockwise and +1 for counter-clockwise.
func (d Direction) sign() (float64, bool) {
	switch d {
	case Clockwise:
		return -1, true
	case CounterClockwise:
		return 1, true
	}
	return 0, false
}

var (
	// ErrInvalidDirection is returned for an azimuth direction other than cw or ccw.
	ErrInvalidDirection = errors.New("azimuth direction must be cw or ccw")
	// ErrLengthMismatch is returned when the input arrays differ in length.
	ErrLengthMismatch = errors.New("input arrays must have the same length")
	// ErrInvalidParameter is returned for out-of-range numeric settings.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ConfigError is a fatal configuration problem detected before any ring is
// processed.
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("vad: %s: %v (got %v)", e.Field, e.Err, e.Value)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config holds the VAD fit parameters.
type Config struct {
	// MaxNA is the largest accepted fraction of missing samples in a ring.
	MaxNA float64
	// MaxGap is the largest accepted azimuth gap (degrees) between valid samples.
	MaxGap float64
	// R2Min is the minimum coefficient of determination for a ring to be kept.
	R2Min float64
	// OutlierThreshold in residual standard deviations; +Inf disables outlier removal.
	OutlierThreshold float64
	// AzimuthOrigin is the direction of input azimuth zero, in degrees
	// counter-clockwise from the mathematical x axis (90 = north).
	AzimuthOrigin float64
	// AzimuthDirection is the sense in which input azimuths increase.
	AzimuthDirection Direction
	// Workers bounds ring-level parallelism. Zero means GOMAXPROCS.
	Workers int
}

// Defaults, following Matejka & Srivastava (1991) for the gap limit.
const (
	DefaultMaxNA         = 0.2
	DefaultMaxGap        = 30.0
	DefaultR2Min         = 0.8
	DefaultAzimuthOrigin = 90.0
)

// DefaultConfig returns the standard VAD settings: meteorological
// azimuths (clockwise from north) and no outlier removal.
func DefaultConfig() Config {
	return Config{
		MaxNA:            DefaultMaxNA,
		MaxGap:           DefaultMaxGap,
		R2Min:            DefaultR2Min,
		OutlierThreshold: math.Inf(1),
		AzimuthOrigin:    DefaultAzimuthOrigin,
		AzimuthDirection: Clockwise,
	}
}

// Validate checks the configuration. It returns a *ConfigError.
func (c Config) Validate() error {
	if _, ok := c.AzimuthDirection.sign(); !ok {
		return &ConfigError{Field: "azimuth_direction", Value: string(c.AzimuthDirection), Err: ErrInvalidDirection}
	}
	if math.IsNaN(c.MaxNA) || c.MaxNA < 0 {
		return &ConfigError{Field: "max_na", Value: c.MaxNA, Err: ErrInvalidParameter}
	}
	if math.IsNaN(c.MaxGap) || c.MaxGap < 0 {
		return &ConfigError{Field: "max_consecutive_na", Value: c.MaxGap, Err: ErrInvalidParameter}
	}
	if math.IsNaN(c.R2Min) {
		return &ConfigError{Field: "r2_min", Value: c.R2Min, Err: ErrInvalidParameter}
	}
	if math.IsNaN(c.OutlierThreshold) || c.OutlierThreshold <= 0 {
		return &ConfigError{Field: "outlier_threshold", Value: c.OutlierThreshold, Err: ErrInvalidParameter}
	}
	if math.IsNaN(c.AzimuthOrigin) || math.IsInf(c.AzimuthOrigin, 0) {
		return &ConfigError{Field: "azimuth_origin", Value: c.AzimuthOrigin, Err: ErrInvalidParameter}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Value: c.Workers, Err: ErrInvalidParameter}
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
