package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/windprofile/internal/units"
	"github.com/banshee-data/windprofile/internal/vad"
)

// DefaultConfigPath is the path to the canonical VAD defaults file.
const DefaultConfigPath = "config/vad.defaults.json"

// VADConfig is the on-disk profiler configuration, stored as JSON or YAML.
// Fields left out of the file keep their defaults through the Get* accessors, so partial files are
// safe.
type VADConfig struct {
	// Ring quality control
	MaxNA            *float64 `json:"max_na,omitempty" yaml:"max_na,omitempty"`
	MaxConsecutiveNA *float64 `json:"max_consecutive_na,omitempty" yaml:"max_consecutive_na,omitempty"` // degrees
	R2Min            *float64 `json:"r2_min,omitempty" yaml:"r2_min,omitempty"`
	OutlierThreshold *float64 `json:"outlier_threshold,omitempty" yaml:"outlier_threshold,omitempty"` // residual SDs; omit to disable

	// Azimuth convention of the input
	AzimuthOrigin    *float64 `json:"azimuth_origin,omitempty" yaml:"azimuth_origin,omitempty"`
	AzimuthDirection *string  `json:"azimuth_direction,omitempty" yaml:"azimuth_direction,omitempty"`

	// Processing
	Workers           *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	ProcessingTimeout *string `json:"processing_timeout,omitempty" yaml:"processing_timeout,omitempty"` // duration string like "30s"

	// Output
	Units      *string  `json:"units,omitempty" yaml:"units,omitempty"`
	RegridStep *float64 `json:"regrid_step,omitempty" yaml:"regrid_step,omitempty"` // meters; 0 disables regridding
	RegridMin  *float64 `json:"regrid_min,omitempty" yaml:"regrid_min,omitempty"`
	RegridMax  *float64 `json:"regrid_max,omitempty" yaml:"regrid_max,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyVADConfig returns a VADConfig with all fields unset.
func EmptyVADConfig() *VADConfig {
	return &VADConfig{}
}

// DefaultVADConfig returns a VADConfig with every field set to its default.
func DefaultVADConfig() *VADConfig {
	return &VADConfig{
		MaxNA:             ptrFloat64(vad.DefaultMaxNA),
		MaxConsecutiveNA:  ptrFloat64(vad.DefaultMaxGap),
		R2Min:             ptrFloat64(vad.DefaultR2Min),
		AzimuthOrigin:     ptrFloat64(vad.DefaultAzimuthOrigin),
		AzimuthDirection:  ptrString(string(vad.Clockwise)),
		Workers:           ptrInt(0),
		ProcessingTimeout: ptrString("30s"),
		Units:             ptrString(units.MPS),
		RegridStep:        ptrFloat64(0),
	}
}

// LoadVADConfig loads a VADConfig from a JSON or YAML file, chosen by
// extension (.json, .yaml, .yml). The file must be under 1MB.
func LoadVADConfig(path string) (*VADConfig, error) {
	cleanPath := filepath.Clean(path)
	var unmarshal func([]byte, interface{}) error
	switch ext := filepath.Ext(cleanPath); ext {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyVADConfig()
	if err := unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded; intended for test setup.
func MustLoadDefaultConfig() *VADConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadVADConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *VADConfig) Validate() error {
	if c.MaxNA != nil && (*c.MaxNA < 0 || *c.MaxNA > 1) {
		return fmt.Errorf("max_na must be between 0 and 1, got %f", *c.MaxNA)
	}
	if c.MaxConsecutiveNA != nil && (*c.MaxConsecutiveNA < 0 || *c.MaxConsecutiveNA > 360) {
		return fmt.Errorf("max_consecutive_na must be between 0 and 360 degrees, got %f", *c.MaxConsecutiveNA)
	}
	if c.R2Min != nil && (*c.R2Min < 0 || *c.R2Min > 1) {
		return fmt.Errorf("r2_min must be between 0 and 1, got %f", *c.R2Min)
	}
	if c.OutlierThreshold != nil && *c.OutlierThreshold <= 0 {
		return fmt.Errorf("outlier_threshold must be positive, got %f", *c.OutlierThreshold)
	}
	if c.AzimuthDirection != nil {
		if _, err := vad.ParseDirection(*c.AzimuthDirection); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.ProcessingTimeout != nil && *c.ProcessingTimeout != "" {
		if _, err := time.ParseDuration(*c.ProcessingTimeout); err != nil {
			return fmt.Errorf("invalid processing_timeout '%s': %w", *c.ProcessingTimeout, err)
		}
	}
	if c.Units != nil && !units.IsValid(*c.Units) {
		return fmt.Errorf("units must be one of %s, got %q", units.GetValidUnitsString(), *c.Units)
	}
	if c.RegridStep != nil && *c.RegridStep < 0 {
		return fmt.Errorf("regrid_step must be non-negative, got %f", *c.RegridStep)
	}
	if c.RegridMin != nil && c.RegridMax != nil && *c.RegridMax <= *c.RegridMin {
		return fmt.Errorf("regrid_max (%f) must exceed regrid_min (%f)", *c.RegridMax, *c.RegridMin)
	}
	return nil
}

// GetMaxNA returns the max_na value or the default.
func (c *VADConfig) GetMaxNA() float64 {
	if c.MaxNA == nil {
		return vad.DefaultMaxNA
	}
	return *c.MaxNA
}

// GetMaxConsecutiveNA returns the max_consecutive_na value or the default.
func (c *VADConfig) GetMaxConsecutiveNA() float64 {
	if c.MaxConsecutiveNA == nil {
		return vad.DefaultMaxGap
	}
	return *c.MaxConsecutiveNA
}

// GetR2Min returns the r2_min value or the default.
func (c *VADConfig) GetR2Min() float64 {
	if c.R2Min == nil {
		return vad.DefaultR2Min
	}
	return *c.R2Min
}

// GetOutlierThreshold returns the outlier threshold, +Inf when unset.
func (c *VADConfig) GetOutlierThreshold() float64 {
	if c.OutlierThreshold == nil {
		return math.Inf(1) // default: no outlier removal
	}
	return *c.OutlierThreshold
}

// GetAzimuthOrigin returns the azimuth_origin value or the default.
func (c *VADConfig) GetAzimuthOrigin() float64 {
	if c.AzimuthOrigin == nil {
		return vad.DefaultAzimuthOrigin
	}
	return *c.AzimuthOrigin
}

// GetAzimuthDirection returns the azimuth_direction value or the default.
func (c *VADConfig) GetAzimuthDirection() string {
	if c.AzimuthDirection == nil {
		return string(vad.Clockwise)
	}
	return *c.AzimuthDirection
}

// GetWorkers returns the workers value or the default (0, meaning GOMAXPROCS).
func (c *VADConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetProcessingTimeout parses and returns the ProcessingTimeout. Zero means
// no deadline.
func (c *VADConfig) GetProcessingTimeout() time.Duration {
	if c.ProcessingTimeout == nil || *c.ProcessingTimeout == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.ProcessingTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}

// GetUnits returns the output speed units or the default.
func (c *VADConfig) GetUnits() string {
	if c.Units == nil {
		return units.MPS
	}
	return *c.Units
}

// GetRegridStep returns the regrid_step value or the default (disabled).
func (c *VADConfig) GetRegridStep() float64 {
	if c.RegridStep == nil {
		return 0
	}
	return *c.RegridStep
}

// GetRegridBounds returns the configured regrid height bounds. ok is false
// for a bound that is unset, in which case the profile's own extent is used.
func (c *VADConfig) GetRegridBounds() (min float64, minOK bool, max float64, maxOK bool) {
	if c.RegridMin != nil {
		min, minOK = *c.RegridMin, true
	}
	if c.RegridMax != nil {
		max, maxOK = *c.RegridMax, true
	}
	return min, minOK, max, maxOK
}

// ToVADConfig builds the fit configuration.
func (c *VADConfig) ToVADConfig() (vad.Config, error) {
	dir, err := vad.ParseDirection(c.GetAzimuthDirection())
	if err != nil {
		return vad.Config{}, err
	}
	cfg := vad.Config{
		MaxNA:            c.GetMaxNA(),
		MaxGap:           c.GetMaxConsecutiveNA(),
		R2Min:            c.GetR2Min(),
		OutlierThreshold: c.GetOutlierThreshold(),
		AzimuthOrigin:    c.GetAzimuthOrigin(),
		AzimuthDirection: dir,
		Workers:          c.GetWorkers(),
	}
	return cfg, cfg.Validate()
}

// Merge overwrites c's fields with every field set in o.
func (c *VADConfig) Merge(o *VADConfig) {
	if o == nil {
		return
	}
	if o.MaxNA != nil {
		c.MaxNA = o.MaxNA
	}
	if o.MaxConsecutiveNA != nil {
		c.MaxConsecutiveNA = o.MaxConsecutiveNA
	}
	if o.R2Min != nil {
		c.R2Min = o.R2Min
	}
	if o.OutlierThreshold != nil {
		c.OutlierThreshold = o.OutlierThreshold
	}
	if o.AzimuthOrigin != nil {
		c.AzimuthOrigin = o.AzimuthOrigin
	}
	if o.AzimuthDirection != nil {
		c.AzimuthDirection = o.AzimuthDirection
	}
	if o.Workers != nil {
		c.Workers = o.Workers
	}
	if o.ProcessingTimeout != nil {
		c.ProcessingTimeout = o.ProcessingTimeout
	}
	if o.Units != nil {
		c.Units = o.Units
	}
	if o.RegridStep != nil {
		c.RegridStep = o.RegridStep
	}
	if o.RegridMin != nil {
		c.RegridMin = o.RegridMin
	}
	if o.RegridMax != nil {
		c.RegridMax = o.RegridMax
	}
}
