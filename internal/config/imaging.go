// Package config loads the tunable imaging parameters (stage geometry,
// rotation, pixel scale, time windows) that size a run's rasterization and
// archive output (spec §3 Config, §4.G).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the canonical imaging defaults file.
const DefaultConfigPath = "config/imaging.defaults.json"

// ImagingConfig is the root configuration for a scan's imaging geometry.
// Pointer fields distinguish "not set, use the default" from an explicit
// zero value, so partial JSON overrides are safe.
type ImagingConfig struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`

	RotationDeg *float64 `json:"rotation_deg,omitempty"`
	CameraFovMM *float64 `json:"camera_fov_mm,omitempty"`
	PixelsPerMM *float64 `json:"pixels_per_mm,omitempty"`
	ScaleX      *float64 `json:"scale_x,omitempty"`
	ScaleY      *float64 `json:"scale_y,omitempty"`

	TofPulseLengthPs  *int64 `json:"tof_pulse_length_ps,omitempty"`
	PeakTimeWindowPs  *int64 `json:"peak_time_window_ps,omitempty"`

	LowCropRow  *int `json:"low_crop_row,omitempty"`
	HighCropRow *int `json:"high_crop_row,omitempty"`
	LowCropCol  *int `json:"low_crop_col,omitempty"`
	HighCropCol *int `json:"high_crop_col,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyImagingConfig returns an ImagingConfig with all fields nil.
func EmptyImagingConfig() *ImagingConfig {
	return &ImagingConfig{}
}

// LoadImagingConfig loads an ImagingConfig from a JSON file. Fields omitted
// from the file retain their default values via the Get* accessors.
func LoadImagingConfig(path string) (*ImagingConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyImagingConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical imaging defaults from
// DefaultConfigPath, searching from the current directory upward. Panics
// if the file cannot be found, intended for test setup and the CLI driver.
func MustLoadDefaultConfig() *ImagingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadImagingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that set fields are physically sensible.
func (c *ImagingConfig) Validate() error {
	if c.PixelsPerMM != nil && *c.PixelsPerMM <= 0 {
		return fmt.Errorf("pixels_per_mm must be positive, got %f", *c.PixelsPerMM)
	}
	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *c.Width)
	}
	if c.Height != nil && *c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *c.Height)
	}
	return nil
}

// GetWidth returns Width or its default (256, the detector's native size).
func (c *ImagingConfig) GetWidth() int {
	if c.Width == nil {
		return 256
	}
	return *c.Width
}

// GetHeight returns Height or its default.
func (c *ImagingConfig) GetHeight() int {
	if c.Height == nil {
		return 256
	}
	return *c.Height
}

// GetRotationDeg returns RotationDeg or its default (no rotation).
func (c *ImagingConfig) GetRotationDeg() float64 {
	if c.RotationDeg == nil {
		return 0
	}
	return *c.RotationDeg
}

// GetCameraFovMM returns CameraFovMM or its default.
func (c *ImagingConfig) GetCameraFovMM() float64 {
	if c.CameraFovMM == nil {
		return 14.08 // 256px * 55um pitch
	}
	return *c.CameraFovMM
}

// GetPixelsPerMM returns PixelsPerMM or its default.
func (c *ImagingConfig) GetPixelsPerMM() float64 {
	if c.PixelsPerMM == nil {
		return 18.18 // ~55um/px
	}
	return *c.PixelsPerMM
}

// GetScaleX returns ScaleX or its default (no distortion correction).
func (c *ImagingConfig) GetScaleX() float64 {
	if c.ScaleX == nil {
		return 1
	}
	return *c.ScaleX
}

// GetScaleY returns ScaleY or its default (no distortion correction).
func (c *ImagingConfig) GetScaleY() float64 {
	if c.ScaleY == nil {
		return 1
	}
	return *c.ScaleY
}

// GetTofPulseLengthPs returns TofPulseLengthPs or its default.
func (c *ImagingConfig) GetTofPulseLengthPs() int64 {
	if c.TofPulseLengthPs == nil {
		return 1_000_000_000 // 1ms between laser pulses
	}
	return *c.TofPulseLengthPs
}

// GetPeakTimeWindowPs returns PeakTimeWindowPs or its default.
func (c *ImagingConfig) GetPeakTimeWindowPs() int64 {
	if c.PeakTimeWindowPs == nil {
		return 50_000
	}
	return *c.PeakTimeWindowPs
}

// GetLowCropRow returns LowCropRow or its default (0, no crop).
func (c *ImagingConfig) GetLowCropRow() int {
	if c.LowCropRow == nil {
		return 0
	}
	return *c.LowCropRow
}

// GetHighCropRow returns HighCropRow or its default (accept everything).
func (c *ImagingConfig) GetHighCropRow() int {
	if c.HighCropRow == nil {
		return 1 << 30
	}
	return *c.HighCropRow
}

// GetLowCropCol returns LowCropCol or its default (0, no crop).
func (c *ImagingConfig) GetLowCropCol() int {
	if c.LowCropCol == nil {
		return 0
	}
	return *c.LowCropCol
}

// GetHighCropCol returns HighCropCol or its default (accept everything).
func (c *ImagingConfig) GetHighCropCol() int {
	if c.HighCropCol == nil {
		return 1 << 30
	}
	return *c.HighCropCol
}
