// Package config loads JSON tuning overlays for the detection pipeline.
// Every field is optional; omitted fields keep the pipeline defaults, so a
// tuning file only needs to name the values it changes. The schema matches
// the /api/config response so a captured config can be fed straight back
// as a tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

// BandConfig is an optional override for one frequency band. Both edges
// must be given together.
type BandConfig struct {
	Low  *float64 `json:"low,omitempty"`
	High *float64 `json:"high,omitempty"`
}

// BandsConfig holds optional per-band overrides.
type BandsConfig struct {
	Locomotor  *BandConfig `json:"locomotor,omitempty"`
	Tremor     *BandConfig `json:"tremor,omitempty"`
	Dyskinesia *BandConfig `json:"dyskinesia,omitempty"`
	Freeze     *BandConfig `json:"freeze,omitempty"`
}

// TuningConfig is the root tuning overlay. The classifier thresholds are
// calibrated against the exact sample-rate/FFT/window combination, so a
// file that changes one of those should normally retune the thresholds
// too.
type TuningConfig struct {
	// Pipeline sizing
	SampleRate *float64 `json:"sample_rate,omitempty"`
	WindowSize *int     `json:"window_size,omitempty"`
	FFTSize    *int     `json:"fft_size,omitempty"`

	// Classifier thresholds
	ActionThreshold  *float64 `json:"action_threshold,omitempty"`
	WalkThreshold    *float64 `json:"walk_threshold,omitempty"`
	FreezeRatio      *float64 `json:"freeze_ratio,omitempty"`
	IntensityDivisor *float64 `json:"intensity_divisor,omitempty"`

	// Band edges
	Bands *BandsConfig `json:"bands,omitempty"`

	// Gait metrics
	StillnessStdDev *float64 `json:"stillness_stddev,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file is
// validated to ensure it has a .json extension and is under the max file
// size. Fields omitted from the JSON file keep the pipeline defaults, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the overlay for values that could never be valid,
// independent of what they are applied to. Cross-field checks (FFT size
// versus window size, band edges versus Nyquist) happen after Apply, via
// monitor.Config.Validate.
func (c *TuningConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %f", *c.SampleRate)
	}
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %d", *c.WindowSize)
	}
	if c.FFTSize != nil {
		if *c.FFTSize <= 0 || *c.FFTSize&(*c.FFTSize-1) != 0 {
			return fmt.Errorf("fft_size must be a positive power of two, got %d", *c.FFTSize)
		}
	}
	for _, f := range []struct {
		name  string
		value *float64
	}{
		{"action_threshold", c.ActionThreshold},
		{"walk_threshold", c.WalkThreshold},
		{"freeze_ratio", c.FreezeRatio},
		{"intensity_divisor", c.IntensityDivisor},
		{"stillness_stddev", c.StillnessStdDev},
	} {
		if f.value != nil && *f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.value)
		}
	}
	if c.Bands != nil {
		for _, b := range []struct {
			name string
			band *BandConfig
		}{
			{"locomotor", c.Bands.Locomotor},
			{"tremor", c.Bands.Tremor},
			{"dyskinesia", c.Bands.Dyskinesia},
			{"freeze", c.Bands.Freeze},
		} {
			if b.band == nil {
				continue
			}
			if b.band.Low == nil || b.band.High == nil {
				return fmt.Errorf("%s band must specify both low and high", b.name)
			}
			if *b.band.Low < 0 || *b.band.Low >= *b.band.High {
				return fmt.Errorf("%s band edges must satisfy 0 <= low < high, got [%f, %f]",
					b.name, *b.band.Low, *b.band.High)
			}
		}
	}
	return nil
}

// Apply overlays the non-nil fields onto a pipeline configuration and
// returns the result. The input is not modified.
func (c *TuningConfig) Apply(base monitor.Config) monitor.Config {
	if c == nil {
		return base
	}
	if c.SampleRate != nil {
		base.SampleRate = *c.SampleRate
	}
	if c.WindowSize != nil {
		base.WindowSize = *c.WindowSize
	}
	if c.FFTSize != nil {
		base.FFTSize = *c.FFTSize
	}
	if c.ActionThreshold != nil {
		base.ActionThreshold = *c.ActionThreshold
	}
	if c.WalkThreshold != nil {
		base.WalkThreshold = *c.WalkThreshold
	}
	if c.FreezeRatio != nil {
		base.FreezeRatio = *c.FreezeRatio
	}
	if c.IntensityDivisor != nil {
		base.IntensityDivisor = *c.IntensityDivisor
	}
	if c.StillnessStdDev != nil {
		base.StillnessStdDev = *c.StillnessStdDev
	}
	if c.Bands != nil {
		applyBand(&base.Bands.Locomotor, c.Bands.Locomotor)
		applyBand(&base.Bands.Tremor, c.Bands.Tremor)
		applyBand(&base.Bands.Dyskinesia, c.Bands.Dyskinesia)
		applyBand(&base.Bands.Freeze, c.Bands.Freeze)
	}
	return base
}

func applyBand(dst *monitor.Band, src *BandConfig) {
	if src == nil || src.Low == nil || src.High == nil {
		return
	}
	dst.Low = *src.Low
	dst.High = *src.High
}

// FromMonitorConfig captures a full pipeline configuration as a tuning
// overlay, for saving the effective config back to disk.
func FromMonitorConfig(cfg monitor.Config) *TuningConfig {
	return &TuningConfig{
		SampleRate:       ptrFloat64(cfg.SampleRate),
		WindowSize:       ptrInt(cfg.WindowSize),
		FFTSize:          ptrInt(cfg.FFTSize),
		ActionThreshold:  ptrFloat64(cfg.ActionThreshold),
		WalkThreshold:    ptrFloat64(cfg.WalkThreshold),
		FreezeRatio:      ptrFloat64(cfg.FreezeRatio),
		IntensityDivisor: ptrFloat64(cfg.IntensityDivisor),
		StillnessStdDev:  ptrFloat64(cfg.StillnessStdDev),
		Bands: &BandsConfig{
			Locomotor:  &BandConfig{Low: ptrFloat64(cfg.Bands.Locomotor.Low), High: ptrFloat64(cfg.Bands.Locomotor.High)},
			Tremor:     &BandConfig{Low: ptrFloat64(cfg.Bands.Tremor.Low), High: ptrFloat64(cfg.Bands.Tremor.High)},
			Dyskinesia: &BandConfig{Low: ptrFloat64(cfg.Bands.Dyskinesia.Low), High: ptrFloat64(cfg.Bands.Dyskinesia.High)},
			Freeze:     &BandConfig{Low: ptrFloat64(cfg.Bands.Freeze.Low), High: ptrFloat64(cfg.Bands.Freeze.High)},
		},
	}
}

// SaveTuningConfig writes the overlay as indented JSON.
func SaveTuningConfig(path string, cfg *TuningConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
