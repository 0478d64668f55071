// Package monitor implements the motor-symptom detection pipeline: fixed
// windows of scalar acceleration samples are transformed into frequency-band
// energies and classified into tremor, dyskinesia and freezing-of-gait
// detections. The package also computes supplementary time-domain gait
// metrics and aggregates per-window detections into symptom episodes.
package monitor

import (
	"errors"
	"fmt"
)

// Default pipeline parameters. The sampling setup mirrors the wearable
// firmware: 52 Hz accelerometer output, 3 second analysis windows,
// zero-padded to a 256-point FFT.
const (
	DefaultSampleRate       = 52.0
	DefaultWindowSize       = 156
	DefaultFFTSize          = 256
	DefaultActionThreshold  = 15000.0
	DefaultWalkThreshold    = 10000.0
	DefaultFreezeRatio      = 1.5
	DefaultIntensityDivisor = 1000.0
	DefaultStillnessStdDev  = 30.0
)

var (
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	ErrInvalidWindowSize = errors.New("window size must be positive")
	ErrInvalidFFTSize    = errors.New("fft size must be a power of two at least the window size")
	ErrInvalidThreshold  = errors.New("thresholds must be positive")
	ErrInvalidBand       = errors.New("band edges must satisfy 0 <= low < high <= nyquist")
)

// Band is an inclusive frequency range in Hz.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// Contains reports whether freq lies within the band, inclusive at both
// edges.
func (b Band) Contains(freq float64) bool {
	return freq >= b.Low && freq <= b.High
}

// Bands holds the four clinically motivated frequency ranges. Bands may
// overlap; the freeze band deliberately spans both the tremor and
// dyskinesia ranges.
type Bands struct {
	Locomotor  Band `json:"locomotor"`
	Tremor     Band `json:"tremor"`
	Dyskinesia Band `json:"dyskinesia"`
	Freeze     Band `json:"freeze"`
}

// DefaultBands returns the standard band layout: locomotor 0.5-3 Hz,
// tremor 3-5 Hz, dyskinesia 5-7 Hz, freeze 3-8 Hz.
func DefaultBands() Bands {
	return Bands{
		Locomotor:  Band{Low: 0.5, High: 3.0},
		Tremor:     Band{Low: 3.0, High: 5.0},
		Dyskinesia: Band{Low: 5.0, High: 7.0},
		Freeze:     Band{Low: 3.0, High: 8.0},
	}
}

// Config holds the tunable parameters of the detection pipeline. Zero
// values are replaced with defaults by the constructors, so Config{} is a
// valid starting point.
type Config struct {
	// SampleRate is the input rate in Hz.
	SampleRate float64
	// WindowSize is the number of samples per analysis window.
	WindowSize int
	// FFTSize is the zero-padded transform length. Must be a power of two
	// no smaller than WindowSize.
	FFTSize int
	// Bands are the integration ranges for band energies.
	Bands Bands
	// ActionThreshold is the minimum band energy for a symptom detection.
	ActionThreshold float64
	// WalkThreshold is the minimum locomotor energy considered walking.
	WalkThreshold float64
	// FreezeRatio is the freeze/locomotor energy ratio that triggers the
	// freezing-of-gait rule while locomotor energy is above WalkThreshold.
	FreezeRatio float64
	// IntensityDivisor scales band energy to the 0-100 intensity range.
	IntensityDivisor float64
	// StillnessStdDev is the gait-metric standard deviation (mg) below
	// which a window counts as still.
	StillnessStdDev float64
}

// withDefaults returns a copy of c with zero values replaced by defaults.
func (c Config) withDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.WindowSize == 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.FFTSize == 0 {
		c.FFTSize = DefaultFFTSize
	}
	if c.Bands == (Bands{}) {
		c.Bands = DefaultBands()
	}
	if c.ActionThreshold == 0 {
		c.ActionThreshold = DefaultActionThreshold
	}
	if c.WalkThreshold == 0 {
		c.WalkThreshold = DefaultWalkThreshold
	}
	if c.FreezeRatio == 0 {
		c.FreezeRatio = DefaultFreezeRatio
	}
	if c.IntensityDivisor == 0 {
		c.IntensityDivisor = DefaultIntensityDivisor
	}
	if c.StillnessStdDev == 0 {
		c.StillnessStdDev = DefaultStillnessStdDev
	}
	return c
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}
	if c.FFTSize < c.WindowSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return ErrInvalidFFTSize
	}
	if c.ActionThreshold <= 0 || c.WalkThreshold <= 0 || c.FreezeRatio <= 0 || c.IntensityDivisor <= 0 {
		return ErrInvalidThreshold
	}
	nyquist := c.SampleRate / 2
	for _, b := range []struct {
		name string
		band Band
	}{
		{"locomotor", c.Bands.Locomotor},
		{"tremor", c.Bands.Tremor},
		{"dyskinesia", c.Bands.Dyskinesia},
		{"freeze", c.Bands.Freeze},
	} {
		if b.band.Low < 0 || b.band.Low >= b.band.High || b.band.High > nyquist {
			return fmt.Errorf("%s band [%g, %g]: %w", b.name, b.band.Low, b.band.High, ErrInvalidBand)
		}
	}
	return nil
}

// BinHz returns the frequency resolution of one FFT bin in Hz.
func (c Config) BinHz() float64 {
	return c.SampleRate / float64(c.FFTSize)
}

// WindowDuration returns the span of one analysis window in seconds.
func (c Config) WindowDuration() float64 {
	return float64(c.WindowSize) / c.SampleRate
}
