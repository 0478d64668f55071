package monitor

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
)

// ErrWindowLength is returned when Analyze receives a slice that does not
// match the configured window size.
var ErrWindowLength = errors.New("window length does not match configuration")

// BandEnergies holds the magnitude sums over the four configured frequency
// bands for one analysis window. Values are unitless accumulations of raw
// FFT magnitudes; the classifier thresholds are calibrated against them.
type BandEnergies struct {
	Locomotor  float64 `json:"locomotor"`
	Tremor     float64 `json:"tremor"`
	Dyskinesia float64 `json:"dyskinesia"`
	Freeze     float64 `json:"freeze"`
}

// SpectralAnalyzer turns one sample window into band energies:
// DC removal, Hamming windowing, zero-padded FFT, magnitude spectrum, and
// band integration. All scratch buffers are allocated once at construction
// so steady-state analysis does not allocate.
type SpectralAnalyzer struct {
	cfg    Config
	coeffs []float64
	plan   *algofft.Plan[complex128]
	in     []complex128
	out    []complex128
	re     []float64
	im     []float64
	mags   []float64
}

// NewSpectralAnalyzer creates an analyzer for the given configuration.
// Zero-valued fields fall back to defaults.
func NewSpectralAnalyzer(cfg Config) (*SpectralAnalyzer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spectral analyzer config: %w", err)
	}

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("create fft plan: %w", err)
	}

	bins := cfg.FFTSize/2 + 1
	return &SpectralAnalyzer{
		cfg:    cfg,
		coeffs: window.Generate(window.TypeHamming, cfg.WindowSize),
		plan:   plan,
		in:     make([]complex128, cfg.FFTSize),
		out:    make([]complex128, cfg.FFTSize),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
		mags:   make([]float64, bins),
	}, nil
}

// Config returns the effective configuration after default filling.
func (a *SpectralAnalyzer) Config() Config {
	return a.cfg
}

// Analyze computes the band energies for one window. The samples slice must
// be exactly WindowSize long.
func (a *SpectralAnalyzer) Analyze(samples []float64) (BandEnergies, error) {
	if len(samples) != a.cfg.WindowSize {
		return BandEnergies{}, fmt.Errorf("got %d samples, want %d: %w", len(samples), a.cfg.WindowSize, ErrWindowLength)
	}

	var mean float64
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	// The tail a.in[WindowSize:] is never written, so the zero padding from
	// construction stays exact.
	for i, s := range samples {
		a.in[i] = complex((s-mean)*a.coeffs[i], 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return BandEnergies{}, fmt.Errorf("fft forward: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	spectrum.MagnitudeFromParts(a.mags, a.re, a.im)

	// Bins 0 and 1 carry DC remnants and sub-locomotor drift; integration
	// always starts at bin 2. A bin contributes to every band containing
	// its center frequency.
	binHz := a.cfg.BinHz()
	var e BandEnergies
	for k := 2; k < len(a.mags); k++ {
		f := float64(k) * binHz
		m := a.mags[k]
		if a.cfg.Bands.Locomotor.Contains(f) {
			e.Locomotor += m
		}
		if a.cfg.Bands.Tremor.Contains(f) {
			e.Tremor += m
		}
		if a.cfg.Bands.Dyskinesia.Contains(f) {
			e.Dyskinesia += m
		}
		if a.cfg.Bands.Freeze.Contains(f) {
			e.Freeze += m
		}
	}
	return e, nil
}
