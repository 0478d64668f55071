package monitor

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GaitMetrics are supplementary time-domain statistics for one window.
// They are reported alongside the spectral detection but never influence
// classification.
type GaitMetrics struct {
	// Mean and StdDev of the raw window in mg.
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	// RMS of the mean-removed window in mg.
	RMS float64 `json:"rms"`
	// Still is set when movement variability falls below the configured
	// stillness threshold.
	Still bool `json:"still"`
	// CadenceHz is the dominant periodicity in the locomotor range,
	// meaningful only when CadenceOK is set.
	CadenceHz float64 `json:"cadence_hz"`
	CadenceOK bool    `json:"cadence_ok"`
}

// GaitAnalyzer computes GaitMetrics. Cadence is estimated by scanning the
// normalized autocorrelation of the mean-removed window over lags that
// correspond to the locomotor band.
type GaitAnalyzer struct {
	sampleRate float64
	stillStd   float64
	minLag     int
	maxLag     int
	centered   []float64
}

// NewGaitAnalyzer builds an analyzer from the pipeline configuration.
func NewGaitAnalyzer(cfg Config) *GaitAnalyzer {
	cfg = cfg.withDefaults()
	minLag := int(math.Ceil(cfg.SampleRate / cfg.Bands.Locomotor.High))
	maxLag := int(math.Floor(cfg.SampleRate / cfg.Bands.Locomotor.Low))
	if minLag < 1 {
		minLag = 1
	}
	return &GaitAnalyzer{
		sampleRate: cfg.SampleRate,
		stillStd:   cfg.StillnessStdDev,
		minLag:     minLag,
		maxLag:     maxLag,
		centered:   make([]float64, cfg.WindowSize),
	}
}

// Analyze computes the metrics for one window.
func (g *GaitAnalyzer) Analyze(samples []float64) GaitMetrics {
	if len(samples) == 0 {
		return GaitMetrics{Still: true}
	}

	mean := stat.Mean(samples, nil)
	sd := stat.StdDev(samples, nil)
	if math.IsNaN(sd) {
		sd = 0
	}

	if len(g.centered) != len(samples) {
		g.centered = make([]float64, len(samples))
	}
	var sumsq float64
	for i, s := range samples {
		d := s - mean
		g.centered[i] = d
		sumsq += d * d
	}
	rms := math.Sqrt(sumsq / float64(len(samples)))

	m := GaitMetrics{
		Mean:   mean,
		StdDev: sd,
		RMS:    rms,
		Still:  sd < g.stillStd,
	}

	maxLag := g.maxLag
	if maxLag > len(samples)-1 {
		maxLag = len(samples) - 1
	}
	if m.Still || sumsq == 0 || g.minLag > maxLag {
		return m
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := g.minLag; lag <= maxLag; lag++ {
		var acc float64
		for i := 0; i+lag < len(g.centered); i++ {
			acc += g.centered[i] * g.centered[i+lag]
		}
		if corr := acc / sumsq; corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	// Require a clear periodic structure before reporting a cadence; weak
	// correlations on noisy windows are meaningless.
	if bestLag > 0 && bestCorr > 0.5 {
		m.CadenceHz = g.sampleRate / float64(bestLag)
		m.CadenceOK = true
	}
	return m
}
