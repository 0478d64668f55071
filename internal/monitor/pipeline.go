package monitor

import (
	"fmt"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitoring"
)

// WindowResult bundles everything the pipeline produces for one completed
// window.
type WindowResult struct {
	// Seq numbers completed windows from 1, monotonically per pipeline.
	Seq       int64        `json:"seq"`
	Outcome   Outcome      `json:"outcome"`
	Detection Detection    `json:"detection"`
	Energies  BandEnergies `json:"energies"`
	Gait      GaitMetrics  `json:"gait"`
	// State is the classifier state after this window.
	State State `json:"state"`
}

// Pipeline drives the detection chain: samples are accumulated by a
// WindowAssembler; each completed window is analyzed and classified
// synchronously, in arrival order, before the next sample is accepted.
// The pipeline owns the classifier state.
//
// Pipeline is not safe for concurrent use; a single goroutine pushes
// samples.
type Pipeline struct {
	cfg        Config
	assembler  *WindowAssembler
	spectral   *SpectralAnalyzer
	classifier *Classifier
	gait       *GaitAnalyzer
	state      State
	seq        int64
	onResult   func(WindowResult)
}

// NewPipeline creates a pipeline. onResult, if non-nil, is invoked
// synchronously for every completed window.
func NewPipeline(cfg Config, onResult func(WindowResult)) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline config: %w", err)
	}

	spectral, err := NewSpectralAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		assembler:  NewWindowAssembler(cfg.WindowSize),
		spectral:   spectral,
		classifier: NewClassifier(cfg),
		gait:       NewGaitAnalyzer(cfg),
		onResult:   onResult,
	}, nil
}

// Config returns the effective pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// State returns the current classifier state.
func (p *Pipeline) State() State {
	return p.state
}

// Windows returns how many windows have completed.
func (p *Pipeline) Windows() int64 {
	return p.seq
}

// PushSample feeds one scalar acceleration sample (mg). When the sample
// completes a window the full result is returned with ok=true and the
// result callback fires before PushSample returns.
func (p *Pipeline) PushSample(v float64) (WindowResult, bool) {
	win, ok := p.assembler.Push(v)
	if !ok {
		return WindowResult{}, false
	}

	energies, err := p.spectral.Analyze(win)
	if err != nil {
		// Only reachable if the assembler and analyzer disagree on window
		// size, which Validate rules out. Drop the window rather than
		// poison the stream.
		monitoring.Logf("spectral analysis failed: %v", err)
		return WindowResult{}, false
	}

	gait := p.gait.Analyze(win)
	det, outcome := p.classifier.Evaluate(energies, &p.state)

	p.seq++
	res := WindowResult{
		Seq:       p.seq,
		Outcome:   outcome,
		Detection: det,
		Energies:  energies,
		Gait:      gait,
		State:     p.state,
	}
	if p.onResult != nil {
		p.onResult(res)
	}
	return res, true
}

// Reset discards any partial window and clears the classifier state. The
// window sequence keeps counting.
func (p *Pipeline) Reset() {
	p.assembler.Reset()
	p.state = State{}
}
