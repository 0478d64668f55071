package monitor

import (
	"time"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/timeutil"
)

// Episode is a contiguous run of windows that classified with the same
// pathological outcome.
type Episode struct {
	Symptom       Outcome   `json:"symptom"`
	StartSeq      int64     `json:"start_seq"`
	EndSeq        int64     `json:"end_seq"`
	Windows       int       `json:"windows"`
	PeakIntensity int       `json:"peak_intensity"`
	StartedAt     time.Time `json:"started_at"`
	EndedAt       time.Time `json:"ended_at"`
}

// Duration returns the wall-clock span of the episode.
func (e Episode) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// EpisodeTracker folds per-window outcomes into episodes. A run ends as
// soon as one window classifies differently; non-symptom outcomes never
// open an episode. The tracker is single-goroutine like the pipeline that
// feeds it.
type EpisodeTracker struct {
	clock   timeutil.Clock
	current *Episode
	onEnd   func(Episode)
}

// NewEpisodeTracker returns a tracker that invokes onEnd for every closed
// episode. A nil clock selects the real clock.
func NewEpisodeTracker(clock timeutil.Clock, onEnd func(Episode)) *EpisodeTracker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &EpisodeTracker{clock: clock, onEnd: onEnd}
}

// Observe folds one classified window into the tracker.
func (t *EpisodeTracker) Observe(seq int64, outcome Outcome, d Detection) {
	now := t.clock.Now()

	if t.current != nil && t.current.Symptom == outcome {
		t.current.EndSeq = seq
		t.current.Windows++
		t.current.EndedAt = now
		if i := symptomIntensity(outcome, d); i > t.current.PeakIntensity {
			t.current.PeakIntensity = i
		}
		return
	}

	t.closeCurrent()

	if !outcome.IsSymptom() {
		return
	}
	t.current = &Episode{
		Symptom:       outcome,
		StartSeq:      seq,
		EndSeq:        seq,
		Windows:       1,
		PeakIntensity: symptomIntensity(outcome, d),
		StartedAt:     now,
		EndedAt:       now,
	}
}

// Current returns a copy of the live episode, if any.
func (t *EpisodeTracker) Current() (Episode, bool) {
	if t.current == nil {
		return Episode{}, false
	}
	return *t.current, true
}

// Flush closes the live episode, if any. Call on shutdown so an episode in
// progress is not lost.
func (t *EpisodeTracker) Flush() {
	t.closeCurrent()
}

func (t *EpisodeTracker) closeCurrent() {
	if t.current == nil {
		return
	}
	ep := *t.current
	t.current = nil
	if t.onEnd != nil {
		t.onEnd(ep)
	}
}

// symptomIntensity extracts the reported intensity for the outcome's own
// band; freezing has no intensity scale.
func symptomIntensity(outcome Outcome, d Detection) int {
	switch outcome {
	case OutcomeTremor:
		return d.TremorIntensity
	case OutcomeDyskinesia:
		return d.DyskinesiaIntensity
	default:
		return 0
	}
}
