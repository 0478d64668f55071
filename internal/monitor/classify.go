package monitor

// Outcome identifies how one window was classified. Three outcomes are
// pathological; walking and idle describe non-symptom activity.
type Outcome string

const (
	OutcomeTremor     Outcome = "tremor"
	OutcomeDyskinesia Outcome = "dyskinesia"
	OutcomeFOG        Outcome = "fog"
	OutcomeWalking    Outcome = "walking"
	OutcomeIdle       Outcome = "idle"
)

// IsSymptom reports whether the outcome is a pathological detection.
func (o Outcome) IsSymptom() bool {
	switch o {
	case OutcomeTremor, OutcomeDyskinesia, OutcomeFOG:
		return true
	}
	return false
}

// State is the classifier memory carried across windows. The pipeline owns
// one State and passes it by reference on every evaluation.
//
// Frozen implements the freezing-of-gait hysteresis: once a freeze
// triggers, the wearer stays frozen until a window fails the freeze-energy
// test (or strong tremor takes over). WasWalking remembers that the
// previous window showed walking, enabling the context arm of the freeze
// rule when locomotor output collapses abruptly.
type State struct {
	Frozen     bool `json:"frozen"`
	WasWalking bool `json:"was_walking"`
}

// Detection is the per-window classification result. Intensities are 0-100;
// at most one of the three fields is set. A fresh value is produced for
// every window.
type Detection struct {
	TremorIntensity     int  `json:"tremor_intensity"`
	DyskinesiaIntensity int  `json:"dyskinesia_intensity"`
	FOGActive           bool `json:"fog_active"`
}

// Classifier maps band energies to detections using fixed thresholds.
type Classifier struct {
	action  float64
	walk    float64
	ratio   float64
	divisor float64
}

// NewClassifier builds a classifier from the pipeline configuration.
func NewClassifier(cfg Config) *Classifier {
	cfg = cfg.withDefaults()
	return &Classifier{
		action:  cfg.ActionThreshold,
		walk:    cfg.WalkThreshold,
		ratio:   cfg.FreezeRatio,
		divisor: cfg.IntensityDivisor,
	}
}

// intensity scales a band energy onto the 0-100 reporting range.
func (c *Classifier) intensity(energy float64) int {
	v := int(energy / c.divisor)
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return v
}

// Evaluate classifies one window of band energies and updates the state in
// place. Rules are applied in strict priority order; the first match wins,
// so a window never reports more than one symptom. Evaluation is
// deterministic: identical energies and prior state always produce the
// same detection and next state.
func (c *Classifier) Evaluate(e BandEnergies, s *State) (Detection, Outcome) {
	tremorNow := e.Tremor > c.action && e.Tremor > e.Locomotor && e.Tremor > e.Dyskinesia

	if s.Frozen {
		switch {
		case tremorNow:
			// Strong tremor overrides a frozen episode.
			s.Frozen = false
			s.WasWalking = false
			return Detection{TremorIntensity: c.intensity(e.Tremor)}, OutcomeTremor
		case e.Freeze > c.action:
			s.WasWalking = false
			return Detection{FOGActive: true}, OutcomeFOG
		default:
			// Freeze energy has subsided; release the latch and evaluate
			// the window normally.
			s.Frozen = false
		}
	}

	if tremorNow {
		s.WasWalking = false
		return Detection{TremorIntensity: c.intensity(e.Tremor)}, OutcomeTremor
	}

	if e.Dyskinesia > c.action && e.Dyskinesia > e.Tremor {
		s.WasWalking = false
		return Detection{DyskinesiaIntensity: c.intensity(e.Dyskinesia)}, OutcomeDyskinesia
	}

	// Freeze trigger. The ratio arm compares freeze against locomotor
	// energy multiplicatively, so no division can blow up when locomotor
	// energy is tiny; the walk-threshold conjunct already excludes zero.
	ratioArm := e.Locomotor > c.walk && e.Freeze > e.Locomotor*c.ratio
	contextArm := s.WasWalking && e.Freeze > c.action && e.Freeze > e.Locomotor
	if ratioArm || contextArm {
		s.Frozen = true
		s.WasWalking = false
		return Detection{FOGActive: true}, OutcomeFOG
	}

	if e.Locomotor > c.walk {
		s.WasWalking = true
		return Detection{}, OutcomeWalking
	}

	s.WasWalking = false
	return Detection{}, OutcomeIdle
}
