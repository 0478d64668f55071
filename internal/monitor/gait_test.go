package monitor

import (
	"math"
	"testing"
)

func newTestGaitAnalyzer(t *testing.T) *GaitAnalyzer {
	t.Helper()
	return NewGaitAnalyzer(Config{})
}

func TestGaitStillOnFlatWindow(t *testing.T) {
	g := newTestGaitAnalyzer(t)
	flat := make([]float64, DefaultWindowSize)
	for i := range flat {
		flat[i] = 981 // resting gravity magnitude in mg
	}

	m := g.Analyze(flat)
	if !m.Still {
		t.Fatal("flat window not reported as still")
	}
	if m.Mean != 981 {
		t.Errorf("mean = %v, want 981", m.Mean)
	}
	if m.StdDev != 0 || m.RMS != 0 {
		t.Errorf("stddev/rms = %v/%v, want 0/0", m.StdDev, m.RMS)
	}
	if m.CadenceOK {
		t.Error("still window reported a cadence")
	}
}

func TestGaitSmallJitterStaysStill(t *testing.T) {
	g := newTestGaitAnalyzer(t)
	// 10 mg of alternating jitter: stddev about 10, below the 30 mg
	// stillness threshold.
	w := make([]float64, DefaultWindowSize)
	for i := range w {
		if i%2 == 0 {
			w[i] = 10
		} else {
			w[i] = -10
		}
	}
	if m := g.Analyze(w); !m.Still {
		t.Fatalf("10 mg jitter reported moving: stddev %v", m.StdDev)
	}
}

func TestGaitCadenceOfWalkingTone(t *testing.T) {
	g := newTestGaitAnalyzer(t)
	m := g.Analyze(renderTones(DefaultWindowSize, DefaultSampleRate, [2]float64{2, 400}))

	if m.Still {
		t.Fatal("walking window reported still")
	}
	if !m.CadenceOK {
		t.Fatal("no cadence on a pure 2 Hz tone")
	}
	if math.Abs(m.CadenceHz-2.0) > 0.1 {
		t.Fatalf("cadence = %.3f Hz, want 2.0", m.CadenceHz)
	}

	// Peak amplitude A gives RMS A/sqrt(2) for a sinusoid spanning whole
	// periods.
	wantRMS := 400 / math.Sqrt2
	if math.Abs(m.RMS-wantRMS) > wantRMS*0.02 {
		t.Fatalf("rms = %.2f, want about %.2f", m.RMS, wantRMS)
	}
}

func TestGaitNoCadenceOutsideLocomotorRange(t *testing.T) {
	g := newTestGaitAnalyzer(t)
	// 6 Hz dyskinetic motion: well above the locomotor band, so the lag
	// scan must not claim a locomotor cadence. A harmonic at one third of
	// the rate could alias in, so check the reported value if any.
	m := g.Analyze(renderTones(DefaultWindowSize, DefaultSampleRate, [2]float64{6, 300}))
	if m.CadenceOK && (m.CadenceHz < DefaultBands().Locomotor.Low || m.CadenceHz > DefaultBands().Locomotor.High) {
		t.Fatalf("cadence %.3f Hz outside the locomotor range", m.CadenceHz)
	}
}

func TestGaitEmptyWindow(t *testing.T) {
	g := newTestGaitAnalyzer(t)
	if m := g.Analyze(nil); !m.Still {
		t.Fatal("empty window not reported as still")
	}
}
