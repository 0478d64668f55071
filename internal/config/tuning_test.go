package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTuningConfigPartial(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
		"action_threshold": 20000,
		"bands": {"tremor": {"low": 3.5, "high": 5.5}}
	}`)

	cfg, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	if cfg.ActionThreshold == nil || *cfg.ActionThreshold != 20000 {
		t.Errorf("ActionThreshold = %v, want 20000", cfg.ActionThreshold)
	}
	if cfg.WalkThreshold != nil {
		t.Errorf("WalkThreshold = %v, want nil (not in file)", cfg.WalkThreshold)
	}
	if cfg.Bands == nil || cfg.Bands.Tremor == nil {
		t.Fatal("expected tremor band override")
	}
	if *cfg.Bands.Tremor.Low != 3.5 || *cfg.Bands.Tremor.High != 5.5 {
		t.Errorf("tremor band = [%v, %v], want [3.5, 5.5]", *cfg.Bands.Tremor.Low, *cfg.Bands.Tremor.High)
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	path := writeConfig(t, "tuning.yaml", "action_threshold: 20000")
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatal("expected error for non-.json extension")
	}
}

func TestLoadTuningConfigMissingFile(t *testing.T) {
	if _, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadTuningConfigRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{"action_threshold": `)
	if _, err := LoadTuningConfig(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  TuningConfig
	}{
		{"negative threshold", TuningConfig{ActionThreshold: ptrFloat64(-1)}},
		{"zero sample rate", TuningConfig{SampleRate: ptrFloat64(0)}},
		{"non power of two fft", TuningConfig{FFTSize: ptrInt(100)}},
		{"inverted band", TuningConfig{Bands: &BandsConfig{
			Tremor: &BandConfig{Low: ptrFloat64(5), High: ptrFloat64(3)},
		}}},
		{"half specified band", TuningConfig{Bands: &BandsConfig{
			Freeze: &BandConfig{Low: ptrFloat64(3)},
		}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestValidateAcceptsEmpty(t *testing.T) {
	if err := EmptyTuningConfig().Validate(); err != nil {
		t.Fatalf("Validate(empty) = %v, want nil", err)
	}
}

func TestApplyOverlaysOnlySetFields(t *testing.T) {
	overlay := TuningConfig{
		ActionThreshold: ptrFloat64(20000),
		Bands: &BandsConfig{
			Freeze: &BandConfig{Low: ptrFloat64(3), High: ptrFloat64(9)},
		},
	}

	base := monitor.Config{}
	got := overlay.Apply(base)

	if got.ActionThreshold != 20000 {
		t.Errorf("ActionThreshold = %v, want 20000", got.ActionThreshold)
	}
	// Untouched fields stay zero so the pipeline constructors still fill
	// defaults.
	if got.WalkThreshold != 0 {
		t.Errorf("WalkThreshold = %v, want 0 (untouched)", got.WalkThreshold)
	}
	if got.Bands.Freeze != (monitor.Band{Low: 3, High: 9}) {
		t.Errorf("freeze band = %+v, want [3, 9]", got.Bands.Freeze)
	}
	if got.Bands.Tremor != (monitor.Band{}) {
		t.Errorf("tremor band = %+v, want untouched zero value", got.Bands.Tremor)
	}
}

func TestApplyNilIsIdentity(t *testing.T) {
	var overlay *TuningConfig
	base := monitor.Config{ActionThreshold: 123}
	if got := overlay.Apply(base); got != base {
		t.Errorf("nil overlay changed config: %+v", got)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := monitor.Config{
		SampleRate: 52, WindowSize: 156, FFTSize: 256,
		Bands:           monitor.DefaultBands(),
		ActionThreshold: 15000, WalkThreshold: 10000,
		FreezeRatio: 1.5, IntensityDivisor: 1000, StillnessStdDev: 30,
	}
	full := FromMonitorConfig(cfg)
	path := filepath.Join(t.TempDir(), "tuning.json")
	if err := SaveTuningConfig(path, full); err != nil {
		t.Fatalf("SaveTuningConfig: %v", err)
	}

	loaded, err := LoadTuningConfig(path)
	if err != nil {
		t.Fatalf("LoadTuningConfig: %v", err)
	}

	// The round-tripped overlay must reproduce the captured config when
	// applied to a zero base.
	if diff := cmp.Diff(cfg, loaded.Apply(monitor.Config{})); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromMonitorConfigValidates(t *testing.T) {
	full := FromMonitorConfig(monitor.Config{
		SampleRate: 52, WindowSize: 156, FFTSize: 256,
		Bands:           monitor.DefaultBands(),
		ActionThreshold: 15000, WalkThreshold: 10000,
		FreezeRatio: 1.5, IntensityDivisor: 1000, StillnessStdDev: 30,
	})
	if err := full.Validate(); err != nil {
		t.Fatalf("Validate(full capture) = %v, want nil", err)
	}
}
