package units

import (
	"math"
	"testing"
)

func TestConvertAccel(t *testing.T) {
	tests := []struct {
		name     string
		accelMG  float64
		units    string
		expected float64
	}{
		{"1000 mg to g", 1000.0, G, 1.0},
		{"1000 mg to mps2", 1000.0, MPS2, 9.80665},
		{"1000 mg to mg", 1000.0, MG, 1000.0},
		{"unknown units default to mg", 1000.0, "unknown", 1000.0},
		{"0 mg to g", 0.0, G, 0.0},
		{"tremor amplitude 300 mg to g", 300.0, G, 0.3},
		{"resting 20 mg to mps2", 20.0, MPS2, 0.196133},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertAccel(tt.accelMG, tt.units)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ConvertAccel(%f, %s) = %f, want %f", tt.accelMG, tt.units, result, tt.expected)
			}
		})
	}
}

func TestToMilliG(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		units    string
		expected float64
	}{
		{"1 g to mg", 1.0, G, 1000.0},
		{"9.80665 mps2 to mg", 9.80665, MPS2, 1000.0},
		{"500 mg to mg", 500.0, MG, 500.0},
		{"unknown units pass through", 500.0, "unknown", 500.0},
		{"0.3 g to mg", 0.3, G, 300.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMilliG(tt.value, tt.units)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ToMilliG(%f, %s) = %f, want %f", tt.value, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid mg", MG, true},
		{"valid g", G, true},
		{"valid mps2", MPS2, true},
		{"invalid unit", "invalid", false},
		{"empty string", "", false},
		{"case sensitive", "MG", false},
		{"case sensitive", "Mg", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "mg, g, mps2"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

// Round trips between storage and display units should be lossless
// within floating point tolerance.
func TestRoundTrip(t *testing.T) {
	for _, unit := range ValidUnits {
		for _, mg := range []float64{0.0, 1.0, 156.0, 1000.0, 2000.0} {
			got := ToMilliG(ConvertAccel(mg, unit), unit)
			if math.Abs(got-mg) > 1e-9 {
				t.Errorf("round trip %f mg through %s = %f", mg, unit, got)
			}
		}
	}
}
