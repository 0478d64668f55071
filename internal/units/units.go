// Package units provides shared constants and validation for acceleration units
package units

// Unit constants
const (
	MG   = "mg"
	G    = "g"
	MPS2 = "mps2"
)

// standardGravity is the conventional value of g in m/s².
const standardGravity = 9.80665

// ValidUnits contains all valid unit values
var ValidUnits = []string{MG, G, MPS2}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "mg, g, mps2"
}

// ConvertAccel converts an acceleration from milli-g to the target units
// Database stores accelerations in mg (milli-g)
func ConvertAccel(accelMG float64, targetUnits string) float64 {
	switch targetUnits {
	case G:
		return accelMG / 1000.0 // mg to g
	case MPS2:
		return accelMG / 1000.0 * standardGravity // mg to m/s²
	case MG:
		return accelMG // no conversion needed
	default:
		return accelMG // default to mg if unknown unit
	}
}

// ToMilliG converts an acceleration in the given source units to milli-g,
// the unit the detection pipeline and database work in.
func ToMilliG(value float64, sourceUnits string) float64 {
	switch sourceUnits {
	case G:
		return value * 1000.0
	case MPS2:
		return value / standardGravity * 1000.0
	case MG:
		return value
	default:
		return value
	}
}
