// Package units provides shared constants and conversions for ROM units.
package units

import "math"

// ROM unit constants
const (
	Degrees     = "deg"
	Centimeters = "cm"
)

// ValidUnits contains all valid ROM unit values
var ValidUnits = []string{Degrees, Centimeters}

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
	return "deg, cm"
}

// DegToRad converts an angle in degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts an angle in radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// MetersToCentimeters converts a displacement in meters to centimeters.
// The engine integrates in SI units; ROM values are reported in cm.
func MetersToCentimeters(m float64) float64 {
	return m * 100.0
}
