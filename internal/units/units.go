// Package units provides shared constants and conversions for speed units.
package units

// Unit constants
const (
	MPS  = "mps"
	KMPH = "kmph"
	KPH  = "kph"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MPS, KMPH, KPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// KmhToMps converts a speed in km/h to m/s. Track data and CLI flags
// carry km/h; the simulation core works exclusively in m/s.
func KmhToMps(speedKmh float64) float64 {
	return speedKmh / 3.6
}

// MpsToKmh converts a speed in m/s to km/h for display.
func MpsToKmh(speedMps float64) float64 {
	return speedMps * 3.6
}

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case KMPH, KPH:
		return MpsToKmh(speedMPS)
	case MPS:
		return speedMPS
	default:
		return speedMPS // default to m/s if unknown unit
	}
}
