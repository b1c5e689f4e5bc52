// Package mathx provides rounding and clamping helpers for float values
package mathx

import "strconv"

// RoundPlaces rounds x to the given number of decimal places.  The exact
// binary value is rounded, so 1.095 (stored just below) gives 1.09, and exact
// halves go to the even digit, so 1.125 gives 1.12.
func RoundPlaces(x float64, places int) float64 {
	if places < 0 {
		return x
	}
	v, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return v
}

// Clamp limits x to the closed interval [low, high]
func Clamp(x, low, high float64) float64 {
	if x < low {
		return low
	}
	if x > high {
		return high
	}
	return x
}
