package iso

import (
	"fmt"
	"math"
)

// FormatShutter renders an exposure time in microseconds as a camera style
// shutter label: "1/125" below one second, "2.5s" below ten, "12s" above.
// Non-positive exposures give "-".
func FormatShutter(us int64) string {
	if us <= 0 {
		return "-"
	}
	s := float64(us) / 1e6
	switch {
	case s < 1:
		denom := math.Round(1 / s)
		if denom <= 0 {
			return fmt.Sprintf("%.3fs", s)
		}
		return fmt.Sprintf("1/%d", int64(denom))
	case s < 10:
		return fmt.Sprintf("%.1fs", s)
	default:
		return fmt.Sprintf("%ds", int64(s))
	}
}
