package isp

import (
	"strings"

	"github.com/nasa-jpl/rawlab/rawerr"
)

// channel indices into an interleaved RGB sample
const (
	red = iota
	green
	blue
)

// Pattern is the 2x2 color filter arrangement of the sensor, named by its
// top-left, top-right, bottom-left, bottom-right filters.  It is fixed by the
// sensor hardware and always comes from configuration.
type Pattern int

const (
	// PatternUnset is the zero value and is rejected by NewProcessor
	PatternUnset Pattern = iota

	// RGGB has red at the origin
	RGGB

	// BGGR has blue at the origin
	BGGR

	// GRBG has green at the origin, red to its right
	GRBG

	// GBRG has green at the origin, blue to its right
	GBRG
)

// layouts holds the channel at (row parity, column parity) for each pattern
var layouts = map[Pattern][2][2]int{
	RGGB: {{red, green}, {green, blue}},
	BGGR: {{blue, green}, {green, red}},
	GRBG: {{green, red}, {blue, green}},
	GBRG: {{green, blue}, {red, green}},
}

var patternNames = map[Pattern]string{
	RGGB: "RGGB",
	BGGR: "BGGR",
	GRBG: "GRBG",
	GBRG: "GBRG",
}

func (p Pattern) String() string {
	if s, ok := patternNames[p]; ok {
		return s
	}
	return "unset"
}

// ParsePattern parses a pattern name such as "RGGB", case insensitive
func ParsePattern(s string) (Pattern, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range patternNames {
		if name == u {
			return p, nil
		}
	}
	return PatternUnset, rawerr.New(rawerr.Config, "isp.ParsePattern", "unknown Bayer pattern %q", s)
}

// channelAt returns the channel sampled at column x, row y
func (p Pattern) channelAt(x, y int) int {
	return layouts[p][y&1][x&1]
}
