package raw10

import (
	"strings"

	"github.com/nasa-jpl/rawlab/rawerr"
)

// FormatRAW10 is the generic name for CSI-2 packed 10-bit data with no color
// filter hint
const FormatRAW10 = "RAW10"

// formats maps the accepted driver format names to the color filter
// arrangement the name carries.  The empty hint means the name says nothing
// about the filter and it must come from configuration.
var formats = map[string]string{
	"":              "",
	FormatRAW10:     "",
	"SRGGB10_CSI2P": "RGGB",
	"SBGGR10_CSI2P": "BGGR",
	"SGRBG10_CSI2P": "GRBG",
	"SGBRG10_CSI2P": "GBRG",
}

// ParseFormat validates a driver format name and returns its color filter
// hint.  Names are case insensitive.  Anything that is not packed 10-bit
// CSI-2, including the 12-bit *12_CSI2P modes, fails with UnsupportedFormat.
func ParseFormat(name string) (string, error) {
	cfa, ok := formats[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return "", rawerr.New(rawerr.UnsupportedFormat, "raw10.ParseFormat",
			"format %q is not 10-bit CSI-2 packed", name)
	}
	return cfa, nil
}
