package isp

import (
	"math"
	"strings"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Gamma is the display gamma of the tone curve
const Gamma = 2.2

// Mode selects the tone curve from 10-bit samples to 16-bit output
type Mode int

const (
	// ModeUnset is the zero value and is rejected by NewProcessor
	ModeUnset Mode = iota

	// ModeGamma normalizes by 1023, raises to 1/2.2 and scales to 65535
	ModeGamma

	// ModeLinear multiplies by 64
	ModeLinear
)

func (m Mode) String() string {
	switch m {
	case ModeGamma:
		return "gamma"
	case ModeLinear:
		return "linear"
	default:
		return "unset"
	}
}

// ParseMode parses "gamma" or "linear", case insensitive
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gamma":
		return ModeGamma, nil
	case "linear":
		return ModeLinear, nil
	default:
		return ModeUnset, rawerr.New(rawerr.Config, "isp.ParseMode", "unknown tone mode %q", s)
	}
}

// toneLUT maps every 10-bit sample to its 16-bit output
type toneLUT [raw10.MaxValue + 1]uint16

func buildLUT(m Mode) toneLUT {
	var lut toneLUT
	for v := range lut {
		switch m {
		case ModeGamma:
			norm := float64(v) / raw10.MaxValue
			lut[v] = uint16(math.Round(math.Pow(norm, 1/Gamma) * math.MaxUint16))
		case ModeLinear:
			lut[v] = uint16(v * 64)
		}
	}
	return lut
}

// apply maps a sample through the LUT; anything above 10 bits saturates
func (l *toneLUT) apply(v uint16) uint16 {
	if v > raw10.MaxValue {
		v = raw10.MaxValue
	}
	return l[v]
}
