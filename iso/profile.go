package iso

import (
	"sort"
	"strings"

	"github.com/nasa-jpl/rawlab/rawerr"
)

// standardTable mimics photographic ISO stops between 100 and 6400
var standardTable = []int{
	100, 110, 125, 140, 160, 180, 200, 220, 250, 280, 320, 400, 500, 640, 800,
	1000, 1250, 1600, 2000, 2200, 2350, 2500, 2800, 3000, 3200, 3600, 4000,
	4500, 5000, 5600, 6400,
}

// StandardTable returns a copy of the standard ISO table, ascending
func StandardTable() []int {
	return append([]int(nil), standardTable...)
}

// Profile is the sensor calibration that anchors the gain to ISO power law
type Profile struct {
	// Name identifies the profile in configuration and logs
	Name string `json:"name" yaml:"name" koanf:"name"`

	// GainMin is the gain that maps to ISOMin
	GainMin float64 `json:"gainMin" yaml:"gainMin" koanf:"gainMin"`

	// GainMax is the gain that maps to ISOMax
	GainMax float64 `json:"gainMax" yaml:"gainMax" koanf:"gainMax"`

	// ISOMin is the ISO at GainMin
	ISOMin int `json:"isoMin" yaml:"isoMin" koanf:"isoMin"`

	// ISOMax is the ISO at GainMax
	ISOMax int `json:"isoMax" yaml:"isoMax" koanf:"isoMax"`

	// Table is the ascending list of ISO labels results are snapped to
	Table []int `json:"table" yaml:"table" koanf:"table"`
}

// Validate checks the profile can anchor a power law and has a usable table
func (p Profile) Validate() error {
	if p.GainMin <= 0 || p.GainMax <= p.GainMin {
		return validationError("gain range [%v, %v] must be positive and increasing", p.GainMin, p.GainMax)
	}
	if p.ISOMin <= 0 || p.ISOMax <= p.ISOMin {
		return validationError("ISO range [%d, %d] must be positive and increasing", p.ISOMin, p.ISOMax)
	}
	if len(p.Table) == 0 {
		return validationError("ISO table is empty")
	}
	if !sort.IntsAreSorted(p.Table) {
		return validationError("ISO table is not ascending")
	}
	return nil
}

// IMX335Narrow is the IMX335 profile topping out at 9.6x analogue gain
func IMX335Narrow() Profile {
	return Profile{Name: "imx335-narrow", GainMin: 1.0, GainMax: 9.6, ISOMin: 100, ISOMax: 6400, Table: StandardTable()}
}

// IMX335Wide is the IMX335 profile topping out at 16x analogue gain
func IMX335Wide() Profile {
	return Profile{Name: "imx335-wide", GainMin: 1.0, GainMax: 16.0, ISOMin: 100, ISOMax: 6400, Table: StandardTable()}
}

// ByName returns a built in profile, case insensitive
func ByName(name string) (Profile, error) {
	switch strings.ToLower(name) {
	case "imx335-narrow":
		return IMX335Narrow(), nil
	case "imx335-wide":
		return IMX335Wide(), nil
	default:
		return Profile{}, rawerr.New(rawerr.Config, "iso.ByName", "no built in profile named %q", name)
	}
}
