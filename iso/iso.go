/*Package iso maps sensor gain to a photographic ISO label.

The mapping is a power law anchored at the two ends of a sensor profile,

	iso = ISOMin * (gain/GainMin)^k,  k = ln(ISOMax/ISOMin) / ln(GainMax/GainMin)

snapped to the nearest entry of a table of standard ISO values.

*/
package iso

import (
	"math"

	"github.com/nasa-jpl/rawlab/mathx"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Mapper maps gain to ISO for one Profile.  It is immutable and safe for
// concurrent use.
type Mapper struct {
	prof Profile
	k    float64
}

// New validates p and returns a Mapper for it
func New(p Profile) (*Mapper, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Table = append([]int(nil), p.Table...)
	k := math.Log(float64(p.ISOMax)/float64(p.ISOMin)) / math.Log(p.GainMax/p.GainMin)
	return &Mapper{prof: p, k: k}, nil
}

// Profile returns a copy of the profile the mapper was built from
func (m *Mapper) Profile() Profile {
	p := m.prof
	p.Table = append([]int(nil), m.prof.Table...)
	return p
}

// Exponent returns k, the power law exponent
func (m *Mapper) Exponent() float64 {
	return m.k
}

// Clamp limits gain to the profile's gain range
func (m *Mapper) Clamp(gain float64) float64 {
	return mathx.Clamp(gain, m.prof.GainMin, m.prof.GainMax)
}

// Raw returns the unsnapped ISO for gain.  Gain is not clamped.
func (m *Mapper) Raw(gain float64) float64 {
	return float64(m.prof.ISOMin) * math.Pow(gain/m.prof.GainMin, m.k)
}

// Map clamps gain to the profile range and returns the nearest table entry
// to Raw(gain).  Ties go to the lower (earlier) entry.
func (m *Mapper) Map(gain float64) int {
	gain = m.Clamp(gain)
	if gain == m.prof.GainMin {
		return nearest(m.prof.Table, float64(m.prof.ISOMin))
	}
	return nearest(m.prof.Table, m.Raw(gain))
}

// MapSample maps the gain of a capture the way the capture application
// labels it: both gains are rounded to hundredths, combined, the product
// rounded to hundredths again, then mapped
func (m *Mapper) MapSample(s GainSample) int {
	return m.Map(s.Combined())
}

// nearest returns the entry of table closest to x, first one wins on a tie
func nearest(table []int, x float64) int {
	best := table[0]
	bestDist := math.Abs(float64(best) - x)
	for _, v := range table[1:] {
		if d := math.Abs(float64(v) - x); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// GainSample is the gain reported with a capture
type GainSample struct {
	// Analogue is the sensor analogue gain
	Analogue float64 `json:"analogue" yaml:"analogue"`

	// Digital is the read-only post readout gain.  Zero means not reported, and counts as 1.
	Digital float64 `json:"digital" yaml:"digital"`
}

// Combined returns analogue x digital, each rounded to hundredths and the
// product rounded again
func (s GainSample) Combined() float64 {
	d := s.Digital
	if d == 0 {
		d = 1
	}
	return mathx.RoundPlaces(mathx.RoundPlaces(s.Analogue, 2)*mathx.RoundPlaces(d, 2), 2)
}

// validationError is shorthand for a Config kind error from Profile.Validate
func validationError(format string, args ...interface{}) error {
	return rawerr.New(rawerr.Config, "iso.Profile", format, args...)
}
