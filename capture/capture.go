/*Package capture stores and loads raw sensor captures.

A Capture bundles the packed frame with the metadata reported by the
camera stack when it was taken.  Two containers are supported:

  - a single FITS file holding the packed bytes as an 8-bit image, with the
    metadata and a CRC-32 of the payload in header cards
  - a raw payload (.raw, or zstd compressed .raw.zst) next to a YAML sidecar
    (.yml) holding the metadata

Dir scans a folder for either kind and hands them out as Items.

*/
package capture

import (
	"time"

	"github.com/snksoft/crc"

	"github.com/nasa-jpl/rawlab/iso"
	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Metadata is what the camera stack reported alongside a raw capture
type Metadata struct {
	// Sensor is the sensor model, e.g. imx335
	Sensor string `yaml:"sensor" json:"sensor"`

	// ExposureUS is the exposure time in microseconds
	ExposureUS int64 `yaml:"exposureUs" json:"exposureUs"`

	// AnalogueGain is the controllable sensor gain
	AnalogueGain float64 `yaml:"analogueGain" json:"analogueGain"`

	// DigitalGain is the read-only digital gain
	DigitalGain float64 `yaml:"digitalGain" json:"digitalGain"`

	// Timestamp is when the frame was captured.  Sidecars carry it as an
	// RFC 3339 string.
	Timestamp time.Time `yaml:"-" json:"timestamp"`
}

// Gain returns the gain pair for ISO mapping
func (m Metadata) Gain() iso.GainSample {
	return iso.GainSample{Analogue: m.AnalogueGain, Digital: m.DigitalGain}
}

// Capture is one stored raw frame
type Capture struct {
	// ID identifies the capture, normally the file name without extension
	ID string

	// Frame is the packed buffer with its declared geometry
	Frame raw10.Packed

	// Meta is the capture metadata
	Meta Metadata
}

// Checksum returns the CRC-32 (IEEE) of the packed payload
func Checksum(data []byte) uint32 {
	return uint32(crc.CalculateCRC(crc.CRC32, data))
}

// verify compares a stored checksum against the payload
func verify(op string, data []byte, stored uint32) error {
	if got := Checksum(data); got != stored {
		return rawerr.New(rawerr.Corrupt, op, "payload CRC %08x does not match stored %08x", got, stored)
	}
	return nil
}

// Item is a capture that can be loaded on demand
type Item interface {
	// ID identifies the item in reports
	ID() string

	// Load reads the capture
	Load() (Capture, error)
}

// staticItem is an Item already in memory
type staticItem struct{ c Capture }

func (s staticItem) ID() string              { return s.c.ID }
func (s staticItem) Load() (Capture, error) { return s.c, nil }

// Static wraps an in-memory capture as an Item
func Static(c Capture) Item {
	return staticItem{c}
}
