/*Package camera describes the interface to the camera stack that produces
raw captures, and provides a playback camera that replays stored captures
through the same interface.

The Minimal type contains the basics, while Exposer adds the exposure and
gain controls a sensor application exposes.

*/
package camera

import (
	"context"
	"sync"

	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/iso"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Minimal describes a minimal camera interface with only the basics.
type Minimal interface {
	// Initialize initializes the camera.  This may have myriad side effects,
	// for example configuring the sensor for RAW10 output and allocating
	// frame buffers
	Initialize() error

	// Finalize releases the camera
	Finalize() error

	// GetRes gets the (W, H) of the active pixel array
	GetRes() ([2]int, error)

	// Capture takes one raw frame with its metadata
	Capture(ctx context.Context) (capture.Capture, error)
}

// Exposer describes the exposure controls of a sensor.  We do not enforce
// this constraint, but a type which implements Exposer will nearly always
// implement Minimal.
type Exposer interface {
	// GetExposureUS gets the exposure time in microseconds
	GetExposureUS() (int64, error)

	// SetExposureUS sets the exposure time in microseconds
	SetExposureUS(int64) error

	// GetGain gets the analogue and digital gain
	GetGain() (iso.GainSample, error)

	// SetAnalogueGain sets the analogue gain; digital gain is read only
	SetAnalogueGain(float64) error
}

// Playback is a camera that cycles through stored captures.  Exposure and
// gain set on it replace the stored metadata of the frames it returns.
type Playback struct {
	mu    sync.Mutex
	items []capture.Item
	next  int
	res   [2]int

	exposureUS int64
	gain       float64
}

// NewPlayback returns a camera replaying items in order, wrapping around
func NewPlayback(items []capture.Item) *Playback {
	return &Playback{items: items}
}

// Initialize loads the first capture to learn the resolution
func (p *Playback) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.items) == 0 {
		return rawerr.New(rawerr.IO, "camera.Playback.Initialize", "no captures to play back")
	}
	c, err := p.items[0].Load()
	if err != nil {
		return err
	}
	p.res = [2]int{c.Frame.Width, c.Frame.Height}
	p.next = 0
	return nil
}

// Finalize is a no-op
func (p *Playback) Finalize() error { return nil }

// GetRes returns the resolution of the first capture
func (p *Playback) GetRes() ([2]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.res, nil
}

// Capture returns the next stored capture
func (p *Playback) Capture(ctx context.Context) (capture.Capture, error) {
	if err := ctx.Err(); err != nil {
		return capture.Capture{}, rawerr.Wrap(rawerr.Canceled, "camera.Playback.Capture", err)
	}
	p.mu.Lock()
	if len(p.items) == 0 {
		p.mu.Unlock()
		return capture.Capture{}, rawerr.New(rawerr.IO, "camera.Playback.Capture", "no captures to play back")
	}
	item := p.items[p.next]
	p.next = (p.next + 1) % len(p.items)
	exp, gain := p.exposureUS, p.gain
	p.mu.Unlock()

	c, err := item.Load()
	if err != nil {
		return c, err
	}
	if exp > 0 {
		c.Meta.ExposureUS = exp
	}
	if gain > 0 {
		c.Meta.AnalogueGain = gain
	}
	return c, nil
}

// GetExposureUS returns the override exposure, zero if frames keep their own
func (p *Playback) GetExposureUS() (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exposureUS, nil
}

// SetExposureUS overrides the exposure of returned frames
func (p *Playback) SetExposureUS(us int64) error {
	if us < 0 {
		return rawerr.New(rawerr.Config, "camera.Playback.SetExposureUS", "negative exposure %d", us)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exposureUS = us
	return nil
}

// GetGain returns the override analogue gain with unit digital gain
func (p *Playback) GetGain() (iso.GainSample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return iso.GainSample{Analogue: p.gain, Digital: 1}, nil
}

// SetAnalogueGain overrides the analogue gain of returned frames
func (p *Playback) SetAnalogueGain(g float64) error {
	if g < 0 {
		return rawerr.New(rawerr.Config, "camera.Playback.SetAnalogueGain", "negative gain %v", g)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gain = g
	return nil
}
