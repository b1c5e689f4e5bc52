/*Package isp is a minimal image signal processor for Bayer mosaics.

It does two things: demosaic the mosaic into full resolution R, G and B
planes, and map the 10-bit samples to 16 bits either through a 1/2.2 gamma
curve or by a plain x64 scale.  There is no white balance,
lens shading, or noise reduction.

*/
package isp

import (
	"image"
	"image/color"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Processor renders mosaics for one sensor configuration.  It is immutable
// after construction and safe for concurrent use.
type Processor struct {
	pattern Pattern
	mode    Mode
	dm      Demosaicer
	dmName  string
	lut     toneLUT
}

// NewProcessor returns a Processor for the given filter pattern, tone mode,
// and registered demosaicer name ("" means bilinear)
func NewProcessor(p Pattern, m Mode, demosaic string) (*Processor, error) {
	const op = "isp.NewProcessor"
	if _, ok := layouts[p]; !ok {
		return nil, rawerr.New(rawerr.Config, op, "Bayer pattern is not configured")
	}
	if m != ModeGamma && m != ModeLinear {
		return nil, rawerr.New(rawerr.Config, op, "tone mode is not configured")
	}
	if demosaic == "" {
		demosaic = "bilinear"
	}
	dm, err := LookupDemosaicer(demosaic)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.Config, op, err)
	}
	return &Processor{pattern: p, mode: m, dm: dm, dmName: demosaic, lut: buildLUT(m)}, nil
}

// Pattern returns the filter pattern
func (p *Processor) Pattern() Pattern { return p.pattern }

// Mode returns the tone mode
func (p *Processor) Mode() Mode { return p.mode }

// DemosaicName returns the name of the demosaic algorithm in use
func (p *Processor) DemosaicName() string { return p.dmName }

// Render demosaics f and applies the tone curve.  It fails with
// InvalidGeometry if f cannot be tiled by the 2x2 filter pattern.
func (p *Processor) Render(f *raw10.Frame) (*Image, error) {
	rgb, err := p.dm.Demosaic(f, p.pattern)
	if err != nil {
		return nil, err
	}
	for i, v := range rgb {
		rgb[i] = p.lut.apply(v)
	}
	return &Image{Width: f.Width, Height: f.Height, Pix: rgb}, nil
}

// checkGeometry validates f against a 2x2 pattern
func checkGeometry(f *raw10.Frame, p Pattern) error {
	const op = "isp.Demosaic"
	if _, ok := layouts[p]; !ok {
		return rawerr.New(rawerr.Config, op, "Bayer pattern is not configured")
	}
	if f.Width < 2 || f.Height < 2 {
		return rawerr.New(rawerr.InvalidGeometry, op, "%dx%d is smaller than one 2x2 filter tile", f.Width, f.Height)
	}
	if f.Width%2 != 0 || f.Height%2 != 0 {
		return rawerr.New(rawerr.InvalidGeometry, op, "%dx%d is not a whole number of 2x2 filter tiles", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height {
		return rawerr.New(rawerr.InvalidGeometry, op, "%d samples for a %dx%d frame", len(f.Pix), f.Width, f.Height)
	}
	return nil
}

// Image is a rendered 3 channel, 16 bit per channel raster with samples
// interleaved R, G, B in row major order
type Image struct {
	Width  int
	Height int
	Pix    []uint16
}

// ColorModel implements image.Image
func (im *Image) ColorModel() color.Model { return color.RGBA64Model }

// Bounds implements image.Image
func (im *Image) Bounds() image.Rectangle { return image.Rect(0, 0, im.Width, im.Height) }

// At implements image.Image; the result is opaque
func (im *Image) At(x, y int) color.Color {
	return im.RGBA64At(x, y)
}

// RGBA64At returns the color at x, y
func (im *Image) RGBA64At(x, y int) color.RGBA64 {
	if !(image.Point{x, y}.In(im.Bounds())) {
		return color.RGBA64{}
	}
	i := 3 * (y*im.Width + x)
	return color.RGBA64{R: im.Pix[i], G: im.Pix[i+1], B: im.Pix[i+2], A: 0xffff}
}

// RGBA64 copies the image into an *image.RGBA64, the type the standard
// encoders write 16 bits per channel from
func (im *Image) RGBA64() *image.RGBA64 {
	out := image.NewRGBA64(im.Bounds())
	n := im.Width * im.Height
	for i := 0; i < n; i++ {
		s := im.Pix[3*i : 3*i+3]
		d := out.Pix[8*i : 8*i+8]
		d[0], d[1] = byte(s[0]>>8), byte(s[0])
		d[2], d[3] = byte(s[1]>>8), byte(s[1])
		d[4], d[5] = byte(s[2]>>8), byte(s[2])
		d[6], d[7] = 0xff, 0xff
	}
	return out
}

// Planes splits the image into separate R, G and B planes, each row major
func (im *Image) Planes() [3][]uint16 {
	n := im.Width * im.Height
	var out [3][]uint16
	for c := range out {
		out[c] = make([]uint16, n)
	}
	for i := 0; i < n; i++ {
		out[0][i] = im.Pix[3*i]
		out[1][i] = im.Pix[3*i+1]
		out[2][i] = im.Pix[3*i+2]
	}
	return out
}
