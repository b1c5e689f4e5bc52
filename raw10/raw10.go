/*Package raw10 unpacks MIPI CSI-2 packed 10-bit Bayer data into a linear mosaic.

The CSI-2 RAW10 layout stores four pixels in five bytes:

	[P0 msb][P1 msb][P2 msb][P3 msb][P3:2 P2:2 P1:2 P0:2]

The first four bytes hold the 8 most significant bits of each pixel, the
fifth holds the two least significant bits of all four, pixel 0 in the
lowest two bits.  Drivers pad every row to a fixed byte boundary, so the
row stride of a buffer is generally larger than the packed row and the
padding has to be dropped before the blocks are read.

*/
package raw10

import (
	"image"

	"github.com/nasa-jpl/rawlab/rawerr"
)

const (
	// BlockBytes is the size of one packed block
	BlockBytes = 5

	// BlockPixels is the number of pixels in one packed block
	BlockPixels = 4

	// MaxValue is the largest 10-bit sample
	MaxValue = 1023
)

// Packed is a captured, still packed frame as handed over by the capture
// driver.  The row stride is implicit, len(Data)/Height.
type Packed struct {
	// Data is the raw buffer including any row padding
	Data []byte

	// Width is the sensor-declared width in pixels
	Width int

	// Height is the sensor-declared height in pixels
	Height int

	// Format is the driver format name, e.g. SRGGB10_CSI2P.  Empty means RAW10.
	Format string
}

// Stride returns the row stride in bytes.  It fails with ShapeMismatch if the
// buffer does not divide evenly into Height rows.
func (p Packed) Stride() (int, error) {
	if p.Height <= 0 {
		return 0, rawerr.New(rawerr.ShapeMismatch, "raw10.Stride", "height %d is not positive", p.Height)
	}
	if len(p.Data)%p.Height != 0 {
		return 0, rawerr.New(rawerr.ShapeMismatch, "raw10.Stride",
			"buffer of %d bytes does not divide into %d rows", len(p.Data), p.Height)
	}
	return len(p.Data) / p.Height, nil
}

// Frame is an unpacked Bayer mosaic, one 10-bit sample per uint16, row major
type Frame struct {
	Width  int
	Height int
	Pix    []uint16
}

// At returns the sample at column x, row y
func (f *Frame) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// Gray16 copies the mosaic into an image.Gray16 with the samples unscaled,
// which is the layout the FITS writers expect
func (f *Frame) Gray16() *image.Gray16 {
	im := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for i, v := range f.Pix {
		im.Pix[2*i] = byte(v >> 8)
		im.Pix[2*i+1] = byte(v)
	}
	return im
}

// PackedRowBytes is the number of meaningful bytes in a packed row of width
// pixels, floor(width*1.25)
func PackedRowBytes(width int) int {
	return width/BlockPixels*BlockBytes + width%BlockPixels*BlockBytes/BlockPixels
}

// MinStride is the smallest stride able to hold a row of width pixels,
// ceil(width*10/8)
func MinStride(width int) int {
	return (width*10 + 7) / 8
}

// Unpack converts a padded, strided RAW10 buffer into a Frame.
//
// It fails with UnsupportedFormat for anything but RAW10, and with
// ShapeMismatch when the width is not a multiple of four, the buffer does not
// divide into Height rows, or the stride is too short for the packed row.
func Unpack(p Packed) (*Frame, error) {
	const op = "raw10.Unpack"
	if _, err := ParseFormat(p.Format); err != nil {
		return nil, err
	}
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		return nil, rawerr.New(rawerr.ShapeMismatch, op, "dimensions %dx%d are not positive", w, h)
	}
	if w%BlockPixels != 0 {
		return nil, rawerr.New(rawerr.ShapeMismatch, op, "width %d is not a multiple of %d", w, BlockPixels)
	}
	stride, err := p.Stride()
	if err != nil {
		return nil, rawerr.Wrap(rawerr.ShapeMismatch, op, err)
	}
	// compare in blocks so a huge width cannot overflow the byte count
	if w/BlockPixels > stride/BlockBytes {
		return nil, rawerr.New(rawerr.ShapeMismatch, op,
			"stride %d cannot hold a %d pixel row", stride, w)
	}
	valid := PackedRowBytes(w)
	if valid > stride {
		return nil, rawerr.New(rawerr.ShapeMismatch, op,
			"stride %d is shorter than the %d packed bytes of a %d pixel row", stride, valid, w)
	}

	pix := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		row := p.Data[y*stride : y*stride+valid]
		out := pix[y*w : (y+1)*w]
		for i, o := 0, 0; o < w; i, o = i+BlockBytes, o+BlockPixels {
			lsb := uint16(row[i+4])
			out[o] = uint16(row[i])<<2 | lsb&0x3
			out[o+1] = uint16(row[i+1])<<2 | (lsb>>2)&0x3
			out[o+2] = uint16(row[i+2])<<2 | (lsb>>4)&0x3
			out[o+3] = uint16(row[i+3])<<2 | (lsb>>6)&0x3
		}
	}
	return &Frame{Width: w, Height: h, Pix: pix}, nil
}

// Pack is the inverse of Unpack.  Rows are zero padded out to stride; a stride
// of zero means no padding.  Samples above MaxValue are rejected.
func Pack(f *Frame, stride int) (Packed, error) {
	const op = "raw10.Pack"
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 || w%BlockPixels != 0 || len(f.Pix) != w*h {
		return Packed{}, rawerr.New(rawerr.ShapeMismatch, op,
			"cannot pack %d samples as %dx%d", len(f.Pix), w, h)
	}
	valid := PackedRowBytes(w)
	if stride == 0 {
		stride = valid
	}
	if stride < valid {
		return Packed{}, rawerr.New(rawerr.ShapeMismatch, op, "stride %d is shorter than %d", stride, valid)
	}
	buf := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		in := f.Pix[y*w : (y+1)*w]
		row := buf[y*stride : y*stride+valid]
		for i, o := 0, 0; o < w; i, o = i+BlockBytes, o+BlockPixels {
			var lsb byte
			for j := 0; j < BlockPixels; j++ {
				v := in[o+j]
				if v > MaxValue {
					return Packed{}, rawerr.New(rawerr.UnsupportedFormat, op,
						"sample %d at (%d,%d) exceeds 10 bits", v, o+j, y)
				}
				row[i+j] = byte(v >> 2)
				lsb |= byte(v&0x3) << (2 * uint(j))
			}
			row[i+4] = lsb
		}
	}
	return Packed{Data: buf, Width: w, Height: h, Format: FormatRAW10}, nil
}
