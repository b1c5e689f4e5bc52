package imgrec

import (
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/astrogo/fitsio"
	"golang.org/x/image/tiff"

	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Format is an output container for rendered images
type Format string

const (
	// PNG is a 16-bit per channel RGB PNG
	PNG Format = "png"

	// TIFF is a deflate compressed 16-bit per channel RGB TIFF
	TIFF Format = "tiff"

	// FITS is a width x height x 3 cube of 16-bit samples with BZERO 32768
	FITS Format = "fits"

	// JPEG is an 8-bit preview, downsampled to the preview size
	JPEG Format = "jpg"
)

// ParseFormat maps a name or file extension to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "", "png":
		return PNG, nil
	case "tif", "tiff":
		return TIFF, nil
	case "fits", "fit", "fts":
		return FITS, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return "", rawerr.New(rawerr.Config, "imgrec.ParseFormat", "unknown output format '%s'", s)
}

// Ext returns the file extension, with the leading dot
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case TIFF:
		return "image/tiff"
	case FITS:
		return "image/fits"
	case JPEG:
		return "image/jpeg"
	default:
		return "image/png"
	}
}

// Encode writes im to w in format f.  Header cards are only used by FITS.
func Encode(w io.Writer, im *isp.Image, f Format, cards []fitsio.Card) error {
	const op = "imgrec.Encode"
	var err error
	switch f {
	case PNG, "":
		err = png.Encode(w, im.RGBA64())
	case TIFF:
		err = tiff.Encode(w, im.RGBA64(), &tiff.Options{Compression: tiff.Deflate})
	case FITS:
		err = WriteFits(w, cards, im)
	case JPEG:
		err = jpeg.Encode(w, isp.Preview(im, 0, 0), &jpeg.Options{Quality: 90})
	default:
		return rawerr.New(rawerr.Config, op, "unknown output format '%s'", f)
	}
	if err != nil {
		return rawerr.Wrap(rawerr.IO, op, err)
	}
	return nil
}

// WriteFits streams im to w as a three plane cube (R, G, B) of 16-bit
// samples.  FITS has no unsigned 16-bit type so samples are offset by
// BZERO=32768.
func WriteFits(w io.Writer, metadata []fitsio.Card, im *isp.Image) error {
	cards := make([]fitsio.Card, 0, len(metadata)+2)
	cards = append(cards, metadata...)
	metadata = append(cards, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	cube := fitsio.NewImage(16, []int{im.Width, im.Height, 3})
	defer cube.Close()
	if err = cube.Header().Append(metadata...); err != nil {
		return err
	}

	planes := im.Planes()
	n := im.Width * im.Height
	ints := make([]int16, 3*n)
	for c, plane := range planes {
		dst := ints[c*n : (c+1)*n]
		for i, v := range plane {
			dst[i] = int16(int32(v) - 32768)
		}
	}
	if err = cube.Write(ints); err != nil {
		return err
	}
	return fits.Write(cube)
}
