//go:build gocv
// +build gocv

package isp

import (
	"encoding/binary"

	"gocv.io/x/gocv"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// OpenCV names Bayer layouts by the second row, second column tile, so an
// RGGB sensor is its "BG" pattern
var cvCodes = map[Pattern]gocv.ColorConversionCode{
	RGGB: gocv.ColorBayerBGToBGR,
	BGGR: gocv.ColorBayerRGToBGR,
	GRBG: gocv.ColorBayerGBToBGR,
	GBRG: gocv.ColorBayerGRToBGR,
}

func init() {
	RegisterDemosaicer("opencv", OpenCV{})
}

// OpenCV demosaics with cv::cvtColor, the edge aware bilinear of OpenCV's
// imgproc module
type OpenCV struct{}

// Demosaic implements Demosaicer
func (OpenCV) Demosaic(f *raw10.Frame, p Pattern) ([]uint16, error) {
	if err := checkGeometry(f, p); err != nil {
		return nil, err
	}
	buf := make([]byte, 2*len(f.Pix))
	for i, v := range f.Pix {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	src, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV16U, buf)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.InvalidGeometry, "isp.OpenCV", err)
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.CvtColor(src, &dst, cvCodes[p])

	bgr := dst.ToBytes()
	out := make([]uint16, 3*f.Width*f.Height)
	for i := 0; i < len(out); i += 3 {
		b := binary.LittleEndian.Uint16(bgr[2*i:])
		g := binary.LittleEndian.Uint16(bgr[2*i+2:])
		r := binary.LittleEndian.Uint16(bgr[2*i+4:])
		out[i], out[i+1], out[i+2] = r, g, b
	}
	return out, nil
}
