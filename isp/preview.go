package isp

import (
	"image"

	"github.com/disintegration/gift"
)

const (
	// PreviewWidth is the default preview width, the capture display size
	PreviewWidth = 640

	// PreviewHeight is the default preview height
	PreviewHeight = 480
)

// Preview downsamples im to fit within w x h, keeping the aspect ratio, into an
// 8-bit image suitable for JPEG.  Zero sizes fall back to 640x480.
func Preview(im *Image, w, h int) *image.RGBA {
	if w <= 0 || h <= 0 {
		w, h = PreviewWidth, PreviewHeight
	}
	src := im.RGBA64()
	g := gift.New(gift.ResizeToFit(w, h, gift.LinearResampling))
	dst := image.NewRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
