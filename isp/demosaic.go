package isp

import (
	"fmt"
	"sort"

	"github.com/nasa-jpl/rawlab/raw10"
)

// Demosaicer interpolates a Bayer mosaic into interleaved R,G,B samples at
// the scale of the input
type Demosaicer interface {
	Demosaic(f *raw10.Frame, p Pattern) ([]uint16, error)
}

var demosaicers = map[string]Demosaicer{}

// RegisterDemosaicer registers a demosaic algorithm by name.
// Note that only one algorithm can be registered under any single name.
func RegisterDemosaicer(name string, d Demosaicer) {
	demosaicers[name] = d
}

// LookupDemosaicer returns the demosaicer registered under name
func LookupDemosaicer(name string) (Demosaicer, error) {
	if d, ok := demosaicers[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no demosaicer named '%s'", name)
}

// Demosaicers lists the registered names, sorted
func Demosaicers() []string {
	out := make([]string, 0, len(demosaicers))
	for k := range demosaicers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	RegisterDemosaicer("bilinear", Bilinear{})
}

// offset is a neighbor position relative to the pixel being filled
type offset struct{ dy, dx int }

// Bilinear fills each missing color with the rounded mean of the same-color
// samples in the 3x3 neighborhood: four orthogonal or diagonal neighbors, or
// the two along the row or column.  Edges are mirrored, which keeps the
// filter parity, so every average only sees its own color.
type Bilinear struct{}

// Demosaic implements Demosaicer.  Width and height must be even and at least 2.
func (Bilinear) Demosaic(f *raw10.Frame, p Pattern) ([]uint16, error) {
	if err := checkGeometry(f, p); err != nil {
		return nil, err
	}
	w, h := f.Width, f.Height
	kernels := neighborhoods(p)
	out := make([]uint16, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			k := &kernels[y&1][x&1]
			o := 3 * (y*w + x)
			for c := 0; c < 3; c++ {
				offs := k[c]
				var sum uint32
				for _, d := range offs {
					sum += uint32(f.Pix[mirror(y+d.dy, h)*w+mirror(x+d.dx, w)])
				}
				n := uint32(len(offs))
				out[o+c] = uint16((sum + n/2) / n)
			}
		}
	}
	return out, nil
}

// neighborhoods returns, for each parity position and channel, the 3x3
// offsets that sample that channel.  A pixel's own channel is just itself.
func neighborhoods(p Pattern) [2][2][3][]offset {
	var k [2][2][3][]offset
	for py := 0; py < 2; py++ {
		for px := 0; px < 2; px++ {
			own := p.channelAt(px, py)
			for c := 0; c < 3; c++ {
				if c == own {
					k[py][px][c] = []offset{{0, 0}}
					continue
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						if p.channelAt(px+dx+2, py+dy+2) == c {
							k[py][px][c] = append(k[py][px][c], offset{dy, dx})
						}
					}
				}
			}
		}
	}
	return k
}

// mirror reflects an out of range index back into [0, n) without repeating
// the edge sample, so parity is preserved
func mirror(i, n int) int {
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*(n-1) - i
	}
	return i
}
