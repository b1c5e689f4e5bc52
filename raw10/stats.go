package raw10

// Stats summarizes a mosaic; it is recorded alongside rendered output as a
// quick check of exposure and of unpacking sanity
type Stats struct {
	Min  uint16  `json:"min" yaml:"min"`
	Max  uint16  `json:"max" yaml:"max"`
	Mean float64 `json:"mean" yaml:"mean"`
}

// ComputeStats returns the min, max and mean of the samples in f.
// An empty frame gives the zero Stats.
func ComputeStats(f *Frame) Stats {
	if len(f.Pix) == 0 {
		return Stats{}
	}
	s := Stats{Min: f.Pix[0], Max: f.Pix[0]}
	var sum uint64
	for _, v := range f.Pix {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += uint64(v)
	}
	s.Mean = float64(sum) / float64(len(f.Pix))
	return s
}
