package archive

import (
	"math"
	"sort"
)

// Pixel accumulates every hit m/z value assigned to one image pixel during
// one row's scan, before compression into (mz, intensity count) pairs.
type Pixel struct {
	mzs []float32
}

// Add appends one m/z observation to the pixel.
func (p *Pixel) Add(mz float32) {
	p.mzs = append(p.mzs, mz)
}

// ToVecs sorts the pixel's m/z observations and compresses runs of
// nearly-identical values into (mz, count) pairs (spec §4.H). Two values
// collapse together when, after scaling by a per-value divisor that floats
// six significant digits into the integer part
// (10^(5 - floor(log10(mz)))), they truncate to the same integer key. This mirrors
// the original tool's compression law exactly, including its quirk of
// counting a zero-valued m/z into the intensity stream without a
// corresponding mz entry.
func (p *Pixel) ToVecs() (mzs []float32, intensities []int16) {
	sort.Slice(p.mzs, func(i, j int) bool { return p.mzs[i] < p.mzs[j] })

	keys := make([]uint64, len(p.mzs))
	divisors := make([]float32, len(p.mzs))
	for i, mz := range p.mzs {
		div := float32(math.Pow(10, 5.0-math.Floor(math.Log10(float64(mz)))))
		divisors[i] = div
		keys[i] = uint64(mz * div)
	}

	var prev uint64
	for i, key := range keys {
		switch {
		case key > prev:
			mzs = append(mzs, float32(key)/divisors[i])
			intensities = append(intensities, 1)
		case key == 0:
			intensities = append(intensities, 1)
		default:
			intensities[len(intensities)-1]++
		}
		prev = key
	}
	return mzs, intensities
}

// PixelSpan holds one image row's worth of Pixels while a pass accumulates,
// tracking how many consecutive direction-change events have passed with
// no new data (spec §4.H row-draining logic).
type PixelSpan struct {
	Pixels         []Pixel
	pixelAdded     bool
	EmptyPassCount int
}

// NewPixelSpan allocates an empty span with pixelCount columns.
func NewPixelSpan(pixelCount int) *PixelSpan {
	return &PixelSpan{Pixels: make([]Pixel, pixelCount)}
}

// AddMZ records one hit's m/z at pixelIndex and resets the span's
// empty-pass counter.
func (s *PixelSpan) AddMZ(mz float32, pixelIndex int) {
	s.EmptyPassCount = 0
	s.pixelAdded = true
	s.Pixels[pixelIndex].Add(mz)
}

// UpdateEndPass is called once per stage direction change: it increments
// EmptyPassCount unless the span received data since the last call.
func (s *PixelSpan) UpdateEndPass() {
	if s.pixelAdded {
		s.EmptyPassCount = 0
	} else {
		s.EmptyPassCount++
	}
	s.pixelAdded = false
}
