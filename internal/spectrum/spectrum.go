// Package spectrum builds and analyzes the mass-to-charge chromatogram
// accumulated across every hit in a run (spec §4.F): a time-of-flight
// histogram, smoothing and peak-picking over it, and the polynomial that
// converts a time-of-flight bin into a mass value.
package spectrum

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// BinWidthPs is the histogram bin width in picoseconds.
const BinWidthPs = 1563

// Histogram accumulates hit times-of-flight into fixed-width bins, keyed by
// bin index (time_of_flight_ps / BinWidthPs).
type Histogram struct {
	counts map[int64]uint64
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	return &Histogram{counts: make(map[int64]uint64)}
}

// Add records one hit's time-of-flight. Negative times-of-flight (hits that
// arrived before the per-pulse reference trigger, an artifact of clock
// skew) are dropped, matching the original tool's spectrum-building
// behavior.
func (h *Histogram) Add(tofPs int64) {
	if tofPs < 0 {
		return
	}
	h.counts[tofPs/BinWidthPs]++
}

// Pair is one (time-of-flight bin start, count) sample.
type Pair struct {
	TimePs int64
	Count  uint64
}

// Sorted returns every non-empty bin as (time, count) pairs in ascending
// time order.
func (h *Histogram) Sorted() []Pair {
	pairs := make([]Pair, 0, len(h.counts))
	for bin, count := range h.counts {
		pairs = append(pairs, Pair{TimePs: bin * BinWidthPs, Count: count})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].TimePs < pairs[j].TimePs })
	return pairs
}

// ZeroPad fills every missing bin between the first and last occupied bin
// with a zero count, producing a dense series suitable for plotting or
// windowed smoothing.
func ZeroPad(pairs []Pair) []Pair {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]Pair, 0, pairs[len(pairs)-1].TimePs/BinWidthPs-pairs[0].TimePs/BinWidthPs+1)
	next := 0
	for bin := pairs[0].TimePs; bin <= pairs[len(pairs)-1].TimePs; bin += BinWidthPs {
		if next < len(pairs) && pairs[next].TimePs == bin {
			out = append(out, pairs[next])
			next++
		} else {
			out = append(out, Pair{TimePs: bin})
		}
	}
	return out
}

// smoothWindow is the sliding-window width (in bins), applied twice to the
// diffed chromatogram before peak detection (spec §4.F). Unlike a centered
// moving average, each pass shrinks the series by smoothWindow-1 samples.
const smoothWindow = 15

// riseThreshold is the minimum drop across a positive-to-negative crossing
// of the twice-smoothed diff series required to call it a peak candidate.
const riseThreshold = 0.7

// peakIntensityFloor is the minimum raw count, peakOffset bins past a
// crossing, required to confirm it as a peak rather than smoothing noise.
const peakIntensityFloor = 5000

// peakOffset is the fixed bin offset from a qualifying crossing to where its
// raw-intensity floor is checked; it compensates for the lag the two
// smoothing passes introduce.
const peakOffset = 22

// peakWindow is the width of the raw-count window, starting at a qualifying
// crossing, searched for the actual local-maximum bin reported as the peak.
const peakWindow = 2 * smoothWindow

// minCrossingIndex is the smallest crossing index FindPeaks will consider,
// so that candidates near the start of the diffed series (still carrying
// edge effects from the two smoothing passes) are skipped.
const minCrossingIndex = smoothWindow + 3

// FindPeaks locates local intensity peaks in a zero-padded dense series.
// It first-differences the raw counts, smooths that diff series twice with
// a sliding window, and flags every index where the smoothed diff crosses
// from positive to negative steeply enough and the raw intensity a fixed
// offset past the crossing clears a floor; each flagged crossing is then
// refined to the actual local-maximum bin over a raw-count window (spec
// §4.F).
func FindPeaks(dense []Pair) []int64 {
	if len(dense) == 0 {
		return nil
	}
	counts := make([]float64, len(dense))
	for i, p := range dense {
		counts[i] = float64(p.Count)
	}

	diffs := make([]float64, len(counts)-1)
	for i := range diffs {
		diffs[i] = counts[i+1] - counts[i]
	}
	smoothed := smoothSliding(smoothSliding(diffs, smoothWindow), smoothWindow)

	var peaks []int64
	for i := 0; i+1 < len(smoothed); i++ {
		this, next := smoothed[i], smoothed[i+1]
		if this <= 0 || next >= 0 || i <= minCrossingIndex || this-next < riseThreshold {
			continue
		}
		if i+peakOffset >= len(counts) || counts[i+peakOffset] <= peakIntensityFloor {
			continue
		}
		hi := i + peakWindow
		if hi > len(counts) {
			hi = len(counts)
		}
		peaks = append(peaks, dense[i+argmax(counts[i:hi])].TimePs)
	}
	return peaks
}

// smoothSliding returns the sliding-window average of v: each output sample
// is the mean of a contiguous window-length run, so the series shrinks by
// window-1 samples (unlike a centered, edge-padded moving average).
func smoothSliding(v []float64, window int) []float64 {
	if len(v) < window {
		return nil
	}
	out := make([]float64, len(v)-window+1)
	for i := range out {
		out[i] = floats.Sum(v[i:i+window]) / float64(window)
	}
	return out
}

// argmax returns the index of the largest value in v, preferring the last
// index on ties.
func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x >= v[best] {
			best = i
		}
	}
	return best
}

// TimeToMass converts a time-of-flight (picoseconds) into a mass value
// using the instrument's calibration polynomial (spec §4.F):
// mass = 0.139x^2 - 1.413x + 3.686, where x = time_ps / 1e6.
func TimeToMass(timePs int64) float64 {
	x := float64(timePs) / 1e6
	return 0.139*x*x - 1.413*x + 3.686
}
