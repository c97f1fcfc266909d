// Package raster turns stage-positioned, centroided hits into 2D images:
// a rotated, scaled pixel grid (spec §4.G), a total-ion-count buffer, and
// per-mass-window buffers, plus dead-pixel detection from an uncentroided
// sample (spec §4.G supplement, ported from the original's masking-image
// support).
package raster

import (
	"math"

	"github.com/tpx3cam/tpx3scan/internal/pulse"
	"github.com/tpx3cam/tpx3scan/internal/stage"
)

// Config holds the imaging geometry (spec §3 Config). ScaleXFov and
// ScaleYFov are derived independently from ScaleX/ScaleY; the original
// tool derived both from ScaleX alone, a copy-paste bug this port does not
// reproduce (spec §9a).
type Config struct {
	Cols, Rows int // final raster dimensions in pixels, including margin

	RotationRad float64
	RotSin      float64
	RotCos      float64

	CameraFov     float64 // pixel-to-mm ratio
	PixelsPerMM   float64
	ScaleX        float64
	ScaleY        float64
	ScaleXFov     float64
	ScaleYFov     float64
	TofPulseLenPs int64
	PeakTimeWinPs int64
}

// NewConfig derives RotSin/RotCos/ScaleXFov/ScaleYFov, memoizing the trig
// so Rasterize does not call math.Sin/Cos per hit.
func NewConfig(cols, rows int, rotationRad, cameraFov, pixelsPerMM, scaleX, scaleY float64, tofPulseLenPs, peakTimeWinPs int64) Config {
	return Config{
		Cols: cols, Rows: rows,
		RotationRad:   rotationRad,
		RotSin:        math.Sin(rotationRad),
		RotCos:        math.Cos(rotationRad),
		CameraFov:     cameraFov,
		PixelsPerMM:   pixelsPerMM,
		ScaleX:        scaleX,
		ScaleY:        scaleY,
		ScaleXFov:     cameraFov * scaleX * 0.001,
		ScaleYFov:     cameraFov * scaleY * 0.001, // fixed: original reused scale_x here too
		TofPulseLenPs: tofPulseLenPs,
		PeakTimeWinPs: peakTimeWinPs,
	}
}

// Rasterize maps a hit's sub-pixel detector position plus a stage
// coordinate into image (col, row), per spec §4.G. ok is false when the
// result falls outside [0,Cols)x[0,Rows).
func (c Config) Rasterize(h pulse.Hit, cx, cy float64) (col, row int, ok bool) {
	fcol := float64(h.Col) + float64(h.ColOffset)/255 - 127.5
	frow := float64(h.Row) + float64(h.RowOffset)/255 - 127.5

	xrot := 127.5 + c.RotCos*fcol - c.RotSin*frow
	yrot := 127.5 + (c.RotSin*fcol + c.RotCos*frow)
	// rasterize() uses the non-negated yrot plus a 255-flip, per spec §4.G.
	yrot = 255 - yrot

	icol := int(math.Floor((cx + xrot*c.ScaleXFov) * c.PixelsPerMM))
	irow := int(math.Floor((cy + yrot*c.ScaleYFov) * c.PixelsPerMM))
	if irow < 0 || irow >= c.Rows || icol < 0 || icol >= c.Cols {
		return 0, 0, false
	}
	return icol, irow, true
}

// Buffer is a Cols*Rows row-major accumulation buffer, optionally stacked
// J-deep for multiple mass windows (J=1 for a TIC buffer).
type Buffer struct {
	Cols, Rows int
	Data       []uint32
}

// NewBuffer allocates a zeroed buffer for cfg's dimensions.
func NewBuffer(cfg Config) *Buffer {
	return &Buffer{Cols: cfg.Cols, Rows: cfg.Rows, Data: make([]uint32, cfg.Cols*cfg.Rows)}
}

func (b *Buffer) add(col, row int, n uint32) {
	b.Data[row*b.Cols+col] += n
}

// betwix reports whether v falls within ptw of pt, using the branch-free
// unsigned-wraparound check from spec §4.G: (v-(pt-ptw)) < 2*ptw.
func betwix(v, pt, ptw int64) bool {
	return uint64(v-(pt-ptw)) < uint64(2*ptw)
}

// ToBuffer accumulates every surviving hit of p into the total-ion-count
// buffer at its rasterized position (spec §4.G to_buffer). A hit with
// Size > 1 bypasses the dead-pixel filter since it is already aggregated;
// a hit with Size <= 1 on a dead pixel is dropped.
func ToBuffer(buf *Buffer, cfg Config, coord stage.Coord, p pulse.Pulse, deadPixels []uint16) {
	if !coord.IsNotInf() {
		return
	}
	for _, h := range p.Hits {
		if h.Size <= 1 && h.IsDead(deadPixels) {
			continue
		}
		col, row, ok := cfg.Rasterize(h, coord.X, coord.Y)
		if !ok {
			continue
		}
		buf.add(col, row, 1)
	}
}

// MassWindow names one per-mass accumulation target by its time-of-flight
// peak time in picoseconds. The window half-width is cfg.PeakTimeWinPs,
// shared by every window.
type MassWindow struct {
	Name   string
	PeakPs int64
}

// TimesToBuffers accumulates hits into one buffer per configured mass
// window (spec §4.G times_to_buffers), based on each hit's time-of-flight
// relative to the pulse's TDC reference and cfg.TofPulseLenPs.
func TimesToBuffers(buffers map[string]*Buffer, windows []MassWindow, cfg Config, coord stage.Coord, p pulse.Pulse, deadPixels []uint16) {
	if !coord.IsNotInf() {
		return
	}
	for _, h := range p.Hits {
		if h.Size <= 1 && h.IsDead(deadPixels) {
			continue
		}
		col, row, ok := cfg.Rasterize(h, coord.X, coord.Y)
		if !ok {
			continue
		}
		t := (h.ToA - p.Time) % cfg.TofPulseLenPs
		for _, w := range windows {
			if betwix(t, w.PeakPs, cfg.PeakTimeWinPs) {
				buffers[w.Name].add(col, row, 1)
			}
		}
	}
}

// deadPixelThreshold is the per-pixel uncentroided hit count, out of the
// sampled pulses, that a pixel's count must exceed for AutoDetectDeadPixels
// to flag it dead.
const deadPixelThreshold = 7

// AutoDetectDeadPixels scans a sample of uncentroided pulses and flags
// every (col, row) whose sample-normalized hit count exceeds
// deadPixelThreshold, returning packed (col<<8)|row codes sorted for binary
// search (spec supplement, ported from the original's masking-image
// generation).
func AutoDetectDeadPixels(sample []pulse.Pulse) []uint16 {
	buf := MaskingImage(sample)
	var dead []uint16
	for code, n := range buf.Data {
		if n > deadPixelThreshold {
			dead = append(dead, uint16((code%256)<<8|(code/256)))
		}
	}
	return pulse.SortDeadPixels(dead)
}

// MaskingImage renders a 256x256 histogram of uncentroided (Size < 2) hits
// over sample, normalized by sample size so the dead-pixel threshold means
// the same thing regardless of how many pulses were sampled.
func MaskingImage(sample []pulse.Pulse) *Buffer {
	buf := &Buffer{Cols: 256, Rows: 256, Data: make([]uint32, 256*256)}
	for _, p := range sample {
		for _, h := range p.Hits {
			if h.Size < 2 {
				buf.Data[int(h.Col)+int(h.Row)*256]++
			}
		}
	}
	scale := len(sample) / 1000
	if scale < 1 {
		scale = 1
	}
	for i, n := range buf.Data {
		buf.Data[i] = n / uint32(scale)
	}
	return buf
}
