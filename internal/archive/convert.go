package archive

import (
	"fmt"
	"io"
	"sort"

	"github.com/tpx3cam/tpx3scan/internal/pulse"
	"github.com/tpx3cam/tpx3scan/internal/raster"
	"github.com/tpx3cam/tpx3scan/internal/spectrum"
	"github.com/tpx3cam/tpx3scan/internal/stage"
	"github.com/tpx3cam/tpx3scan/internal/telemetry"
)

// emptyPassDrainThreshold is the number of consecutive direction changes
// with no new data that a row must exceed before it is considered finished
// and flushed (spec §4.H).
const emptyPassDrainThreshold = 2

// Source yields successive pulses, paired by the caller with their stage
// coordinate. It matches stream.PulseReader's Next method.
type Source interface {
	Next() (pulse.Pulse, error)
}

// Convert streams pulses from src, rasterizes each hit via cfg, and writes
// the resulting per-pixel spectra into a new IMZML+IBD archive at
// stem+".imzml"/stem+".ibd" (spec §4.H). coords must have one entry per
// pulse Convert will read, in the same order. Unlike the TIC/per-mass
// image buffers, the archive writer drops every hit on a dead pixel with
// no size>1 bypass, matching the original tool's writer filter.
func Convert(src Source, coords []stage.Coord, cfg raster.Config, deadPixels []uint16, stem string) error {
	header := NewHeader(cfg.Cols, cfg.Rows, cfg.PixelsPerMM)
	w, err := NewWriter(stem, header)
	if err != nil {
		return err
	}

	spans := map[int]*PixelSpan{}
	written := map[int]bool{}
	var maxPixel int
	direction := stage.Right
	count := 0

	flush := func(rows []int) error {
		sort.Ints(rows)
		for _, row := range rows {
			span := spans[row]
			delete(spans, row)
			if written[row] {
				panic(fmt.Sprintf("archive: attempting to write row %d twice", row))
			}
			written[row] = true
			if err := w.WriteRow(row, span.Pixels); err != nil {
				return err
			}
			for _, px := range span.Pixels {
				_, ints := px.ToVecs()
				for _, v := range ints {
					if int(v) > maxPixel {
						maxPixel = int(v)
					}
				}
			}
		}
		return nil
	}

	for i := 0; ; i++ {
		p, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			w.Close()
			return fmt.Errorf("archive: reading pulse %d: %w", i, err)
		}
		if i >= len(coords) {
			w.Close()
			return fmt.Errorf("archive: more pulses than coordinates (%d coordinates given)", len(coords))
		}
		coord := coords[i]
		if !coord.IsNotInf() {
			continue
		}

		for _, h := range p.Hits {
			if h.IsDead(deadPixels) {
				continue
			}
			col, row, ok := cfg.Rasterize(h, coord.X, coord.Y)
			if !ok {
				continue
			}
			tofPs := h.ToA - p.Time
			if cfg.TofPulseLenPs > 0 {
				tofPs %= cfg.TofPulseLenPs
			}
			mz := float32(spectrum.TimeToMass(tofPs))
			if mz <= 0 || mz >= 300 {
				continue
			}
			span, ok := spans[row]
			if !ok {
				span = NewPixelSpan(cfg.Cols)
				spans[row] = span
			}
			span.AddMZ(mz, col)
		}

		if coord.Direction != direction {
			direction = coord.Direction
			var finished []int
			for row, span := range spans {
				span.UpdateEndPass()
				if span.EmptyPassCount > emptyPassDrainThreshold {
					finished = append(finished, row)
				}
			}
			if err := flush(finished); err != nil {
				w.Close()
				return err
			}
		}
		count++
	}
	telemetry.Logf("archive: converted %d pulses", count)

	var remaining []int
	for row := range spans {
		remaining = append(remaining, row)
	}
	if err := flush(remaining); err != nil {
		w.Close()
		return err
	}
	telemetry.Logf("archive: maximum pixel intensity %d", maxPixel)

	return w.Close()
}
