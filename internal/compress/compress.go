// Package compress converts a raw .tpx3 pulse stream into the centroided
// .tpx3c format (spec §4.D/§5): batches of pulses are centroided in
// parallel, then re-concatenated in their original order.
package compress

import (
	"fmt"
	"io"
	"sync"

	"github.com/tpx3cam/tpx3scan/internal/pulse"
)

// BatchSize is the number of pulses centroided together per worker task
// (spec §5's batched-centroiding requirement).
const BatchSize = 500

// Source yields successive raw pulses. It matches stream.PulseReader's
// Next method.
type Source interface {
	Next() (pulse.Pulse, error)
}

// ToTPX3C reads every pulse from src, labels and centroids each one, and
// writes the re-encoded TPX3C byte stream to w. Batches of BatchSize
// pulses are centroided concurrently; results are written out in their
// original order regardless of which goroutine finishes first.
func ToTPX3C(src Source, w io.Writer) error {
	var batch []pulse.Pulse
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		centroided := centroidBatch(batch)
		for _, p := range centroided {
			if _, err := w.Write(p.ToBytes()); err != nil {
				return fmt.Errorf("compress: writing centroided pulse: %w", err)
			}
		}
		batch = batch[:0]
		return nil
	}

	for {
		p, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("compress: reading pulse: %w", err)
		}
		batch = append(batch, p)
		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

// centroidBatch labels and centroids every pulse in batch concurrently,
// preserving input order in the result.
func centroidBatch(batch []pulse.Pulse) []pulse.Pulse {
	out := make([]pulse.Pulse, len(batch))
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for i := range batch {
		go func(i int) {
			defer wg.Done()
			p := batch[i]
			p.LabelHits()
			out[i] = p.Centroid()
		}(i)
	}
	wg.Wait()
	return out
}
