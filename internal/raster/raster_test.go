package raster

import (
	"testing"

	"github.com/tpx3cam/tpx3scan/internal/pulse"
	"github.com/tpx3cam/tpx3scan/internal/stage"
)

func TestRasterizeNoRotationCentered(t *testing.T) {
	cfg := NewConfig(256, 256, 0, 14.08, 18.18, 1, 1, 1_000_000_000, 50_000)
	h := pulse.Hit{Col: 127, Row: 127}
	col, row, ok := cfg.Rasterize(h, 0, 0)
	if !ok {
		t.Fatal("expected a centered hit to land in bounds")
	}
	// xrot = 127 and yrot = 128 detector px; times 0.01408 mm/px times
	// 18.18 px/mm gives 32.5 and 32.8, which floor to 32.
	if col != 32 || row != 32 {
		t.Errorf("centered hit rasterized to col=%d row=%d, want 32,32", col, row)
	}
}

func TestRasterizeOutOfBounds(t *testing.T) {
	cfg := NewConfig(8, 8, 0, 14.08, 18.18, 1, 1, 1_000_000_000, 50_000)
	h := pulse.Hit{Col: 255, Row: 255}
	if _, _, ok := cfg.Rasterize(h, 1000, 1000); ok {
		t.Error("expected a far-offset hit to fall outside the small buffer")
	}
}

func TestBetwix(t *testing.T) {
	if !betwix(100, 100, 10) {
		t.Error("betwix(100,100,10) should be true (v==pt)")
	}
	if !betwix(95, 100, 10) {
		t.Error("betwix(95,100,10) should be true (within window)")
	}
	if betwix(80, 100, 10) {
		t.Error("betwix(80,100,10) should be false (outside window)")
	}
}

func TestToBufferDropsDeadPixelUnlessCentroided(t *testing.T) {
	cfg := NewConfig(256, 256, 0, 14.08, 18.18, 1, 1, 1_000_000_000, 50_000)
	buf := NewBuffer(cfg)
	coord := stage.Coord{X: 0, Y: 0}
	deadPixels := pulse.SortDeadPixels([]uint16{(uint16(127) << 8) | 127})

	p := pulse.Pulse{Hits: []pulse.Hit{
		{Col: 127, Row: 127, Size: 1}, // on a dead pixel, uncentroided: dropped
		{Col: 127, Row: 127, Size: 3}, // centroided: bypasses the filter
	}}
	ToBuffer(buf, cfg, coord, p, deadPixels)

	var total uint32
	for _, v := range buf.Data {
		total += v
	}
	if total != 1 {
		t.Errorf("expected exactly the centroided hit to be counted, got total=%d", total)
	}
}

func TestAutoDetectDeadPixels(t *testing.T) {
	var hits []pulse.Hit
	for i := 0; i < deadPixelThreshold+1; i++ {
		hits = append(hits, pulse.Hit{Col: 5, Row: 5})
	}
	sample := []pulse.Pulse{{Hits: hits}}

	dead := AutoDetectDeadPixels(sample)
	want := (uint16(5) << 8) | 5
	found := false
	for _, d := range dead {
		if d == want {
			found = true
		}
	}
	if !found {
		t.Errorf("expected pixel (5,5) to be flagged dead after %d hits", len(hits))
	}
}

func TestAutoDetectDeadPixelsIgnoresCentroidedHits(t *testing.T) {
	var hits []pulse.Hit
	for i := 0; i < deadPixelThreshold+5; i++ {
		hits = append(hits, pulse.Hit{Col: 9, Row: 9, Size: 2}) // already centroided
	}
	sample := []pulse.Pulse{{Hits: hits}}

	dead := AutoDetectDeadPixels(sample)
	want := (uint16(9) << 8) | 9
	for _, d := range dead {
		if d == want {
			t.Fatalf("centroided hits (Size>=2) should not count toward dead-pixel detection")
		}
	}
}

func TestMaskingImageNormalizesBySampleSize(t *testing.T) {
	var hits []pulse.Hit
	for i := 0; i < 16; i++ {
		hits = append(hits, pulse.Hit{Col: 3, Row: 3})
	}
	sample := make([]pulse.Pulse, 2000)
	sample[0] = pulse.Pulse{Hits: hits}

	buf := MaskingImage(sample)
	got := buf.Data[3+3*256]
	// 16 raw hits over a 2000-pulse sample normalize to 16/(2000/1000) = 8.
	if got != 8 {
		t.Errorf("normalized count = %d, want 8", got)
	}
}
