package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/tpx3cam/tpx3scan/internal/pulse"
)

func TestPulseReaderRoundTrip(t *testing.T) {
	p := pulse.NewPulse()
	p.Time = 1_000_000
	p.Triggers = 3
	p.AddHit(1_000_100, 250, 3, 4)
	p.AddHit(1_000_200, 500, 5, 6)

	r := NewPulseReader(bytes.NewReader(p.ToBytes()))
	got, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	if len(got.Hits) != len(p.Hits) {
		t.Fatalf("decoded %d hits, want %d", len(got.Hits), len(p.Hits))
	}
	for i, h := range got.Hits {
		want := p.Hits[i]
		if h.Col != want.Col || h.Row != want.Row || h.Tot != want.Tot {
			t.Errorf("hit %d = %+v, want col/row/tot from %+v", i, h, want)
		}
	}
	if got.Triggers != p.Triggers {
		t.Errorf("Triggers = %d, want %d", got.Triggers, p.Triggers)
	}
	if diff := got.Time - p.Time; diff < -25 || diff > 25 {
		t.Errorf("Time = %d, want within 25ps of %d", got.Time, p.Time)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("second Next() error = %v, want io.EOF", err)
	}
}

// TestTDCRollStateScenario4 follows spec.md's scenario 4 literally: a raw TDC
// sequence of 10^9 then 5 must be read as one rollover (trolls=1) with the
// second pulse's time landing at 5+TDC_LIMIT, because the TDC rollover rule
// is unconditional (any decreasing raw value means the clock wrapped) rather
// than the hit clock's CHECK/ROLL-gated rule.
func TestTDCRollStateScenario4(t *testing.T) {
	var s tdcRollState

	if got := s.correct(1_000_000_000); got != 1_000_000_000 {
		t.Fatalf("first TDC should pass through unchanged, got %d", got)
	}
	if got := s.correct(5); got != 5+TDCLimit {
		t.Errorf("second TDC = %d, want %d (5 + TDC_LIMIT)", got, 5+TDCLimit)
	}
	if s.rolls != 1 {
		t.Errorf("trolls = %d, want 1", s.rolls)
	}
}

// TestHitRollStateRequiresCheckAndRoll shows the hit clock's rule differs
// from the TDC clock's: a decreasing raw ToA alone is not enough, the
// CHECK/ROLL conjunction must also hold against the pulse's own time.
func TestHitRollStateRequiresCheckAndRoll(t *testing.T) {
	var s hitRollState
	s.lastRaw = HitLimit - 1 // near the limit, priming the CHECK test

	// Decreasing but still far from the pulse time in ROLL terms: no wrap.
	if got := s.correct(50, 0); got != 50 {
		t.Errorf("expected no rollover when the ROLL test fails, got %d", got)
	}
	if s.rolls != 0 {
		t.Errorf("hrolls = %d, want 0 (ROLL test should have blocked the increment)", s.rolls)
	}

	var s2 hitRollState
	s2.lastRaw = HitLimit - 1
	// Decreasing and within ROLL of the pulse's own time: this is a wrap.
	if got := s2.correct(50, 50+HitLimit); got != 50+HitLimit {
		t.Errorf("expected rollover correction to add one HitLimit, got %d", got)
	}
	if s2.rolls != 1 {
		t.Errorf("hrolls = %d, want 1", s2.rolls)
	}
}

func TestReadAllTDC(t *testing.T) {
	p1 := pulse.NewPulse()
	p1.Time = 500
	p1.Triggers = 0
	p2 := pulse.NewPulse()
	p2.Time = 1_000_000
	p2.Triggers = 1

	var buf bytes.Buffer
	buf.Write(p1.ToBytes())
	buf.Write(p2.ToBytes())

	times, err := ReadAllTDC(&buf)
	if err != nil {
		t.Fatalf("ReadAllTDC error = %v", err)
	}
	// the first TDC packet is a startup marker and is skipped.
	if len(times) != 1 {
		t.Fatalf("got %d times, want 1 (startup TDC skipped)", len(times))
	}
	if diff := times[0] - p2.Time; diff < -25 || diff > 25 {
		t.Errorf("times[0] = %d, want within 25ps of %d", times[0], p2.Time)
	}
}
