// Package stream turns a raw .tpx3 byte stream into a sequence of pulses
// (spec §4.B) or a sequence of TDC trigger times (spec §4.C). Both readers
// consume the same 64-bit little-endian packet stream; they differ in which
// packet kinds they care about and how they group the result.
package stream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tpx3cam/tpx3scan/internal/packet"
	"github.com/tpx3cam/tpx3scan/internal/pulse"
	"github.com/tpx3cam/tpx3scan/internal/telemetry"
)

// Rollover limits (spec §4.B), in picoseconds. The two clocks roll over
// independently: a TDC packet never rolls HitLimit and a hit packet never
// rolls TDCLimit.
const (
	TDCLimit int64 = 107_374_182_400_000
	HitLimit int64 = 26_843_545_600_000

	// CHECK and ROLL gate the hit clock's rollover test: a hit only rolls
	// when its raw ToA has dropped back near zero (CHECK) AND doing so
	// would land it within ROLL of the pulse's own (TDC-derived) time —
	// otherwise it's just an out-of-order hit, not a wrapped one.
	CHECK int64 = 100_000_000_000
	ROLL  int64 = 26_000_000_000_000

	// chunkSize is the buffered read granularity, chosen to amortize
	// syscalls over many packets without holding an unreasonable amount of
	// memory resident.
	chunkSize = 1 << 20 // 1 MiB
)

const packetSize = 8

// tdcRollState tracks the TDC clock's rollover counter. Its rule is
// unconditional: any raw value smaller than the last one seen means the
// 32-bit coarse counter wrapped (spec §4.B).
type tdcRollState struct {
	rolls   int64
	lastRaw int64
}

func (s *tdcRollState) correct(raw int64) int64 {
	if raw < s.lastRaw {
		s.rolls++
	}
	corrected := raw + s.rolls*TDCLimit
	s.lastRaw = raw
	return corrected
}

// hitRollState tracks the hit (ToA) clock's rollover counter. Unlike the TDC
// clock, a lower raw value alone doesn't prove a wrap — hits can arrive
// slightly out of order — so the test also requires that rolling over would
// land the hit's corrected time close to the pulse's own TDC-derived time
// (spec §4.B CHECK/ROLL rule).
type hitRollState struct {
	rolls   int64
	lastRaw int64
}

func (s *hitRollState) correct(raw, pulseTime int64) int64 {
	if raw+CHECK < s.lastRaw && (raw+(s.rolls+1)*HitLimit)-pulseTime < ROLL {
		s.rolls++
	}
	corrected := raw + s.rolls*HitLimit
	s.lastRaw = raw
	return corrected
}

// PulseReader decodes a .tpx3 stream into Pulses, applying dual-clock
// rollover correction to hit and TDC timestamps as it goes (spec §4.B).
type PulseReader struct {
	r   *bufio.Reader
	buf [packetSize]byte

	tdcRoll tdcRollState
	hitRoll hitRollState

	pending        pulse.Pulse
	havePending    bool
	pendingBlobIdx int
	haveBlob       bool
}

// NewPulseReader wraps r for pulse decoding.
func NewPulseReader(r io.Reader) *PulseReader {
	return &PulseReader{r: bufio.NewReaderSize(r, chunkSize)}
}

// Next returns the next fully-formed pulse, or io.EOF once the stream (and
// any trailing partial pulse) has been exhausted.
func (pr *PulseReader) Next() (pulse.Pulse, error) {
	for {
		raw, err := pr.readPacket()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if pr.havePending {
					p := pr.pending
					pr.havePending = false
					return p, nil
				}
				return pulse.Pulse{}, io.EOF
			}
			return pulse.Pulse{}, err
		}

		switch packet.TopNibble(raw) {
		case packet.KindTDCRaw:
			t := packet.DecodeTDC(raw)
			corrected := pr.tdcRoll.correct(t.TimePs)
			if pr.havePending {
				done := pr.pending
				pr.pending = pulse.Pulse{Time: corrected, Triggers: t.Trigger}
				return done, nil
			}
			pr.pending = pulse.Pulse{Time: corrected, Triggers: t.Trigger}
			pr.havePending = true

		case packet.KindHit:
			h := packet.DecodeHit(raw)
			corrected := pr.hitRoll.correct(h.ToARawPs, pr.pending.Time)
			if !pr.havePending {
				// Hits before the first TDC packet have no pulse to join;
				// this only happens on malformed or truncated captures.
				telemetry.Logf("stream: hit packet before first TDC, dropping")
				continue
			}
			pr.pending.AddHit(corrected, h.TotNs, h.Col, h.Row)
			pr.haveBlob = true
			pr.pendingBlobIdx = len(pr.pending.Hits) - 1

		case packet.KindBlob:
			b := packet.DecodeBlob(raw)
			if pr.haveBlob && pr.havePending && pr.pendingBlobIdx < len(pr.pending.Hits) {
				hit := &pr.pending.Hits[pr.pendingBlobIdx]
				hit.Tot += b.TotCoarseNs
				hit.ColOffset = b.ColOffset
				hit.RowOffset = b.RowOffset
				hit.Size = b.Size
			}
			pr.haveBlob = false

		case packet.KindIgnoredA, packet.KindIgnoredB:
			// pass-through, unused by this pipeline

		default:
			if !packet.IsFileHeader(raw) {
				return pulse.Pulse{}, fmt.Errorf("stream: %w", packet.ErrNotFileHeader)
			}
			// file-chunk header, no pulse content
		}
	}
}

func (pr *PulseReader) readPacket() (uint64, error) {
	if _, err := io.ReadFull(pr.r, pr.buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(pr.buf[:]), nil
}

// TDCReader decodes a .tpx3 stream into a sequence of rollover-corrected TDC
// trigger times only, skipping all hit and blob packets (spec §4.C). The
// very first TDC packet in a capture is a startup marker and is skipped.
type TDCReader struct {
	r   *bufio.Reader
	buf [packetSize]byte

	roll    tdcRollState
	skipped bool
}

// NewTDCReader wraps r for TDC-only decoding.
func NewTDCReader(r io.Reader) *TDCReader {
	return &TDCReader{r: bufio.NewReaderSize(r, chunkSize)}
}

// Next returns the next TDC time in picoseconds, or io.EOF at end of stream.
func (tr *TDCReader) Next() (int64, error) {
	for {
		raw, err := tr.readPacket()
		if err != nil {
			return 0, err
		}
		if packet.TopNibble(raw) != packet.KindTDCRaw {
			switch packet.TopNibble(raw) {
			case packet.KindHit, packet.KindBlob, packet.KindIgnoredA, packet.KindIgnoredB:
				continue
			}
			if !packet.IsFileHeader(raw) {
				return 0, fmt.Errorf("stream: %w", packet.ErrNotFileHeader)
			}
			continue
		}
		t := packet.DecodeTDC(raw)
		corrected := tr.roll.correct(t.TimePs)
		if !tr.skipped {
			tr.skipped = true
			continue
		}
		return corrected, nil
	}
}

func (tr *TDCReader) readPacket() (uint64, error) {
	if _, err := io.ReadFull(tr.r, tr.buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(tr.buf[:]), nil
}

// ReadAllTDC drains r to EOF, returning every trigger time in order.
func ReadAllTDC(r io.Reader) ([]int64, error) {
	tr := NewTDCReader(r)
	var out []int64
	for {
		t, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
