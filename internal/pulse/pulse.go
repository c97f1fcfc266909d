package pulse

import (
	"gonum.org/v1/gonum/stat"

	"github.com/tpx3cam/tpx3scan/internal/packet"
)

// Pulse is all hits between two consecutive laser triggers.
type Pulse struct {
	Time     int64 // absolute TDC time in ps, rollover-corrected
	Hits     []Hit // decoder insertion order preserved
	Triggers uint64
	Clusters int // number of distinct labels currently assigned
}

// NewPulse returns an empty pulse with the hit slice pre-sized the way the
// decoder expects (most pulses carry well under this many hits).
func NewPulse() Pulse {
	return Pulse{Hits: make([]Hit, 0, 128)}
}

// AddHit appends a freshly decoded hit, assigning it its index within the
// pulse's hit list.
func (p *Pulse) AddHit(toa int64, tot uint32, col, row uint8) {
	p.Hits = append(p.Hits, NewHit(uint32(len(p.Hits)), toa, tot, col, row))
}

// ToBytes re-encodes the pulse as a TDC packet followed by each hit's packet
// (and, for centroided hits with Size>1, its blob packet), the inverse of
// the decoder's packet stream for this pulse.
func (p Pulse) ToBytes() []byte {
	out := make([]byte, 0, 8*(1+2*len(p.Hits)))
	out = appendLE64(out, p.toTDCPacket())
	for _, h := range p.Hits {
		out = appendLE64(out, packet.EncodeHit(h.Col, h.Row, h.Tot, h.ToA%hitLimit))
		if h.Size > 1 {
			out = appendLE64(out, packet.EncodeBlob(h.ColOffset, h.RowOffset, h.Tot, h.Size))
		}
	}
	return out
}

// hitLimit mirrors stream.HitLimit without importing stream, to avoid an
// import cycle (stream depends on pulse for the Pulse/Hit types).
const hitLimit = 26_843_545_600_000

// tdcLimit mirrors stream.TDCLimit, same reasoning as hitLimit above.
const tdcLimit = 107_374_182_400_000

func (p Pulse) toTDCPacket() uint64 {
	return packet.EncodeTDC(p.Time%tdcLimit, p.Triggers)
}

func appendLE64(b []byte, v uint64) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24), byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// LabelHits clusters the pulse's hits via flood-fill on pixel adjacency with
// time gating (spec §4.D). Each connected component under the candidate
// predicate (time separation < 1us, coarse col/row box < 15, unlabelled)
// and IsProximal receives one label, starting at 1 and incrementing. After
// all seeds are processed, Clusters = final_label - 1.
func (p *Pulse) LabelHits() {
	original := append([]Hit(nil), p.Hits...)
	currentLabel := uint16(1)
	for i := range p.Hits {
		hit := p.Hits[i]
		if hit.Label != 0 {
			continue
		}
		subset := make([]int, 0, 8)
		for j, o := range original {
			if p.Hits[j].Label != 0 {
				continue
			}
			dToA := hit.ToA - o.ToA
			if dToA < 0 {
				dToA = -dToA
			}
			if dToA >= 1_000_000 {
				continue
			}
			dCol := int16(hit.Col) - int16(o.Col)
			dRow := int16(hit.Row) - int16(o.Row)
			if dCol < 0 {
				dCol = -dCol
			}
			if dRow < 0 {
				dRow = -dRow
			}
			if dCol >= 15 || dRow >= 15 {
				continue
			}
			subset = append(subset, j)
		}

		active := []int{i}
		checked := map[int]bool{}
		inActive := map[int]bool{i: true}
		for len(active) > 0 {
			idx := active[len(active)-1]
			active = active[:len(active)-1]
			delete(inActive, idx)
			for _, j := range subset {
				if checked[j] || inActive[j] {
					continue
				}
				if original[j].IsProximal(original[idx]) {
					active = append(active, j)
					inActive[j] = true
				}
			}
			p.Hits[idx].Label = currentLabel
			checked[idx] = true
		}
		currentLabel++
	}
	p.Clusters = int(currentLabel - 1)
}

// Centroid collapses each labelled cluster into one sub-pixel-precision hit
// (spec §4.D). Empty clusters (label present in no hit) are skipped
// silently without renumbering the remaining labels or index counter.
func (p Pulse) Centroid() Pulse {
	out := Pulse{Time: p.Time, Triggers: p.Triggers}
	counter := 0
	for label := 1; label <= p.Clusters; label++ {
		var members []Hit
		for _, h := range p.Hits {
			if int(h.Label) == label {
				members = append(members, h)
			}
		}
		if len(members) == 0 {
			continue
		}
		counter++

		var totSum uint32
		var minToA int64
		cols := make([]float64, len(members))
		rows := make([]float64, len(members))
		weights := make([]float64, len(members))
		for i, m := range members {
			totSum += m.Tot
			if i == 0 || m.ToA < minToA {
				minToA = m.ToA
			}
			cols[i] = float64(m.Col)
			rows[i] = float64(m.Row)
			weights[i] = float64(m.Tot)
		}
		meanCol := stat.Mean(cols, weights)
		meanRow := stat.Mean(rows, weights)

		out.Hits = append(out.Hits, Hit{
			ToA:       minToA,
			Tot:       totSum,
			Col:       uint8(meanCol),
			Row:       uint8(meanRow),
			Index:     uint32(counter),
			Label:     uint16(counter + 1),
			Size:      uint16(len(members)),
			ColOffset: uint8(fracPart(meanCol) * 255),
			RowOffset: uint8(fracPart(meanRow) * 255),
		})
	}
	out.Clusters = counter
	return out
}

func fracPart(v float64) float64 {
	return v - float64(int64(v))
}

// QuickSplat expands every hit in the pulse back into its pre-centroiding
// cloud (spec §4.D), used when rendering needs to "undo" centroiding for
// visualization.
func (p Pulse) QuickSplat() Pulse {
	out := Pulse{Time: p.Time, Triggers: p.Triggers, Clusters: p.Clusters}
	for _, h := range p.Hits {
		out.Hits = append(out.Hits, h.QuickSplat()...)
	}
	return out
}
