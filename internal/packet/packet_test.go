package packet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTopNibble(t *testing.T) {
	cases := map[uint64]uint64{
		0x6000_0000_0000_0000: 0x6,
		0xB000_0000_0000_0000: 0xB,
		0xC000_0000_0000_0000: 0xC,
		0x0000_0000_0000_0000: 0x0,
	}
	for p, want := range cases {
		if got := TopNibble(p); got != want {
			t.Errorf("TopNibble(%#x) = %#x, want %#x", p, got, want)
		}
	}
}

func TestIsFileHeader(t *testing.T) {
	var p uint64
	for i, c := range []byte(FileHeaderSentinel) {
		p |= uint64(c) << (8 * i)
	}
	if !IsFileHeader(p) {
		t.Fatalf("expected %#x to be recognized as a file header", p)
	}
	if IsFileHeader(0x1234567890ABCDEF) {
		t.Fatal("did not expect an arbitrary packet to be a file header")
	}
}

func TestHitRoundTrip(t *testing.T) {
	cases := []Hit{
		{Col: 0, Row: 0, TotNs: 0, ToARawPs: 0},
		{Col: 255, Row: 255, TotNs: 25575, ToARawPs: 26_843_545_599_975},
		{Col: 128, Row: 64, TotNs: 1000, ToARawPs: 123_456_789_000},
	}
	for _, h := range cases {
		p := EncodeHit(h.Col, h.Row, h.TotNs, h.ToARawPs)
		got := DecodeHit(p)
		if got.Col != h.Col || got.Row != h.Row {
			t.Errorf("EncodeHit/DecodeHit col/row mismatch: got %+v, want %+v", got, h)
		}
		if got.TotNs != h.TotNs {
			t.Errorf("EncodeHit/DecodeHit tot mismatch: got %d, want %d", got.TotNs, h.TotNs)
		}
	}
}

func TestBlobRoundTrip(t *testing.T) {
	p := EncodeBlob(12, 34, 1024*25*7, 9)
	got := DecodeBlob(p)
	want := Blob{TotCoarseNs: 179200, ColOffset: 12, RowOffset: 34, Size: 9}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeBlob(EncodeBlob(...)) mismatch (-want +got):\n%s", diff)
	}
}

func TestTDCRoundTrip(t *testing.T) {
	cases := []int64{0, 25_000, 1_000_000_000, 107_374_182_399_975}
	for _, timePs := range cases {
		p := EncodeTDC(timePs, 42)
		got := DecodeTDC(p)
		if got.Trigger != 42 {
			t.Errorf("DecodeTDC trigger = %d, want 42", got.Trigger)
		}
		// The 4-bit fine-time field resolves the trigger time only in steps
		// of 512/12 trigtime units (about 260ps), and each encode/decode step
		// truncates, so the decoded time can land up to about 300ps early.
		if diff := got.TimePs - timePs; diff < -300 || diff > 25 {
			t.Errorf("DecodeTDC(EncodeTDC(%d)) = %d, diff %d exceeds one fine-time step", timePs, got.TimePs, diff)
		}
	}
}
