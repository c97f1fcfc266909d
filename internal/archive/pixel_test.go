package archive

import "testing"

func TestPixelToVecsMergesNearDuplicates(t *testing.T) {
	var p Pixel
	p.Add(100.00001)
	p.Add(100.00002)
	p.Add(200.0)

	mzs, intensities := p.ToVecs()
	if len(mzs) != 2 {
		t.Fatalf("got %d distinct mz values, want 2 (near-duplicates merged): %v", len(mzs), mzs)
	}
	if intensities[0] != 2 {
		t.Errorf("expected the merged pair to have intensity 2, got %d", intensities[0])
	}
	if intensities[1] != 1 {
		t.Errorf("expected the distinct value to have intensity 1, got %d", intensities[1])
	}
}

func TestPixelToVecsEmpty(t *testing.T) {
	var p Pixel
	mzs, intensities := p.ToVecs()
	if len(mzs) != 0 || len(intensities) != 0 {
		t.Errorf("ToVecs on an empty pixel should return no entries, got mzs=%v intensities=%v", mzs, intensities)
	}
}

func TestPixelSpanUpdateEndPassTracksEmptiness(t *testing.T) {
	s := NewPixelSpan(4)
	s.AddMZ(100.0, 0)
	s.UpdateEndPass()
	if s.EmptyPassCount != 0 {
		t.Fatalf("EmptyPassCount = %d after an active pass, want 0", s.EmptyPassCount)
	}

	s.UpdateEndPass()
	s.UpdateEndPass()
	if s.EmptyPassCount != 2 {
		t.Errorf("EmptyPassCount = %d after two empty passes, want 2", s.EmptyPassCount)
	}

	s.AddMZ(50.0, 1)
	s.UpdateEndPass()
	if s.EmptyPassCount != 0 {
		t.Errorf("EmptyPassCount = %d after new data arrived, want reset to 0", s.EmptyPassCount)
	}
}
