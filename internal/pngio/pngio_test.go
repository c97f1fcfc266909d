package pngio

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteGray16NormalizesToMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	counts := []uint32{0, 10, 20, 40} // 2x2

	if err := WriteGray16(path, 2, 2, counts); err != nil {
		t.Fatalf("WriteGray16 error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening written png: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decoding written png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 2 || b.Dy() != 2 {
		t.Errorf("decoded image bounds = %v, want 2x2", b)
	}
	// the max count (40, at x=1,y=1) should map to pure white.
	r, _, _, _ := img.At(1, 1).RGBA()
	if r != 0xFFFF {
		t.Errorf("brightest pixel = %#x, want 0xFFFF", r)
	}
	// the zero count (x=0,y=0) should map to pure black.
	r0, _, _, _ := img.At(0, 0).RGBA()
	if r0 != 0 {
		t.Errorf("zero-count pixel = %#x, want 0", r0)
	}
}

func TestWriteGray16AllZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := WriteGray16(path, 1, 1, []uint32{0}); err != nil {
		t.Fatalf("WriteGray16 on an all-zero buffer error = %v", err)
	}
}
