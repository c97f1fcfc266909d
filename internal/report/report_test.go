package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tpx3cam/tpx3scan/internal/raster"
	"github.com/tpx3cam/tpx3scan/internal/spectrum"
)

func TestWriteSpectrumReportWritesBothFiles(t *testing.T) {
	stem := filepath.Join(t.TempDir(), "run")
	dense := []spectrum.Pair{{TimePs: 0, Count: 5}, {TimePs: spectrum.BinWidthPs, Count: 9}}
	peaks := []int64{spectrum.BinWidthPs}

	if err := WriteSpectrumReport(stem, dense, peaks); err != nil {
		t.Fatalf("WriteSpectrumReport error = %v", err)
	}

	for _, suffix := range []string{"_report_full_spectrum.csv", "_report_spectrum.html"} {
		info, err := os.Stat(stem + suffix)
		if err != nil {
			t.Errorf("expected %s%s to exist: %v", stem, suffix, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("expected %s%s to be non-empty", stem, suffix)
		}
	}
}

func TestSaveMaskingImage(t *testing.T) {
	cfg := raster.NewConfig(4, 4, 0, 14.08, 18.18, 1, 1, 1_000_000_000, 50_000)
	buf := raster.NewBuffer(cfg)
	buf.Data[0] = 5

	path := filepath.Join(t.TempDir(), "mask.png")
	if err := SaveMaskingImage(path, buf); err != nil {
		t.Fatalf("SaveMaskingImage error = %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("expected a non-empty masking image at %s", path)
	}
}
