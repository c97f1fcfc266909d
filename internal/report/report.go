// Package report writes diagnostic output alongside a run's core
// artifacts: the full zero-padded chromatogram as CSV and as an HTML
// go-echarts plot, and the dead-pixel masking image as a PNG (spec
// supplement, ported from the original's writer.rs plotly_spectra and
// save_masking_image).
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tpx3cam/tpx3scan/internal/pngio"
	"github.com/tpx3cam/tpx3scan/internal/raster"
	"github.com/tpx3cam/tpx3scan/internal/spectrum"
)

// WriteSpectrumReport writes stem+"_report_full_spectrum.csv" (two columns:
// time-of-flight picoseconds, count) and stem+"_report_spectrum.html" (the
// same series as an interactive line chart) from a zero-padded dense
// series.
func WriteSpectrumReport(stem string, dense []spectrum.Pair, peaks []int64) error {
	if err := writeSpectrumCSV(stem+"_report_full_spectrum.csv", dense); err != nil {
		return err
	}
	return writeSpectrumHTML(stem+"_report_spectrum.html", dense, peaks)
}

func writeSpectrumCSV(path string, dense []spectrum.Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"time_of_flight_ps", "count"}); err != nil {
		return fmt.Errorf("report: writing csv header: %w", err)
	}
	for _, p := range dense {
		row := []string{
			strconv.FormatInt(p.TimePs, 10),
			strconv.FormatUint(p.Count, 10),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("report: writing csv row: %w", err)
		}
	}
	return nil
}

func writeSpectrumHTML(path string, dense []spectrum.Pair, peaks []int64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "TPX3 chromatogram", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Full spectrum", Subtitle: fmt.Sprintf("%d peaks found", len(peaks))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time of flight (ps)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "count"}),
	)

	xAxis := make([]string, len(dense))
	series := make([]opts.LineData, len(dense))
	for i, p := range dense {
		xAxis[i] = strconv.FormatInt(p.TimePs, 10)
		series[i] = opts.LineData{Value: p.Count}
	}
	line.SetXAxis(xAxis).AddSeries("counts", series)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := line.Render(f); err != nil {
		return fmt.Errorf("report: rendering %s: %w", path, err)
	}
	return nil
}

// SaveMaskingImage writes the raw 256x256 uncentroided hit-count buffer
// used for dead-pixel detection as a diagnostic PNG.
func SaveMaskingImage(path string, buf *raster.Buffer) error {
	return pngio.WriteGray16(path, buf.Cols, buf.Rows, buf.Data)
}
