// Command tpx3scan walks the current directory for .tpx3c captures and, for
// each one, auto-derives stage coordinates and dead pixels, renders a
// total-ion-count image and one image per detected mass peak, and writes
// the IMZML+IBD spectral archive (spec §6).
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tpx3cam/tpx3scan/internal/archive"
	"github.com/tpx3cam/tpx3scan/internal/config"
	"github.com/tpx3cam/tpx3scan/internal/pngio"
	"github.com/tpx3cam/tpx3scan/internal/pulse"
	"github.com/tpx3cam/tpx3scan/internal/raster"
	"github.com/tpx3cam/tpx3scan/internal/report"
	"github.com/tpx3cam/tpx3scan/internal/spectrum"
	"github.com/tpx3cam/tpx3scan/internal/stage"
	"github.com/tpx3cam/tpx3scan/internal/stream"
	"github.com/tpx3cam/tpx3scan/internal/telemetry"
	"github.com/tpx3cam/tpx3scan/internal/version"
)

// imageWorkers bounds how many mass-image groups render concurrently, per
// spec §5's concurrency model.
const imageWorkers = 6

// deadPixelSampleSize caps how many pulses are read to auto-detect dead
// pixels, so the sample pass doesn't re-read an entire large capture.
const deadPixelSampleSize = 200_000

var writeArchive = flag.Bool("archive", true, "also write the IMZML+IBD spectral archive")
var showVersion = flag.Bool("version", false, "print the version and exit")

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if err := run(); err != nil {
		telemetry.Logf("tpx3scan: %v", err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	cfg := config.MustLoadDefaultConfig()

	var captures []string
	err = filepath.WalkDir(cwd, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".tpx3c") {
			captures = append(captures, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", cwd, err)
	}

	for _, path := range captures {
		if err := processCapture(path, cfg); err != nil {
			telemetry.Logf("tpx3scan: %s: %v", path, err)
		}
	}
	return nil
}

func processCapture(path string, icfg *config.ImagingConfig) error {
	stem := strings.TrimSuffix(path, filepath.Ext(path))
	telemetry.Logf("tpx3scan: processing %s", path)

	coords, err := autoGenerateCoordinates(path, icfg)
	if err != nil {
		return fmt.Errorf("generating coordinates: %w", err)
	}

	deadPixels, err := autoDetectDeadPixels(path)
	if err != nil {
		return fmt.Errorf("detecting dead pixels: %w", err)
	}

	dense, peaks, err := autoGenerateMassList(path, icfg)
	if err != nil {
		return fmt.Errorf("generating mass list: %w", err)
	}
	if err := report.WriteSpectrumReport(stem, dense, peaks); err != nil {
		return fmt.Errorf("writing spectrum report: %w", err)
	}

	cols := icfg.GetWidth()
	rows := icfg.GetHeight()
	rcfg := raster.NewConfig(cols, rows, icfg.GetRotationDeg()*math.Pi/180,
		icfg.GetCameraFovMM(), icfg.GetPixelsPerMM(), icfg.GetScaleX(), icfg.GetScaleY(),
		icfg.GetTofPulseLengthPs(), icfg.GetPeakTimeWindowPs())

	if err := renderTIC(path, stem, rcfg, coords, deadPixels); err != nil {
		return fmt.Errorf("rendering TIC image: %w", err)
	}
	if err := renderMassImages(path, stem, rcfg, coords, deadPixels, peaks); err != nil {
		return fmt.Errorf("rendering mass images: %w", err)
	}

	if *writeArchive {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()
		reader := stream.NewPulseReader(f)
		if err := archive.Convert(reader, coords, rcfg, deadPixels, stem); err != nil {
			return fmt.Errorf("writing spectral archive: %w", err)
		}
	}
	return nil
}

// autoGenerateCoordinates assumes a serpentine raster and derives the
// pass count directly from TDC time gaps (spec §4.E).
func autoGenerateCoordinates(path string, icfg *config.ImagingConfig) ([]stage.Coord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	times, err := stream.ReadAllTDC(f)
	if err != nil {
		return nil, err
	}

	scfg := stage.Config{
		StartX: 0, EndX: float64(icfg.GetWidth()),
		StartY: 0, StepY: 1, // overwritten below once pass count is known
		FirstDir: stage.Right,
	}
	passCount := countPasses(times)
	if passCount > 1 {
		scfg.StepY = float64(icfg.GetHeight()) / float64(passCount-1)
	}
	return stage.BuildCoords(times, scfg)
}

func countPasses(times []int64) int {
	const passGapPs = 30_000_000_000_000
	if len(times) == 0 {
		return 0
	}
	count := 1
	for i := 1; i < len(times); i++ {
		if times[i]-times[i-1] > passGapPs {
			count++
		}
	}
	return count
}

// autoDetectDeadPixels samples the leading pulses of a capture to flag
// overactive pixels (spec supplement).
func autoDetectDeadPixels(path string) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := stream.NewPulseReader(f)
	var sample []pulse.Pulse
	for len(sample) < deadPixelSampleSize {
		p, err := reader.Next()
		if err != nil {
			break
		}
		sample = append(sample, p)
	}
	return raster.AutoDetectDeadPixels(sample), nil
}

// autoGenerateMassList integrates the full chromatogram and peak-picks it
// (spec §4.F, supplement).
func autoGenerateMassList(path string, icfg *config.ImagingConfig) ([]spectrum.Pair, []int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	reader := stream.NewPulseReader(f)
	hist := spectrum.NewHistogram()
	tofPulseLen := icfg.GetTofPulseLengthPs()
	for {
		p, err := reader.Next()
		if err != nil {
			break
		}
		for _, h := range p.Hits {
			tof := h.ToA - p.Time
			if tofPulseLen > 0 {
				tof %= tofPulseLen
			}
			hist.Add(tof)
		}
	}

	dense := spectrum.ZeroPad(hist.Sorted())
	peaks := spectrum.FindPeaks(dense)
	return dense, peaks, nil
}

func renderTIC(path, stem string, rcfg raster.Config, coords []stage.Coord, deadPixels []uint16) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := stream.NewPulseReader(f)
	buf := raster.NewBuffer(rcfg)
	for i := 0; ; i++ {
		p, err := reader.Next()
		if err != nil {
			break
		}
		if i >= len(coords) {
			break
		}
		raster.ToBuffer(buf, rcfg, coords[i], p, deadPixels)
	}
	return pngio.WriteGray16(stem+"_tic.png", buf.Cols, buf.Rows, buf.Data)
}

// massImageGroupSize is how many detected peaks share one read-through of
// the capture (spec §5, mirrors the original's masses.chunks(6).par_iter()).
const massImageGroupSize = 6

// renderMassImages renders one TIC-style image per detected peak. Peaks are
// chunked into groups of massImageGroupSize; each group drives its own
// independent pass over the capture, accumulating only its own buffers, and
// groups render concurrently, imageWorkers at a time.
func renderMassImages(path, stem string, rcfg raster.Config, coords []stage.Coord, deadPixels []uint16, peaks []int64) error {
	if len(peaks) == 0 {
		return nil
	}

	sem := make(chan struct{}, imageWorkers)
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for start := 0; start < len(peaks); start += massImageGroupSize {
		end := start + massImageGroupSize
		if end > len(peaks) {
			end = len(peaks)
		}
		group := peaks[start:end]

		wg.Add(1)
		sem <- struct{}{}
		go func(base int, group []int64) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := renderMassImageGroup(path, stem, rcfg, coords, deadPixels, base, group); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(start, group)
	}
	wg.Wait()
	return firstErr
}

// renderMassImageGroup reads the capture once for a single chunk of up to
// massImageGroupSize peaks, accumulating each into its own buffer, then
// writes each peak's PNG.
func renderMassImageGroup(path, stem string, rcfg raster.Config, coords []stage.Coord, deadPixels []uint16, base int, group []int64) error {
	windows := make([]raster.MassWindow, len(group))
	buffers := make(map[string]*raster.Buffer, len(group))
	for i, peak := range group {
		name := fmt.Sprintf("mass_%d", base+i)
		windows[i] = raster.MassWindow{Name: name, PeakPs: peak}
		buffers[name] = raster.NewBuffer(rcfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := stream.NewPulseReader(f)
	for i := 0; ; i++ {
		p, err := reader.Next()
		if err != nil {
			break
		}
		if i >= len(coords) {
			break
		}
		raster.TimesToBuffers(buffers, windows, rcfg, coords[i], p, deadPixels)
	}

	for i, w := range windows {
		buf := buffers[w.Name]
		pngPath := fmt.Sprintf("%s_mass_%03d.png", stem, base+i)
		if err := pngio.WriteGray16(pngPath, buf.Cols, buf.Rows, buf.Data); err != nil {
			return err
		}
	}
	return nil
}
