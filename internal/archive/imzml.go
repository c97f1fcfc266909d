// Package archive streams a TPX3C capture into an IMZML+IBD spectral
// archive (spec §4.H): a binary .ibd file of per-pixel (mz, intensity)
// arrays and a companion .imzml XML index describing where each pixel's
// data lives in the .ibd file.
package archive

import (
	"crypto/sha1"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"
)

// dummyChecksum is the exact 40-character placeholder written for the
// sha1sum field on the first pass; it is overwritten in place once the
// real digest is known (spec §4.H). A real SHA-1 hex digest is always 40
// characters, so the rewrite never shifts any byte offset already written
// into the imzml file.
var dummyChecksum = strings.Repeat("0", 40)

// Header holds the per-dataset fields of the IMZML document. Everything
// not listed is a fixed instrument-description constant baked into the
// template (imzmlHeaderTemplate).
type Header struct {
	UUID             string
	SHA1Sum          string
	XPixelMaximum    int
	YPixelMaximum    int
	WidthMicron      int
	HeightMicron     int
	XPixelSizeMicron float64
	YPixelSizeMicron float64
	NumberOfSpectra  int
}

// NewHeader derives a Header from the target image's pixel dimensions and
// pixel pitch, generating a fresh dataset UUID.
func NewHeader(cols, rows int, pixelsPerMM float64) Header {
	pixelSize := 1000.0 / pixelsPerMM
	return Header{
		UUID:             strings.ReplaceAll(uuid.New().String(), "-", ""),
		SHA1Sum:          dummyChecksum,
		XPixelMaximum:    cols,
		YPixelMaximum:    rows,
		WidthMicron:      int(float64(cols) * pixelSize),
		HeightMicron:     int(float64(rows) * pixelSize),
		XPixelSizeMicron: pixelSize,
		YPixelSizeMicron: pixelSize,
		NumberOfSpectra:  cols * rows,
	}
}

// uuidBytes decodes the header's hex UUID string into its 16 raw bytes,
// the form the .ibd file's leading identifier block requires.
func (h Header) uuidBytes() ([]byte, error) {
	out := make([]byte, 16)
	for i := 0; i < 16; i++ {
		var b byte
		if _, err := fmt.Sscanf(h.UUID[i*2:i*2+2], "%02x", &b); err != nil {
			return nil, fmt.Errorf("archive: decoding uuid byte %d: %w", i, err)
		}
		out[i] = b
	}
	return out, nil
}

func (h Header) render() string {
	return fmt.Sprintf(imzmlHeaderTemplate,
		h.UUID, h.SHA1Sum,
		h.XPixelMaximum, h.YPixelMaximum,
		h.XPixelSizeMicron, h.YPixelSizeMicron,
		h.WidthMicron, h.HeightMicron,
		h.NumberOfSpectra,
	)
}

// spectrum is one pixel's entry in the imzml spectrum list: its offsets
// into the .ibd file and its array lengths.
type spectrum struct {
	index         int
	spectrumSum   int
	pixelColumn   int
	pixelRow      int
	mzLen         int
	mzOffset      int
	mzEncLen      int
	intLen        int
	intOffset     int
	intEncLen     int
}

func (s spectrum) render() string {
	return fmt.Sprintf(imzmlSpectrumTemplate,
		s.index+1, s.index, s.spectrumSum,
		s.pixelColumn, s.pixelRow,
		s.mzLen, s.mzEncLen, s.mzOffset,
		s.intLen, s.intEncLen, s.intOffset,
	)
}

// Writer streams rows of pixels into an open .imzml/.ibd pair as they
// become ready (spec §4.H). Construct with NewWriter, feed rows with
// WriteRow in ascending row order, then call Close to emit the footer and
// fix up the checksum.
type Writer struct {
	imzml *os.File
	ibd   *os.File
	header Header

	index   int
	offset  int
	written map[int]bool
}

// NewWriter creates (or truncates) stem+".imzml" and stem+".ibd", writes
// the opening IMZML header and the .ibd UUID block, and returns a Writer
// ready for WriteRow calls.
func NewWriter(stem string, header Header) (*Writer, error) {
	imzmlFile, err := os.Create(stem + ".imzml")
	if err != nil {
		return nil, fmt.Errorf("archive: creating imzml file: %w", err)
	}
	ibdFile, err := os.Create(stem + ".ibd")
	if err != nil {
		imzmlFile.Close()
		return nil, fmt.Errorf("archive: creating ibd file: %w", err)
	}

	w := &Writer{imzml: imzmlFile, ibd: ibdFile, header: header, offset: 16, written: make(map[int]bool)}
	if _, err := w.imzml.WriteString(header.render()); err != nil {
		return nil, fmt.Errorf("archive: writing imzml header: %w", err)
	}
	idBytes, err := header.uuidBytes()
	if err != nil {
		return nil, err
	}
	if _, err := w.ibd.Write(idBytes); err != nil {
		return nil, fmt.Errorf("archive: writing ibd identifier: %w", err)
	}
	return w, nil
}

// WriteRow appends one complete image row's spectra to the archive. row is
// the 0-based row index (after any crop offset has already been applied by
// the caller); pixels holds one Pixel per column. Writing the same row
// index twice is a programmer error and panics, matching the original
// tool's invariant.
func (w *Writer) WriteRow(row int, pixels []Pixel) error {
	if w.written[row] {
		panic(fmt.Sprintf("archive: attempted to write row %d twice", row))
	}
	w.written[row] = true

	for col := range pixels {
		if err := w.writeSpectrum(&pixels[col], col, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeSpectrum(pixel *Pixel, col, row int) error {
	mzs, ints := pixel.ToVecs()

	var sum int
	for _, v := range ints {
		sum += int(v)
	}

	mzBytes := make([]byte, 0, 4*len(mzs))
	for _, m := range mzs {
		mzBytes = appendLE32(mzBytes, math.Float32bits(m))
	}
	intBytes := make([]byte, 0, 2*len(ints))
	for _, v := range ints {
		intBytes = appendLE16(intBytes, uint16(v))
	}

	if _, err := w.ibd.Write(mzBytes); err != nil {
		return fmt.Errorf("archive: writing ibd mz array: %w", err)
	}
	if _, err := w.ibd.Write(intBytes); err != nil {
		return fmt.Errorf("archive: writing ibd intensity array: %w", err)
	}

	s := spectrum{
		index:       w.index,
		spectrumSum: sum,
		pixelColumn: col + 1,
		pixelRow:    row + 1,
		mzLen:       len(mzs),
		mzOffset:    w.offset,
		mzEncLen:    len(mzBytes),
		intLen:      len(ints),
		intOffset:   w.offset + len(mzBytes),
		intEncLen:   len(intBytes),
	}
	if _, err := w.imzml.WriteString(s.render()); err != nil {
		return fmt.Errorf("archive: writing imzml spectrum entry: %w", err)
	}
	w.offset += len(mzBytes) + len(intBytes)
	w.index++
	return nil
}

// Close writes the IMZML footer, computes the real SHA-1 checksum of the
// .ibd file, and overwrites the placeholder checksum in the already-written
// header in place (spec §4.H). It closes both files.
func (w *Writer) Close() error {
	defer w.ibd.Close()
	defer w.imzml.Close()

	if _, err := w.imzml.WriteString(imzmlFooter); err != nil {
		return fmt.Errorf("archive: writing imzml footer: %w", err)
	}

	sum, err := w.ibdSHA1()
	if err != nil {
		return err
	}
	w.header.SHA1Sum = sum

	if _, err := w.imzml.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("archive: seeking imzml header for checksum rewrite: %w", err)
	}
	if _, err := w.imzml.WriteString(w.header.render()); err != nil {
		return fmt.Errorf("archive: rewriting imzml header: %w", err)
	}
	return nil
}

func (w *Writer) ibdSHA1() (string, error) {
	if _, err := w.ibd.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("archive: seeking ibd for checksum: %w", err)
	}
	h := sha1.New()
	if _, err := io.Copy(h, w.ibd); err != nil {
		return "", fmt.Errorf("archive: hashing ibd file: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func appendLE32(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendLE16(b []byte, v uint16) []byte {
	return append(b, byte(v), byte(v>>8))
}
