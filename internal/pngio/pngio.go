// Package pngio writes rasterized buffers as 16-bit grayscale PNGs, the
// image output format scoped to the stdlib image/png boundary (spec §1/§6
// treat image encoding as an external collaborator).
package pngio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// WriteGray16 normalizes buf's counts to the full 16-bit range and writes a
// grayscale PNG to path. The maximum observed count maps to white; an
// all-zero buffer is written as solid black rather than dividing by zero.
func WriteGray16(path string, width, height int, counts []uint32) error {
	img := image.NewGray16(image.Rect(0, 0, width, height))

	var max uint32
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := counts[y*width+x]
			var scaled uint16
			if max > 0 {
				scaled = uint16(uint64(v) * 65535 / uint64(max))
			}
			img.SetGray16(x, y, color.Gray16{Y: scaled})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pngio: creating %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("pngio: encoding %s: %w", path, err)
	}
	return nil
}
