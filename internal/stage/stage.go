// Package stage turns a sequence of TDC trigger times into the stage
// (X, Y) coordinate of the pixel being imaged at each trigger (spec §4.E).
// The stage moves in a serpentine raster: each pass is a straight line at
// constant Y, alternating left-to-right and right-to-left, with a pause
// between passes long enough to show up as a gap in the trigger times.
package stage

import "fmt"

// Direction is the stage's sweep direction during a pass.
type Direction int

const (
	Right Direction = iota
	Left
)

// Reverse returns the opposite sweep direction.
func (d Direction) Reverse() Direction {
	if d == Right {
		return Left
	}
	return Right
}

func (d Direction) String() string {
	if d == Right {
		return "Right"
	}
	return "Left"
}

// Coord is the stage position assigned to one trigger.
type Coord struct {
	X, Y      float64
	Direction Direction
}

// IsNotInf reports whether both coordinates are finite, used to drop
// triggers that fall outside any recognized pass (spec §4.E edge case:
// triggers before the first pass or after the last have no assigned
// position).
func (c Coord) IsNotInf() bool {
	return !isInfOrNaN(c.X) && !isInfOrNaN(c.Y)
}

func isInfOrNaN(v float64) bool {
	return v != v || v > 1e308 || v < -1e308
}

// passGapPs is the gap between consecutive trigger times that must be
// exceeded to mark a transition between passes (spec §4.E): 30 seconds, in
// picoseconds.
const passGapPs = 30_000_000_000_000

// Config describes the physical raster the stage swept: the Y position and
// spacing of the passes, the X extent of each pass, and the first pass's
// direction. The number of passes comes from the trigger times.
type Config struct {
	StartX, EndX float64
	StartY       float64
	StepY        float64 // Y increment per pass; pass i is at StartY + i*StepY
	FirstDir     Direction
}

// BuildCoords assigns a Coord to every trigger time in times, given the
// number of passes implied by gaps in times and the geometry in cfg. Passes
// are split wherever the gap between consecutive times exceeds passGapPs;
// within a pass, X is linearly interpolated from the pass's first to last
// trigger, and direction alternates starting at cfg.FirstDir.
func BuildCoords(times []int64, cfg Config) ([]Coord, error) {
	if len(times) == 0 {
		return nil, nil
	}
	passes := splitPasses(times)

	coords := make([]Coord, 0, len(times))
	dir := cfg.FirstDir
	for passIdx, pass := range passes {
		y := cfg.StartY + float64(passIdx)*cfg.StepY
		x0, x1 := cfg.EndX, cfg.StartX
		if dir == Right {
			x0, x1 = cfg.StartX, cfg.EndX
		}
		n := len(pass)
		for i := range pass {
			var frac float64
			if n > 1 {
				frac = float64(i) / float64(n-1)
			}
			x := x0 + frac*(x1-x0)
			coords = append(coords, Coord{X: x, Y: y, Direction: dir})
		}
		dir = dir.Reverse()
	}
	if len(coords) != len(times) {
		return nil, fmt.Errorf("stage: produced %d coordinates for %d triggers", len(coords), len(times))
	}
	return coords, nil
}

// splitPasses groups times into consecutive runs separated by gaps that
// exceed passGapPs.
func splitPasses(times []int64) [][]int64 {
	var passes [][]int64
	start := 0
	for i := 1; i < len(times); i++ {
		if times[i]-times[i-1] > passGapPs {
			passes = append(passes, times[start:i])
			start = i
		}
	}
	passes = append(passes, times[start:])
	return passes
}
