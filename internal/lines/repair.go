package lines

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

// ErrPrecondition marks repair inputs that violate the operation's contract,
// such as a run of invalid coordinates without enough valid neighbours to
// extrapolate from.
var ErrPrecondition = errors.New("precondition violated")

// RepairReport summarizes a coordinate repair pass.
type RepairReport struct {
	Interpolated int `json:"interpolated"`
	Extrapolated int `json:"extrapolated"`
	SkippedRuns  int `json:"skipped_runs"`
}

// RepairCoordinates fills runs of invalid (NaN) coordinates in place.
// Interior runs are linearly interpolated between their valid neighbours;
// runs touching a line start or end are linearly extrapolated from the two
// nearest valid points of the same line. Every written point is flagged with
// its provenance in the coordinate_flag_index array.
//
// A dataset that already carries flag arrays has been repaired before; the
// whole operation is then a logged no-op.
func (ls *LineSet) RepairCoordinates() (RepairReport, error) {
	ds, ok := ls.ds.(survey.Mutable)
	if !ok {
		return RepairReport{}, fmt.Errorf("dataset %s: %w", ls.ds.Identity(), survey.ErrUnsupported)
	}

	if err := ds.CreateFlagArrays(); err != nil {
		if errors.Is(err, survey.ErrFlagsExist) {
			log.Printf("dataset %s already carries coordinate flags, skipping repair", ls.ds.Identity())
			return RepairReport{}, nil
		}
		return RepairReport{}, err
	}

	line, err := ls.Lines()
	if err != nil {
		return RepairReport{}, err
	}
	lineIndex, err := ls.LineIndex()
	if err != nil {
		return RepairReport{}, err
	}
	src, err := ls.ds.Coordinates()
	if err != nil {
		return RepairReport{}, err
	}

	coords := make([][2]float64, len(src))
	copy(coords, src)

	bad := make([]bool, len(coords))
	flags := make([]uint8, len(coords))
	for p, c := range coords {
		if math.IsNaN(c[0]) || math.IsNaN(c[1]) {
			bad[p] = true
			flags[p] = survey.FlagInvalid
		} else {
			flags[p] = survey.FlagObserved
		}
	}

	starts, ends := lineBlocks(lineIndex, len(coords), len(line))
	isLineStart := make([]bool, len(coords))
	isLineEnd := make([]bool, len(coords))
	for i := range starts {
		isLineStart[starts[i]] = true
		isLineEnd[ends[i]] = true
	}

	var report RepairReport
	for _, run := range badRuns(bad) {
		s, e := run[0], run[1]

		// First line start and last line end falling inside the run.
		badLineStart, badLineEnd := -1, -1
		for p := s; p <= e; p++ {
			if isLineStart[p] && badLineStart < 0 {
				badLineStart = p
			}
			if isLineEnd[p] {
				badLineEnd = p
			}
		}

		if badLineStart >= 0 && badLineEnd >= 0 && lineIndex[s] == lineIndex[e] {
			log.Printf("line %d is entirely invalid, cannot repair", line[lineIndex[s]])
			report.SkippedRuns++
			continue
		}

		repaired := false
		if badLineStart >= 0 {
			// The run swallows the start of a line; extrapolate backward
			// from the first two valid points after the run.
			if err := extrapolateBackward(coords, bad, flags, badLineStart, e); err != nil {
				return report, err
			}
			report.Extrapolated += e - badLineStart + 1
			repaired = true
		}
		if badLineEnd >= 0 {
			// The run swallows the end of a line; extrapolate forward from
			// the last two valid points before the run.
			if err := extrapolateForward(coords, bad, flags, s, badLineEnd); err != nil {
				return report, err
			}
			report.Extrapolated += badLineEnd - s + 1
			repaired = true
		}
		if !repaired {
			if err := interpolateRun(coords, bad, flags, s, e); err != nil {
				return report, err
			}
			report.Interpolated += e - s + 1
		}
	}

	if err := ds.WriteCoordinates(0, coords); err != nil {
		return report, err
	}
	if err := ds.WriteFlags(0, flags); err != nil {
		return report, err
	}
	ls.InvalidateCoordinates()
	return report, nil
}

// badRuns returns the [start, end] index pairs of maximal runs of true
// values.
func badRuns(bad []bool) [][2]int {
	var runs [][2]int
	start := -1
	for p, b := range bad {
		if b && start < 0 {
			start = p
		}
		if !b && start >= 0 {
			runs = append(runs, [2]int{start, p - 1})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, [2]int{start, len(bad) - 1})
	}
	return runs
}

// fillable verifies the target span holds only invalid points before it is
// overwritten.
func fillable(bad []bool, s, e int) error {
	for p := s; p <= e; p++ {
		if !bad[p] {
			return fmt.Errorf("%w: point %d in repair target [%d,%d] is valid", ErrPrecondition, p, s, e)
		}
	}
	return nil
}

func validAt(coords [][2]float64, p int) bool {
	return p >= 0 && p < len(coords) && !math.IsNaN(coords[p][0]) && !math.IsNaN(coords[p][1])
}

// extrapolateBackward fills [s, e] walking backward from coords[e+1] and
// coords[e+2].
func extrapolateBackward(coords [][2]float64, bad []bool, flags []uint8, s, e int) error {
	if !validAt(coords, e+1) || !validAt(coords, e+2) {
		return fmt.Errorf("%w: need two valid points after index %d to extrapolate backward", ErrPrecondition, e)
	}
	if err := fillable(bad, s, e); err != nil {
		return err
	}

	known := coords[e+1]
	delta := [2]float64{known[0] - coords[e+2][0], known[1] - coords[e+2][1]}
	count := e - s + 1
	for k := 1; k <= count; k++ {
		coords[e+1-k] = [2]float64{known[0] + float64(k)*delta[0], known[1] + float64(k)*delta[1]}
	}
	markRepaired(bad, flags, s, e, survey.FlagExtrapolated)
	return nil
}

// extrapolateForward fills [s, e] walking forward from coords[s-2] and
// coords[s-1].
func extrapolateForward(coords [][2]float64, bad []bool, flags []uint8, s, e int) error {
	if !validAt(coords, s-2) || !validAt(coords, s-1) {
		return fmt.Errorf("%w: need two valid points before index %d to extrapolate forward", ErrPrecondition, s)
	}
	if err := fillable(bad, s, e); err != nil {
		return err
	}

	known := coords[s-1]
	delta := [2]float64{known[0] - coords[s-2][0], known[1] - coords[s-2][1]}
	count := e - s + 1
	for k := 1; k <= count; k++ {
		coords[s-1+k] = [2]float64{known[0] + float64(k)*delta[0], known[1] + float64(k)*delta[1]}
	}
	markRepaired(bad, flags, s, e, survey.FlagExtrapolated)
	return nil
}

// interpolateRun fills [s, e] linearly between coords[s-1] and coords[e+1].
func interpolateRun(coords [][2]float64, bad []bool, flags []uint8, s, e int) error {
	if !validAt(coords, s-1) || !validAt(coords, e+1) {
		return fmt.Errorf("%w: run [%d,%d] lacks valid neighbours to interpolate between", ErrPrecondition, s, e)
	}
	if err := fillable(bad, s, e); err != nil {
		return err
	}

	a, b := coords[s-1], coords[e+1]
	n := float64(e - s + 1)
	for k := 1; k <= e-s+1; k++ {
		w := float64(k)
		coords[s-1+k] = [2]float64{
			((n-w+1)*a[0] + w*b[0]) / (n + 1),
			((n-w+1)*a[1] + w*b[1]) / (n + 1),
		}
	}
	markRepaired(bad, flags, s, e, survey.FlagInterpolated)
	return nil
}

func markRepaired(bad []bool, flags []uint8, s, e int, flag uint8) {
	for p := s; p <= e; p++ {
		bad[p] = false
		flags[p] = flag
	}
}
