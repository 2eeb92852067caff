package lines

import (
	"math"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

// QueryOptions selects lines, variables and spatial scope for a per-line
// variable query.
type QueryOptions struct {
	// Lines restricts the query to these line numbers. Nil means all lines.
	Lines []int32

	// Variables names the per-point variables to fetch. Nil means every
	// point variable the dataset exposes.
	Variables []string

	// Bounds restricts the query spatially. Nil defaults to the dataset
	// extent, which drops points with invalid coordinates.
	Bounds *survey.Bounds

	// SubsamplingDistance thins each line to roughly one point per this
	// distance along the line, always keeping the last point. Zero disables
	// subsampling.
	SubsamplingDistance float64

	// Contiguous widens spatial selection per line, as in MaskOptions.
	Contiguous bool
}

// LineData is one line's worth of query results.
type LineData struct {
	Line        int32
	Positions   []int
	Coordinates [][2]float64
	Variables   map[string][]float64
}

// QueryIter yields per-line variable data.
type QueryIter struct {
	ls    *LineSet
	masks *MaskIter
	vars  []string

	coords    [][2]float64
	subsample float64

	cur LineData
	err error
}

// Query returns an iterator over per-line variable data.
func (ls *LineSet) Query(opts QueryOptions) (*QueryIter, error) {
	vars := opts.Variables
	if vars == nil {
		vars = ls.ds.PointVariables()
	}

	bounds := opts.Bounds
	if bounds == nil {
		ext := ls.ds.Extent()
		bounds = &ext
	}

	masks, err := ls.Masks(MaskOptions{
		Lines:      opts.Lines,
		Bounds:     bounds,
		Contiguous: opts.Contiguous,
	})
	if err != nil {
		return nil, err
	}

	coords, err := ls.coordinates()
	if err != nil {
		return nil, err
	}

	return &QueryIter{
		ls:        ls,
		masks:     masks,
		vars:      vars,
		coords:    coords,
		subsample: opts.SubsamplingDistance,
	}, nil
}

// Next advances to the next line with data. After it returns false, check
// Err.
func (it *QueryIter) Next() bool {
	if it.err != nil {
		return false
	}
	for it.masks.Next() {
		mask := it.masks.Mask()
		positions := make([]int, 0, 64)
		for p, in := range mask {
			if in {
				positions = append(positions, p)
			}
		}
		if len(positions) == 0 {
			continue
		}

		if it.subsample > 0 {
			positions = subsamplePositions(positions, it.coords, it.subsample)
		}

		lineCoords := make([][2]float64, len(positions))
		for i, p := range positions {
			lineCoords[i] = it.coords[p]
		}

		values := make(map[string][]float64, len(it.vars))
		for _, name := range it.vars {
			vals, err := it.ls.ds.VariableAt(name, positions)
			if err != nil {
				it.err = err
				return false
			}
			values[name] = vals
		}

		it.cur = LineData{
			Line:        it.masks.Line(),
			Positions:   positions,
			Coordinates: lineCoords,
			Variables:   values,
		}
		return true
	}
	return false
}

// Data returns the current line's results.
func (it *QueryIter) Data() LineData { return it.cur }

// Err returns the first error encountered during iteration.
func (it *QueryIter) Err() error { return it.err }

// subsamplePositions keeps every stride-th position plus the last one. The
// stride is derived from the straight-line distance between the first and
// last selected point, so dense lines thin more aggressively than sparse
// ones.
func subsamplePositions(positions []int, coords [][2]float64, distance float64) []int {
	n := len(positions)
	first := coords[positions[0]]
	last := coords[positions[n-1]]
	length := math.Hypot(last[0]-first[0], last[1]-first[1])

	stride := int(float64(n) / math.Max(1, length/distance))
	if stride < 1 {
		stride = 1
	}

	kept := make([]int, 0, n/stride+2)
	for i := 0; i < n; i += stride {
		kept = append(kept, positions[i])
	}
	if kept[len(kept)-1] != positions[n-1] {
		kept = append(kept, positions[n-1])
	}
	return kept
}
