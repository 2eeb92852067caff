package lines

import (
	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

// MaskOptions selects which lines to mask and how.
type MaskOptions struct {
	// Lines restricts iteration to these line numbers. Nil means all lines.
	// Unknown line numbers are silently dropped.
	Lines []int32

	// Bounds restricts masks to points inside the rectangle. Nil means the
	// whole dataset. Lines with no points inside are skipped entirely.
	Bounds *survey.Bounds

	// Contiguous widens each subset-restricted mask to the full inclusive
	// span between its first and last selected point, recovering points a
	// line drops in and out of the bounds around.
	Contiguous bool
}

// MaskIter yields one boolean membership mask per selected line. The mask
// buffer is reused between iterations; callers that retain a mask across
// Next calls must copy it.
type MaskIter struct {
	candidates []int32
	positions  map[int32]int32
	lineIndex  []int32
	subset     []bool
	contiguous bool

	buf  []bool
	i    int
	line int32
}

// Masks returns an iterator over per-line membership masks.
func (ls *LineSet) Masks(opts MaskOptions) (*MaskIter, error) {
	line, err := ls.Lines()
	if err != nil {
		return nil, err
	}
	lineIndex, err := ls.LineIndex()
	if err != nil {
		return nil, err
	}

	positions := make(map[int32]int32, len(line))
	for i, n := range line {
		positions[n] = int32(i)
	}

	var subset []bool
	if opts.Bounds != nil {
		if subset, err = ls.ds.SpatialMask(*opts.Bounds); err != nil {
			return nil, err
		}
	}

	requested := opts.Lines
	if requested == nil {
		requested = line
	}

	// Restrict candidates to lines that exist, and when a subset applies,
	// to lines that actually own points inside it.
	var inSubset map[int32]bool
	if subset != nil {
		inSubset = make(map[int32]bool, len(line))
		for p, li := range lineIndex {
			if subset[p] {
				inSubset[li] = true
			}
		}
	}
	candidates := make([]int32, 0, len(requested))
	for _, n := range requested {
		li, known := positions[n]
		if !known {
			continue
		}
		if inSubset != nil && !inSubset[li] {
			continue
		}
		candidates = append(candidates, n)
	}

	return &MaskIter{
		candidates: candidates,
		positions:  positions,
		lineIndex:  lineIndex,
		subset:     subset,
		contiguous: opts.Contiguous,
		buf:        make([]bool, len(lineIndex)),
	}, nil
}

// Next advances to the next non-empty line mask.
func (it *MaskIter) Next() bool {
	for it.i < len(it.candidates) {
		n := it.candidates[it.i]
		it.i++
		li := it.positions[n]

		for p := range it.buf {
			it.buf[p] = false
		}
		first, last := -1, -1
		for p, owner := range it.lineIndex {
			if owner != li {
				continue
			}
			if it.subset != nil && !it.subset[p] {
				continue
			}
			it.buf[p] = true
			if first < 0 {
				first = p
			}
			last = p
		}
		if first < 0 {
			continue
		}

		if it.contiguous && it.subset != nil {
			for p := first; p <= last; p++ {
				it.buf[p] = true
			}
		}

		it.line = n
		return true
	}
	return false
}

// Line returns the line number of the current mask.
func (it *MaskIter) Line() int32 { return it.line }

// Mask returns the current membership mask. The slice is reused by Next.
func (it *MaskIter) Mask() []bool { return it.buf }
