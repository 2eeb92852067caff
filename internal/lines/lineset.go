// Package lines implements line-organized access to point-sampled survey
// datasets: membership masks, per-line variable queries, representative
// sample points, hull and multi-line geometry derivation, and coordinate
// repair.
package lines

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
	"github.com/mcgarnagle38/geophys-utils/internal/linecache"
)

// LineSet wraps a dataset with line semantics. The line and line_index
// arrays are fetched once per instance and resolved through the cache tiers
// when a resolver is configured.
type LineSet struct {
	ds       survey.Dataset
	resolver *linecache.Resolver
	memoize  bool

	mu        sync.Mutex
	line      []int32
	lineIndex []int32
	coords    [][2]float64
}

// Options configures LineSet construction.
type Options struct {
	// Resolver supplies the cache tiers below instance memory. Nil means
	// every array fetch past the first goes to the source.
	Resolver *linecache.Resolver

	// DisableMemoize turns off per-instance retention of the line arrays,
	// for callers that hold many datasets open at once.
	DisableMemoize bool
}

// New creates a LineSet over ds.
func New(ds survey.Dataset, opts Options) *LineSet {
	return &LineSet{
		ds:       ds,
		resolver: opts.Resolver,
		memoize:  !opts.DisableMemoize,
	}
}

// Dataset returns the underlying dataset.
func (ls *LineSet) Dataset() survey.Dataset { return ls.ds }

// Lines returns the ordered distinct line numbers of the dataset.
func (ls *LineSet) Lines() ([]int32, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.line != nil {
		return ls.line, nil
	}

	line, err := ls.resolveArray("line", ls.ds.ReadLineNumbers)
	if err != nil {
		return nil, err
	}
	if ls.memoize {
		ls.line = line
	}
	return line, nil
}

// LineIndex returns the per-point line ownership array: position i holds the
// index into Lines() of the line that owns point i. A dataset with a single
// line and no stored lookup gets an all-zero array synthesized; multiple
// lines without a per-point lookup is the legacy range-indexing layout and
// fails with ErrLegacyIndexFormat.
func (ls *LineSet) LineIndex() ([]int32, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.lineIndex != nil {
		return ls.lineIndex, nil
	}

	lineIndex, err := ls.resolveArray("line_index", ls.computeLineIndex)
	if err != nil {
		return nil, err
	}
	if ls.memoize {
		ls.lineIndex = lineIndex
	}
	return lineIndex, nil
}

func (ls *LineSet) computeLineIndex() ([]int32, error) {
	line, err := ls.ds.ReadLineNumbers()
	if err != nil {
		return nil, err
	}

	lineIndex, err := ls.ds.ReadLineIndex()
	if errors.Is(err, survey.ErrMissingVariable) {
		if len(line) == 1 {
			// Single-line dataset: every point belongs to line 0.
			return make([]int32, ls.ds.PointCount()), nil
		}
		return nil, fmt.Errorf("dataset %s: %w", ls.ds.Identity(), survey.ErrLegacyIndexFormat)
	}
	if err != nil {
		return nil, err
	}

	if len(lineIndex) != ls.ds.PointCount() {
		return nil, fmt.Errorf("line_index length %d does not match point count %d", len(lineIndex), ls.ds.PointCount())
	}
	for i, li := range lineIndex {
		if li < 0 || int(li) >= len(line) {
			return nil, fmt.Errorf("line_index[%d] = %d outside line table of %d entries", i, li, len(line))
		}
	}
	return lineIndex, nil
}

func (ls *LineSet) resolveArray(name string, compute func() ([]int32, error)) ([]int32, error) {
	if ls.resolver == nil {
		return compute()
	}

	key := linecache.ArrayKey(ls.ds.Identity(), name)
	data, err := ls.resolver.Resolve(key, func() ([]byte, error) {
		vals, err := compute()
		if err != nil {
			return nil, err
		}
		return linecache.EncodeInt32(vals), nil
	})
	if err != nil {
		return nil, err
	}
	return linecache.DecodeInt32(data)
}

// coordinates fetches and retains the dataset coordinates.
func (ls *LineSet) coordinates() ([][2]float64, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.coords != nil {
		return ls.coords, nil
	}
	coords, err := ls.ds.Coordinates()
	if err != nil {
		return nil, err
	}
	if ls.memoize {
		ls.coords = coords
	}
	return coords, nil
}

// InvalidateCoordinates drops the retained coordinate array. Repair calls it
// after rewriting coordinates on the source.
func (ls *LineSet) InvalidateCoordinates() {
	ls.mu.Lock()
	ls.coords = nil
	ls.mu.Unlock()
}

// lineBlocks returns the start and inclusive end point index of each
// contiguous line block, in traversal order. Derived from the first
// occurrence of each distinct line_index value.
func lineBlocks(lineIndex []int32, pointCount, lineCount int) (starts, ends []int) {
	seen := make(map[int32]bool, lineCount)
	for p, li := range lineIndex {
		if !seen[li] {
			seen[li] = true
			starts = append(starts, p)
		}
	}
	if len(starts) != lineCount {
		log.Printf("found %d line blocks for %d lines", len(starts), lineCount)
	}

	ends = make([]int, len(starts))
	for i := 0; i < len(starts)-1; i++ {
		ends[i] = starts[i+1] - 1
	}
	if len(ends) > 0 {
		ends[len(ends)-1] = pointCount - 1
	}
	return starts, ends
}
