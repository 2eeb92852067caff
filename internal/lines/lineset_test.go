package lines

import (
	"errors"
	"math"
	"testing"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

func nan() float64 { return math.NaN() }

// twoLineDataset has lines 5 and 9 over five points: the first three belong
// to line 5, the last two to line 9.
func twoLineDataset() *survey.Memory {
	return &survey.Memory{
		ID: "two-line",
		Coords: [][2]float64{
			{0, 0}, {1, 0}, {2, 0},
			{10, 10}, {11, 10},
		},
		Vars: map[string][]float64{
			"mag": {1, 2, 3, 4, 5},
		},
		VarOrder:    []string{"mag"},
		LineNumbers: []int32{5, 9},
		LineIdx:     []int32{0, 0, 0, 1, 1},
	}
}

func TestLinesAndLineIndex(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	line, err := ls.Lines()
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(line) != 2 || line[0] != 5 || line[1] != 9 {
		t.Fatalf("unexpected lines: %v", line)
	}

	lineIndex, err := ls.LineIndex()
	if err != nil {
		t.Fatalf("LineIndex: %v", err)
	}
	want := []int32{0, 0, 0, 1, 1}
	for i, v := range want {
		if lineIndex[i] != v {
			t.Fatalf("lineIndex[%d] = %d, want %d", i, lineIndex[i], v)
		}
	}
}

func TestLineIndexSynthesizedForSingleLine(t *testing.T) {
	ds := &survey.Memory{
		ID:          "single",
		Coords:      [][2]float64{{0, 0}, {1, 0}, {2, 0}},
		LineNumbers: []int32{42},
		NoLineIndex: true,
	}
	ls := New(ds, Options{})

	lineIndex, err := ls.LineIndex()
	if err != nil {
		t.Fatalf("LineIndex: %v", err)
	}
	if len(lineIndex) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(lineIndex))
	}
	for i, v := range lineIndex {
		if v != 0 {
			t.Fatalf("lineIndex[%d] = %d, want 0", i, v)
		}
	}
}

func TestLineIndexLegacyFormatFails(t *testing.T) {
	ds := twoLineDataset()
	ds.NoLineIndex = true
	ls := New(ds, Options{})

	if _, err := ls.LineIndex(); !errors.Is(err, survey.ErrLegacyIndexFormat) {
		t.Fatalf("expected ErrLegacyIndexFormat, got %v", err)
	}
}

func TestLineIndexOutOfRangeFails(t *testing.T) {
	ds := twoLineDataset()
	ds.LineIdx = []int32{0, 0, 0, 1, 7}
	ls := New(ds, Options{})

	if _, err := ls.LineIndex(); err == nil {
		t.Fatal("expected error for out-of-range line index")
	}
}

func TestLineBlocks(t *testing.T) {
	starts, ends := lineBlocks([]int32{0, 0, 0, 1, 1}, 5, 2)
	if len(starts) != 2 || starts[0] != 0 || starts[1] != 3 {
		t.Fatalf("unexpected starts: %v", starts)
	}
	if len(ends) != 2 || ends[0] != 2 || ends[1] != 4 {
		t.Fatalf("unexpected ends: %v", ends)
	}
}
