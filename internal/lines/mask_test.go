package lines

import (
	"testing"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

func collectMasks(t *testing.T, it *MaskIter) map[int32][]bool {
	t.Helper()
	out := make(map[int32][]bool)
	for it.Next() {
		mask := make([]bool, len(it.Mask()))
		copy(mask, it.Mask())
		out[it.Line()] = mask
	}
	return out
}

func TestMasksPartitionDataset(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	it, err := ls.Masks(MaskOptions{})
	if err != nil {
		t.Fatalf("Masks: %v", err)
	}
	masks := collectMasks(t, it)
	if len(masks) != 2 {
		t.Fatalf("expected 2 masks, got %d", len(masks))
	}

	// Every point belongs to exactly one line.
	for p := 0; p < 5; p++ {
		count := 0
		for _, mask := range masks {
			if mask[p] {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("point %d covered by %d masks", p, count)
		}
	}

	want5 := []bool{true, true, true, false, false}
	for p, v := range want5 {
		if masks[5][p] != v {
			t.Fatalf("mask for line 5 wrong at %d", p)
		}
	}
}

func TestMasksUnknownLinesDropped(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	it, err := ls.Masks(MaskOptions{Lines: []int32{9, 777}})
	if err != nil {
		t.Fatalf("Masks: %v", err)
	}
	masks := collectMasks(t, it)
	if len(masks) != 1 {
		t.Fatalf("expected only line 9, got %v", masks)
	}
	if _, ok := masks[9]; !ok {
		t.Fatal("line 9 missing")
	}
}

func TestMasksSpatialSubset(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	// Bounds covering only the first two points of line 5.
	b := &survey.Bounds{MinX: -1, MinY: -1, MaxX: 1.5, MaxY: 1}
	it, err := ls.Masks(MaskOptions{Bounds: b})
	if err != nil {
		t.Fatalf("Masks: %v", err)
	}
	masks := collectMasks(t, it)
	if len(masks) != 1 {
		t.Fatalf("expected only line 5 with points in bounds, got %d masks", len(masks))
	}
	want := []bool{true, true, false, false, false}
	for p, v := range want {
		if masks[5][p] != v {
			t.Fatalf("subset mask wrong at %d", p)
		}
	}
}

func TestMasksContiguousWidensSubset(t *testing.T) {
	// Line 5 dips out of bounds at its middle point.
	ds := &survey.Memory{
		ID: "dip",
		Coords: [][2]float64{
			{0, 0}, {1, 5}, {2, 0},
			{10, 10}, {11, 10},
		},
		LineNumbers: []int32{5, 9},
		LineIdx:     []int32{0, 0, 0, 1, 1},
	}
	ls := New(ds, Options{})
	b := &survey.Bounds{MinX: -1, MinY: -1, MaxX: 5, MaxY: 1}

	it, err := ls.Masks(MaskOptions{Bounds: b})
	if err != nil {
		t.Fatalf("Masks: %v", err)
	}
	plain := collectMasks(t, it)
	if plain[5][1] {
		t.Fatal("point outside bounds should be excluded without contiguous")
	}

	it, err = ls.Masks(MaskOptions{Bounds: b, Contiguous: true})
	if err != nil {
		t.Fatalf("Masks: %v", err)
	}
	contiguous := collectMasks(t, it)

	// The contiguous mask is a superset of the plain mask and recovers the
	// interior gap.
	for p := range plain[5] {
		if plain[5][p] && !contiguous[5][p] {
			t.Fatalf("contiguous mask lost point %d", p)
		}
	}
	if !contiguous[5][1] {
		t.Fatal("contiguous mask should recover the interior point")
	}
}
