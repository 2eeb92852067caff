package lines

import (
	"testing"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

func TestQueryReturnsVariablesPerLine(t *testing.T) {
	ls := New(twoLineDataset(), Options{})

	it, err := ls.Query(QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	got := make(map[int32]LineData)
	for it.Next() {
		got[it.Data().Line] = it.Data()
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	mag := got[5].Variables["mag"]
	if len(mag) != 3 || mag[0] != 1 || mag[2] != 3 {
		t.Fatalf("unexpected mag values for line 5: %v", mag)
	}
	if len(got[9].Coordinates) != 2 {
		t.Fatalf("unexpected coordinate count for line 9: %d", len(got[9].Coordinates))
	}
}

func TestQuerySubsamplingKeepsEndpoints(t *testing.T) {
	// A dense line: 101 points over 10 units.
	coords := make([][2]float64, 101)
	vals := make([]float64, 101)
	lineIdx := make([]int32, 101)
	for i := range coords {
		coords[i] = [2]float64{float64(i) * 0.1, 0}
		vals[i] = float64(i)
	}
	ds := &survey.Memory{
		ID:          "dense",
		Coords:      coords,
		Vars:        map[string][]float64{"mag": vals},
		VarOrder:    []string{"mag"},
		LineNumbers: []int32{1},
		LineIdx:     lineIdx,
	}
	ls := New(ds, Options{})

	it, err := ls.Query(QueryOptions{SubsamplingDistance: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !it.Next() {
		t.Fatalf("expected one line, got none (err=%v)", it.Err())
	}
	data := it.Data()

	if len(data.Positions) >= 101 {
		t.Fatalf("subsampling kept all %d points", len(data.Positions))
	}
	if data.Positions[0] != 0 {
		t.Fatalf("first point dropped: %v", data.Positions[0])
	}
	if data.Positions[len(data.Positions)-1] != 100 {
		t.Fatal("last point must always be kept")
	}
	for i := 1; i < len(data.Positions); i++ {
		if data.Positions[i] <= data.Positions[i-1] {
			t.Fatalf("positions not strictly increasing at %d: %v", i, data.Positions)
		}
	}
}

func TestQueryDefaultBoundsExcludeInvalidCoordinates(t *testing.T) {
	// Without explicit bounds the query falls back to the dataset extent,
	// which never contains NaN points.
	ds := &survey.Memory{
		ID:          "gappy",
		Coords:      [][2]float64{{0, 0}, {nan(), nan()}, {2, 0}},
		Vars:        map[string][]float64{"mag": {1, 2, 3}},
		VarOrder:    []string{"mag"},
		LineNumbers: []int32{1},
		LineIdx:     []int32{0, 0, 0},
	}
	ls := New(ds, Options{})

	it, err := ls.Query(QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !it.Next() {
		t.Fatalf("expected one line, got none (err=%v)", it.Err())
	}
	data := it.Data()

	if len(data.Positions) != 2 || data.Positions[0] != 0 || data.Positions[1] != 2 {
		t.Fatalf("expected positions [0 2], got %v", data.Positions)
	}
	for _, c := range data.Coordinates {
		if c[0] != c[0] || c[1] != c[1] {
			t.Fatalf("NaN coordinate in query output: %v", data.Coordinates)
		}
	}
}

func TestQuerySubsamplingRetentionMonotonic(t *testing.T) {
	// Coarser subsampling distances never keep more points.
	coords := make([][2]float64, 101)
	vals := make([]float64, 101)
	lineIdx := make([]int32, 101)
	for i := range coords {
		coords[i] = [2]float64{float64(i) * 0.1, 0}
		vals[i] = float64(i)
	}
	ds := &survey.Memory{
		ID:          "dense",
		Coords:      coords,
		Vars:        map[string][]float64{"mag": vals},
		VarOrder:    []string{"mag"},
		LineNumbers: []int32{1},
		LineIdx:     lineIdx,
	}
	ls := New(ds, Options{})

	prev := 102
	for _, distance := range []float64{0.1, 0.5, 1, 2, 5} {
		it, err := ls.Query(QueryOptions{SubsamplingDistance: distance})
		if err != nil {
			t.Fatalf("Query(distance=%v): %v", distance, err)
		}
		if !it.Next() {
			t.Fatalf("expected one line at distance %v (err=%v)", distance, it.Err())
		}
		kept := len(it.Data().Positions)
		if kept > prev {
			t.Fatalf("distance %v kept %d points, more than %d at the finer distance", distance, kept, prev)
		}
		prev = kept
	}
}

func TestQuerySparseLineNotSubsampled(t *testing.T) {
	// Points are further apart than the subsampling distance; every point
	// survives.
	ls := New(twoLineDataset(), Options{})

	it, err := ls.Query(QueryOptions{Lines: []int32{5}, SubsamplingDistance: 0.5})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !it.Next() {
		t.Fatalf("expected line 5, got none (err=%v)", it.Err())
	}
	if got := len(it.Data().Positions); got != 3 {
		t.Fatalf("expected all 3 points kept, got %d", got)
	}
}
