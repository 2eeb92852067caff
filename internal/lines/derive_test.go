package lines

import (
	"testing"

	"github.com/paulsmith/gogeos/geos"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
)

func TestMultiLineSkipsInvalidPoints(t *testing.T) {
	ds := &survey.Memory{
		ID: "gappy",
		Coords: [][2]float64{
			{0, 0}, {nan(), nan()}, {2, 0},
			{10, 10}, {11, 10},
		},
		LineNumbers: []int32{5, 9},
		LineIdx:     []int32{0, 0, 0, 1, 1},
	}
	ls := New(ds, Options{})

	mls, err := ls.MultiLine(nil, 0)
	if err != nil {
		t.Fatalf("MultiLine: %v", err)
	}

	n, err := mls.NGeometry()
	if err != nil {
		t.Fatalf("NGeometry: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 line strings, got %d", n)
	}

	// Line 5 lost its NaN point.
	first, err := mls.Geometry(0)
	if err != nil {
		t.Fatalf("Geometry: %v", err)
	}
	np, err := first.NPoint()
	if err != nil {
		t.Fatalf("NPoint: %v", err)
	}
	if np != 2 {
		t.Fatalf("expected 2 vertices after dropping invalid point, got %d", np)
	}
}

func TestMultiLineDropsDegenerateLines(t *testing.T) {
	// Line 9 has a single valid point and cannot form a line string.
	ds := &survey.Memory{
		ID: "degenerate",
		Coords: [][2]float64{
			{0, 0}, {1, 0}, {2, 0},
			{10, 10}, {nan(), nan()},
		},
		LineNumbers: []int32{5, 9},
		LineIdx:     []int32{0, 0, 0, 1, 1},
	}
	ls := New(ds, Options{})

	mls, err := ls.MultiLine(nil, 0)
	if err != nil {
		t.Fatalf("MultiLine: %v", err)
	}
	n, err := mls.NGeometry()
	if err != nil {
		t.Fatalf("NGeometry: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 line string, got %d", n)
	}
}

func TestConvexHullFallsBackToExtent(t *testing.T) {
	// Sample point derivation fails on the legacy index format; the hull
	// degrades to the bounding rectangle instead of erroring out.
	ds := &survey.Memory{
		ID: "legacy",
		Coords: [][2]float64{
			{0, 0}, {1, 0},
			{10, 10}, {11, 10},
		},
		LineNumbers: []int32{5, 9},
		NoLineIndex: true,
	}
	ls := New(ds, Options{})

	hull, err := ls.ConvexHull(nil)
	if err != nil {
		t.Fatalf("ConvexHull fallback: %v", err)
	}
	typ, err := hull.Type()
	if err != nil {
		t.Fatalf("Type: %v", err)
	}
	if typ != geos.POLYGON {
		t.Fatalf("expected polygon fallback, got %v", typ)
	}
}
