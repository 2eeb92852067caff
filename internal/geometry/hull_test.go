package geometry

import (
	"errors"
	"testing"

	"github.com/paulsmith/gogeos/geos"
)

func TestConcaveHullPreconditions(t *testing.T) {
	// A capped polygon count requires a positive buffer distance.
	opts := DefaultHullOptions()
	opts.BufferDistance = 0
	if _, err := ConcaveHull(nil, opts); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}

	opts = DefaultHullOptions()
	opts.CapStyle = 2
	if _, err := ConcaveHull(nil, opts); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition for non-round cap style, got %v", err)
	}
}

func TestMultiLineBuildsCollection(t *testing.T) {
	paths := [][][2]float64{
		{{0, 0}, {1, 0}, {2, 0}},
		{{0, 1}, {2, 1}},
	}
	mls, err := MultiLine(paths, 0)
	if err != nil {
		t.Fatalf("MultiLine: %v", err)
	}

	typ, err := mls.Type()
	if err != nil {
		t.Fatalf("Type: %v", err)
	}
	if typ != geos.MULTILINESTRING {
		t.Fatalf("unexpected geometry type: %v", typ)
	}
	n, err := mls.NGeometry()
	if err != nil {
		t.Fatalf("NGeometry: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 line strings, got %d", n)
	}
}

func TestConvexHullOfUnitSquare(t *testing.T) {
	pts := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0.5, 0.5}}
	hull, err := ConvexHull(pts)
	if err != nil {
		t.Fatalf("ConvexHull: %v", err)
	}

	area, err := hull.Area()
	if err != nil {
		t.Fatalf("Area: %v", err)
	}
	if area < 0.999 || area > 1.001 {
		t.Fatalf("hull area = %v, want 1", area)
	}
}

func TestExteriorRingsOfPolygon(t *testing.T) {
	polygon, err := PolygonFromRing([][2]float64{
		{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0},
	})
	if err != nil {
		t.Fatalf("PolygonFromRing: %v", err)
	}

	rings, err := ExteriorRings(polygon)
	if err != nil {
		t.Fatalf("ExteriorRings: %v", err)
	}
	if len(rings) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(rings))
	}
	ring := rings[0]
	if len(ring) != 5 {
		t.Fatalf("expected a closed 5-point ring, got %d points", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("ring not closed: %v ... %v", ring[0], ring[len(ring)-1])
	}

	mls, err := MultiLine([][][2]float64{{{0, 0}, {1, 0}}}, 0)
	if err != nil {
		t.Fatalf("MultiLine: %v", err)
	}
	if _, err := ExteriorRings(mls); err == nil {
		t.Fatal("expected an error for non-polygonal input")
	}
}

func TestConcaveHullSimpleLine(t *testing.T) {
	mls, err := MultiLine([][][2]float64{
		{{0, 0}, {1, 0}},
		{{0, 0.01}, {1, 0.01}},
	}, 0)
	if err != nil {
		t.Fatalf("MultiLine: %v", err)
	}

	opts := DefaultHullOptions()
	hull, err := ConcaveHull(mls, opts)
	if err != nil {
		t.Fatalf("ConcaveHull: %v", err)
	}

	typ, err := hull.Type()
	if err != nil {
		t.Fatalf("Type: %v", err)
	}
	if typ != geos.POLYGON {
		t.Fatalf("expected a single polygon for adjacent lines, got %v", typ)
	}
}
