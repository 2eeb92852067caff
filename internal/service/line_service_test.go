package service

import (
	"testing"

	"github.com/mcgarnagle38/geophys-utils/internal/geometry"
)

func TestHullOverridesKeepDefaultsWhenAbsent(t *testing.T) {
	defaults := geometry.HullOptions{
		BufferDistance: 0.02,
		Offset:         0.0005,
		Tolerance:      0.0005,
		MaxPolygons:    5,
		MaxVertices:    1000,
	}

	got := HullOverrides{}.apply(defaults)
	if got != defaults {
		t.Fatalf("empty overrides changed options: %+v", got)
	}
}

func TestHullOverridesExplicitZeroDisablesCaps(t *testing.T) {
	defaults := geometry.HullOptions{
		BufferDistance: 0.02,
		MaxPolygons:    5,
		MaxVertices:    1000,
	}

	zero := 0
	got := HullOverrides{MaxPolygons: &zero, MaxVertices: &zero}.apply(defaults)
	if got.MaxPolygons != 0 || got.MaxVertices != 0 {
		t.Fatalf("explicit zero caps not applied: %+v", got)
	}
	if got.BufferDistance != defaults.BufferDistance {
		t.Fatalf("unrelated field changed: %+v", got)
	}
}

func TestHullOverridesReplaceValues(t *testing.T) {
	defaults := geometry.HullOptions{
		BufferDistance: 0.02,
		Offset:         0.0005,
		Tolerance:      0.0005,
		MaxPolygons:    5,
		MaxVertices:    1000,
	}

	bd := 0.1
	polys := 2
	got := HullOverrides{BufferDistance: &bd, MaxPolygons: &polys}.apply(defaults)
	if got.BufferDistance != 0.1 || got.MaxPolygons != 2 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.Offset != defaults.Offset || got.MaxVertices != defaults.MaxVertices {
		t.Fatalf("untouched fields changed: %+v", got)
	}
}
