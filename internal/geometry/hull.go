// Package geometry derives vector products from line-organized survey
// coordinates: the multi-line path representation, convex hulls, and the
// buffered/simplified concave hull. All geometric heavy lifting is delegated
// to GEOS.
package geometry

import (
	"errors"
	"fmt"

	"github.com/paulsmith/gogeos/geos"
)

// ErrPrecondition marks caller-contract violations, as opposed to geometry
// failures inside GEOS.
var ErrPrecondition = errors.New("precondition violated")

// Buffer end cap and join styles. GEOS buffering through this binding always
// uses the round styles; the fields exist so callers can state intent, and
// anything else is rejected up front.
const (
	CapRound  = 1
	JoinRound = 1
)

// HullOptions controls concave hull derivation.
type HullOptions struct {
	// BufferDistance is the outward kerf applied before simplification.
	// Doubled on every retry while the result stays over the caps.
	BufferDistance float64

	// Offset is the final distance of the hull from the original lines.
	Offset float64

	// Tolerance is the simplification tolerance.
	Tolerance float64

	CapStyle  int
	JoinStyle int

	// MaxPolygons and MaxVertices cap the result's complexity; 0 disables
	// the corresponding check.
	MaxPolygons int
	MaxVertices int

	// MaxIterations bounds the buffer-doubling retries. 0 means the
	// default of 16.
	MaxIterations int
}

// DefaultHullOptions mirrors the upstream survey defaults.
func DefaultHullOptions() HullOptions {
	return HullOptions{
		BufferDistance: 0.02,
		Offset:         0.0005,
		Tolerance:      0.0005,
		CapStyle:       CapRound,
		JoinStyle:      JoinRound,
		MaxPolygons:    5,
		MaxVertices:    1000,
	}
}

// Transformer reprojects coordinate arrays into a target reference system.
// A nil Transformer means native coordinates.
type Transformer interface {
	Transform(pts [][2]float64) ([][2]float64, error)
}

// ApplyTransform runs pts through tr, passing them through untouched when tr
// is nil.
func ApplyTransform(tr Transformer, pts [][2]float64) ([][2]float64, error) {
	if tr == nil {
		return pts, nil
	}
	return tr.Transform(pts)
}

func toCoords(pts [][2]float64) []geos.Coord {
	coords := make([]geos.Coord, len(pts))
	for i, p := range pts {
		coords[i] = geos.Coord{X: p[0], Y: p[1]}
	}
	return coords
}

// MultiLine builds a multi-line geometry from per-line vertex paths, each
// simplified by tolerance. Paths with fewer than two vertices must be
// filtered out by the caller.
func MultiLine(paths [][][2]float64, tolerance float64) (*geos.Geometry, error) {
	lineStrings := make([]*geos.Geometry, 0, len(paths))
	for i, path := range paths {
		ls, err := geos.NewLineString(toCoords(path)...)
		if err != nil {
			return nil, fmt.Errorf("failed to build line %d: %w", i, err)
		}
		if tolerance > 0 {
			ls, err = ls.Simplify(tolerance)
			if err != nil {
				return nil, fmt.Errorf("failed to simplify line %d: %w", i, err)
			}
		}
		lineStrings = append(lineStrings, ls)
	}
	mls, err := geos.NewCollection(geos.MULTILINESTRING, lineStrings...)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble multi-line geometry: %w", err)
	}
	return mls, nil
}

// ConvexHull computes the convex hull of a point set.
func ConvexHull(pts [][2]float64) (*geos.Geometry, error) {
	points := make([]*geos.Geometry, len(pts))
	for i, p := range pts {
		pt, err := geos.NewPoint(geos.Coord{X: p[0], Y: p[1]})
		if err != nil {
			return nil, fmt.Errorf("failed to build point %d: %w", i, err)
		}
		points[i] = pt
	}
	cloud, err := geos.NewCollection(geos.MULTIPOINT, points...)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble point cloud: %w", err)
	}
	hull, err := cloud.ConvexHull()
	if err != nil {
		return nil, fmt.Errorf("convex hull failed: %w", err)
	}
	return hull, nil
}

// PolygonFromRing builds a polygon from a closed ring, used for bounding-box
// fallbacks.
func PolygonFromRing(ring [][2]float64) (*geos.Geometry, error) {
	return geos.NewPolygon(toCoords(ring))
}

// ConcaveHull derives a concave hull from a multi-line geometry: buffer
// outward, simplify, buffer back inward to the requested offset, simplify,
// discard nested polygons, and retry with a doubled buffer distance while
// the result exceeds the polygon or vertex caps.
func ConcaveHull(multiLine *geos.Geometry, opts HullOptions) (*geos.Geometry, error) {
	if opts.MaxPolygons > 0 && opts.BufferDistance <= 0 {
		return nil, fmt.Errorf("%w: buffer distance must be greater than zero when the polygon count is capped", ErrPrecondition)
	}
	if opts.CapStyle != CapRound || opts.JoinStyle != JoinRound {
		return nil, fmt.Errorf("%w: only round cap and join styles are supported", ErrPrecondition)
	}

	maxIterations := opts.MaxIterations
	if maxIterations <= 0 {
		maxIterations = 16
	}

	bufferDistance := opts.BufferDistance
	for i := 0; i < maxIterations; i++ {
		hull, err := offsetGeometry(multiLine, bufferDistance, opts.Offset, opts.Tolerance)
		if err != nil {
			return nil, err
		}

		polygons, vertices, err := shapeComplexity(hull)
		if err != nil {
			return nil, err
		}
		if (opts.MaxPolygons > 0 && polygons > opts.MaxPolygons) ||
			(opts.MaxVertices > 0 && vertices > opts.MaxVertices) {
			bufferDistance *= 2
			continue
		}
		return hull, nil
	}
	return nil, fmt.Errorf("concave hull still over complexity caps after %d buffer doublings", maxIterations)
}

func offsetGeometry(geom *geos.Geometry, bufferDistance, offset, tolerance float64) (*geos.Geometry, error) {
	out, err := geom.Buffer(bufferDistance)
	if err != nil {
		return nil, fmt.Errorf("outward buffer failed: %w", err)
	}
	out, err = out.Simplify(tolerance)
	if err != nil {
		return nil, fmt.Errorf("simplify after outward buffer failed: %w", err)
	}
	out, err = out.Buffer(offset - bufferDistance)
	if err != nil {
		return nil, fmt.Errorf("inward buffer failed: %w", err)
	}
	out, err = out.Simplify(tolerance)
	if err != nil {
		return nil, fmt.Errorf("simplify after inward buffer failed: %w", err)
	}
	return dropNestedPolygons(out)
}

// dropNestedPolygons strips interior rings and, for multi-polygons, removes
// any polygon contained within another, keeping the larger of each pair.
func dropNestedPolygons(geom *geos.Geometry) (*geos.Geometry, error) {
	t, err := geom.Type()
	if err != nil {
		return nil, err
	}

	switch t {
	case geos.POLYGON:
		return exteriorOnly(geom)
	case geos.MULTIPOLYGON:
		count, err := geom.NGeometry()
		if err != nil {
			return nil, err
		}

		kept := make([]*geos.Geometry, 0, count)
		for i := 0; i < count; i++ {
			sub, err := geom.Geometry(i)
			if err != nil {
				return nil, err
			}
			polygon, err := exteriorOnly(sub)
			if err != nil {
				return nil, err
			}

			contained := false
			for j, existing := range kept {
				if contained, err = existing.Contains(polygon); err != nil {
					return nil, err
				} else if contained {
					break
				}
				containsExisting, err := polygon.Contains(existing)
				if err != nil {
					return nil, err
				}
				if containsExisting {
					kept = append(kept[:j], kept[j+1:]...)
					break
				}
			}
			if !contained {
				kept = append(kept, polygon)
			}
		}

		if len(kept) == 1 {
			return kept[0], nil
		}
		return geos.NewCollection(geos.MULTIPOLYGON, kept...)
	default:
		return nil, fmt.Errorf("unexpected geometry type after buffering: %v", t)
	}
}

// exteriorOnly rebuilds a polygon from its exterior ring, discarding holes.
func exteriorOnly(polygon *geos.Geometry) (*geos.Geometry, error) {
	shell, err := polygon.Shell()
	if err != nil {
		return nil, err
	}
	coords, err := ringCoords(shell)
	if err != nil {
		return nil, err
	}
	return geos.NewPolygon(coords)
}

// ExteriorRings extracts the outer ring of every polygon in a POLYGON or
// MULTIPOLYGON geometry, closed, as plain coordinate pairs.
func ExteriorRings(geom *geos.Geometry) ([][][2]float64, error) {
	t, err := geom.Type()
	if err != nil {
		return nil, err
	}

	var polygons []*geos.Geometry
	switch t {
	case geos.POLYGON:
		polygons = []*geos.Geometry{geom}
	case geos.MULTIPOLYGON:
		count, err := geom.NGeometry()
		if err != nil {
			return nil, err
		}
		for i := 0; i < count; i++ {
			sub, err := geom.Geometry(i)
			if err != nil {
				return nil, err
			}
			polygons = append(polygons, sub)
		}
	default:
		return nil, fmt.Errorf("expected polygonal geometry, got %v", t)
	}

	rings := make([][][2]float64, len(polygons))
	for i, polygon := range polygons {
		shell, err := polygon.Shell()
		if err != nil {
			return nil, err
		}
		coords, err := ringCoords(shell)
		if err != nil {
			return nil, err
		}
		ring := make([][2]float64, len(coords))
		for j, c := range coords {
			ring[j] = [2]float64{c.X, c.Y}
		}
		rings[i] = ring
	}
	return rings, nil
}

func ringCoords(ring *geos.Geometry) ([]geos.Coord, error) {
	n, err := ring.NPoint()
	if err != nil {
		return nil, err
	}
	coords := make([]geos.Coord, n)
	for i := 0; i < n; i++ {
		p, err := ring.Point(i)
		if err != nil {
			return nil, err
		}
		x, err := p.X()
		if err != nil {
			return nil, err
		}
		y, err := p.Y()
		if err != nil {
			return nil, err
		}
		coords[i] = geos.Coord{X: x, Y: y}
	}
	return coords, nil
}

// shapeComplexity counts polygons and exterior-ring vertices of a hull.
func shapeComplexity(geom *geos.Geometry) (polygons, vertices int, err error) {
	t, err := geom.Type()
	if err != nil {
		return 0, 0, err
	}

	switch t {
	case geos.POLYGON:
		shell, err := geom.Shell()
		if err != nil {
			return 0, 0, err
		}
		n, err := shell.NPoint()
		if err != nil {
			return 0, 0, err
		}
		return 1, n, nil
	case geos.MULTIPOLYGON:
		count, err := geom.NGeometry()
		if err != nil {
			return 0, 0, err
		}
		total := 0
		for i := 0; i < count; i++ {
			sub, err := geom.Geometry(i)
			if err != nil {
				return 0, 0, err
			}
			shell, err := sub.Shell()
			if err != nil {
				return 0, 0, err
			}
			n, err := shell.NPoint()
			if err != nil {
				return 0, 0, err
			}
			total += n
		}
		return count, total, nil
	default:
		return 0, 0, fmt.Errorf("unexpected geometry type after buffering: %v", t)
	}
}
