package lines

import (
	"fmt"
	"log"
	"math"

	"github.com/paulsmith/gogeos/geos"

	"github.com/mcgarnagle38/geophys-utils/internal/geometry"
)

// MultiLine builds the dataset's multi-line geometry: one simplified line
// string per line block, invalid coordinates dropped. Lines left with fewer
// than two vertices are skipped. Coordinates run through tr when non-nil.
func (ls *LineSet) MultiLine(tr geometry.Transformer, tolerance float64) (*geos.Geometry, error) {
	line, err := ls.Lines()
	if err != nil {
		return nil, err
	}
	lineIndex, err := ls.LineIndex()
	if err != nil {
		return nil, err
	}
	coords, err := ls.coordinates()
	if err != nil {
		return nil, err
	}

	starts, ends := lineBlocks(lineIndex, len(coords), len(line))
	paths := make([][][2]float64, 0, len(starts))
	for i := range starts {
		path := make([][2]float64, 0, ends[i]-starts[i]+1)
		for p := starts[i]; p <= ends[i]; p++ {
			if math.IsNaN(coords[p][0]) || math.IsNaN(coords[p][1]) {
				continue
			}
			path = append(path, coords[p])
		}
		if len(path) < 2 {
			continue
		}
		if path, err = geometry.ApplyTransform(tr, path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return geometry.MultiLine(paths, tolerance)
}

// ConvexHull computes the convex hull over the dataset's sample points. Any
// failure along the way degrades to the native bounding rectangle.
func (ls *LineSet) ConvexHull(tr geometry.Transformer) (*geos.Geometry, error) {
	hull, err := ls.convexHull(tr)
	if err != nil {
		log.Printf("convex hull failed for %s, falling back to bounding box: %v", ls.ds.Identity(), err)
		return geometry.PolygonFromRing(ls.ds.Extent().Ring())
	}
	return hull, nil
}

func (ls *LineSet) convexHull(tr geometry.Transformer) (*geos.Geometry, error) {
	pts, err := ls.SamplePoints(10)
	if err != nil {
		return nil, err
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no valid sample points")
	}
	if pts, err = geometry.ApplyTransform(tr, pts); err != nil {
		return nil, err
	}
	return geometry.ConvexHull(pts)
}

// ConcaveHull derives a concave hull over the dataset's multi-line geometry.
func (ls *LineSet) ConcaveHull(tr geometry.Transformer, opts geometry.HullOptions) (*geos.Geometry, error) {
	multiLine, err := ls.MultiLine(tr, opts.Tolerance)
	if err != nil {
		return nil, err
	}
	return geometry.ConcaveHull(multiLine, opts)
}
