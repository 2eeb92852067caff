// Package service implements the operations the HTTP API exposes over a
// line-organized survey dataset, with product-level caching of derived
// geometry.
package service

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulsmith/gogeos/geos"

	"github.com/mcgarnagle38/geophys-utils/internal/data/survey"
	"github.com/mcgarnagle38/geophys-utils/internal/geometry"
	"github.com/mcgarnagle38/geophys-utils/internal/linecache"
	"github.com/mcgarnagle38/geophys-utils/internal/lines"
	"github.com/mcgarnagle38/geophys-utils/internal/render"
)

// LineService bundles a dataset's line semantics with caching and rendering.
type LineService struct {
	lineSet  *lines.LineSet
	cache    *linecache.Manager
	renderer *render.QuicklookRenderer
	hullOpts geometry.HullOptions
}

// NewLineService creates a service over ds. cache may be nil to disable
// product caching.
func NewLineService(ds survey.Dataset, resolver *linecache.Resolver, cache *linecache.Manager, renderer *render.QuicklookRenderer, hullOpts geometry.HullOptions) *LineService {
	return &LineService{
		lineSet:  lines.New(ds, lines.Options{Resolver: resolver}),
		cache:    cache,
		renderer: renderer,
		hullOpts: hullOpts,
	}
}

// Dataset returns the underlying dataset.
func (s *LineService) Dataset() survey.Dataset { return s.lineSet.Dataset() }

// LineSet returns the wrapped line set.
func (s *LineService) LineSet() *lines.LineSet { return s.lineSet }

// Metadata describes the dataset for API consumers.
type Metadata struct {
	Identity   string        `json:"identity"`
	PointCount int           `json:"point_count"`
	LineCount  int           `json:"line_count"`
	Extent     survey.Bounds `json:"extent"`
	Variables  []string      `json:"variables"`
	FlagNames  []string      `json:"coordinate_flags"`
}

// Metadata returns the dataset description.
func (s *LineService) Metadata() (Metadata, error) {
	line, err := s.lineSet.Lines()
	if err != nil {
		return Metadata{}, err
	}
	ds := s.lineSet.Dataset()
	return Metadata{
		Identity:   ds.Identity(),
		PointCount: ds.PointCount(),
		LineCount:  len(line),
		Extent:     ds.Extent(),
		Variables:  ds.PointVariables(),
		FlagNames:  survey.CoordinateFlagNames,
	}, nil
}

// Lines returns the dataset's line numbers.
func (s *LineService) Lines() ([]int32, error) {
	return s.lineSet.Lines()
}

// LineStat summarizes one line's point ownership.
type LineStat struct {
	Line   int32 `json:"line"`
	Points int   `json:"points"`
}

// LineStats returns per-line point counts.
func (s *LineService) LineStats() ([]LineStat, error) {
	line, err := s.lineSet.Lines()
	if err != nil {
		return nil, err
	}
	lineIndex, err := s.lineSet.LineIndex()
	if err != nil {
		return nil, err
	}

	counts := make([]int, len(line))
	for _, li := range lineIndex {
		counts[li]++
	}
	stats := make([]LineStat, len(line))
	for i, n := range line {
		stats[i] = LineStat{Line: n, Points: counts[i]}
	}
	return stats, nil
}

// Query collects per-line variable data for the given options.
func (s *LineService) Query(opts lines.QueryOptions) ([]lines.LineData, error) {
	it, err := s.lineSet.Query(opts)
	if err != nil {
		return nil, err
	}
	var results []lines.LineData
	for it.Next() {
		results = append(results, it.Data())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// SamplePoints returns representative coordinates across all lines.
func (s *LineService) SamplePoints(divisions int) ([][2]float64, error) {
	return s.lineSet.SamplePoints(divisions)
}

// MultiLineGeoJSON returns the dataset's simplified multi-line geometry as
// GeoJSON.
func (s *LineService) MultiLineGeoJSON(tolerance float64) ([]byte, error) {
	if tolerance == 0 {
		tolerance = s.hullOpts.Tolerance
	}
	key := s.productKey("multiline", map[string]interface{}{"tolerance": tolerance})
	return s.cachedGeometry(key, func() (*geos.Geometry, error) {
		return s.lineSet.MultiLine(nil, tolerance)
	})
}

// ConvexHullGeoJSON returns the convex hull as GeoJSON.
func (s *LineService) ConvexHullGeoJSON() ([]byte, error) {
	key := s.productKey("convex_hull", nil)
	return s.cachedGeometry(key, func() (*geos.Geometry, error) {
		return s.lineSet.ConvexHull(nil)
	})
}

// HullOverrides carries per-request concave hull parameters. Nil fields
// keep the configured defaults; an explicit zero for a complexity cap
// disables that cap.
type HullOverrides struct {
	BufferDistance *float64
	Offset         *float64
	Tolerance      *float64
	MaxPolygons    *int
	MaxVertices    *int
}

func (o HullOverrides) apply(defaults geometry.HullOptions) geometry.HullOptions {
	opts := defaults
	if o.BufferDistance != nil {
		opts.BufferDistance = *o.BufferDistance
	}
	if o.Offset != nil {
		opts.Offset = *o.Offset
	}
	if o.Tolerance != nil {
		opts.Tolerance = *o.Tolerance
	}
	if o.MaxPolygons != nil {
		opts.MaxPolygons = *o.MaxPolygons
	}
	if o.MaxVertices != nil {
		opts.MaxVertices = *o.MaxVertices
	}
	return opts
}

// ConcaveHullGeoJSON returns the concave hull as GeoJSON.
func (s *LineService) ConcaveHullGeoJSON(overrides HullOverrides) ([]byte, error) {
	opts := overrides.apply(s.hullOpts)

	key := s.productKey("concave_hull", map[string]interface{}{
		"buffer_distance": opts.BufferDistance,
		"offset":          opts.Offset,
		"tolerance":       opts.Tolerance,
		"max_polygons":    opts.MaxPolygons,
		"max_vertices":    opts.MaxVertices,
	})
	return s.cachedGeometry(key, func() (*geos.Geometry, error) {
		return s.lineSet.ConcaveHull(nil, opts)
	})
}

// Repair runs coordinate repair on the dataset and drops cached products,
// since repaired coordinates change every derived geometry.
func (s *LineService) Repair() (lines.RepairReport, error) {
	report, err := s.lineSet.RepairCoordinates()
	if err != nil {
		return report, err
	}
	if s.cache != nil {
		s.cache.PurgeProducts()
	}
	return report, nil
}

// Quicklook renders the dataset's lines to a PNG.
func (s *LineService) Quicklook() ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("quicklook rendering not configured")
	}

	key := s.productKey("quicklook", nil)
	if s.cache != nil {
		if data, ok := s.cache.GetProduct(key); ok {
			return data, nil
		}
	}

	it, err := s.lineSet.Query(lines.QueryOptions{Variables: []string{}})
	if err != nil {
		return nil, err
	}
	var paths []render.LinePath
	for it.Next() {
		data := it.Data()
		pts := make([][2]float64, 0, len(data.Coordinates))
		for _, p := range data.Coordinates {
			if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
				continue
			}
			pts = append(pts, p)
		}
		paths = append(paths, render.LinePath{Line: data.Line, Points: pts})
	}
	if err := it.Err(); err != nil {
		return nil, err
	}

	png, err := s.renderer.RenderLines(paths, s.lineSet.Dataset().Extent())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetProduct(key, png)
	}
	return png, nil
}

// HullQuicklook renders the concave hull outline to a PNG.
func (s *LineService) HullQuicklook(overrides HullOverrides) ([]byte, error) {
	if s.renderer == nil {
		return nil, fmt.Errorf("quicklook rendering not configured")
	}
	opts := overrides.apply(s.hullOpts)

	key := s.productKey("hull_quicklook", map[string]interface{}{
		"buffer_distance": opts.BufferDistance,
		"offset":          opts.Offset,
		"tolerance":       opts.Tolerance,
		"max_polygons":    opts.MaxPolygons,
		"max_vertices":    opts.MaxVertices,
	})
	if s.cache != nil {
		if data, ok := s.cache.GetProduct(key); ok {
			return data, nil
		}
	}

	hull, err := s.lineSet.ConcaveHull(nil, opts)
	if err != nil {
		return nil, err
	}
	rings, err := geometry.ExteriorRings(hull)
	if err != nil {
		return nil, err
	}

	png, err := s.renderer.RenderHull(rings, s.lineSet.Dataset().Extent())
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetProduct(key, png)
	}
	return png, nil
}

func (s *LineService) productKey(kind string, params map[string]interface{}) string {
	return linecache.ProductKey(s.lineSet.Dataset().Identity(), kind, params)
}

func (s *LineService) cachedGeometry(key string, derive func() (*geos.Geometry, error)) ([]byte, error) {
	if s.cache != nil {
		if data, ok := s.cache.GetProduct(key); ok {
			return data, nil
		}
	}

	geom, err := derive()
	if err != nil {
		return nil, err
	}
	gj, err := geometry.ToGeoJSON(geom)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(gj)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetProduct(key, data)
	}
	return data, nil
}
