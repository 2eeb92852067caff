package geometry

import (
	"fmt"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulsmith/gogeos/geos"
)

// ToGeoJSON converts a GEOS geometry produced by this package into its
// GeoJSON representation. Supported inputs are the multi-line, polygon and
// multi-polygon shapes the derivation operations return.
func ToGeoJSON(geom *geos.Geometry) (*geojson.Geometry, error) {
	t, err := geom.Type()
	if err != nil {
		return nil, err
	}

	switch t {
	case geos.LINESTRING:
		line, err := lineCoords(geom)
		if err != nil {
			return nil, err
		}
		return geojson.NewLineStringGeometry(line), nil
	case geos.MULTILINESTRING:
		count, err := geom.NGeometry()
		if err != nil {
			return nil, err
		}
		lines := make([][][]float64, count)
		for i := 0; i < count; i++ {
			sub, err := geom.Geometry(i)
			if err != nil {
				return nil, err
			}
			if lines[i], err = lineCoords(sub); err != nil {
				return nil, err
			}
		}
		return geojson.NewMultiLineStringGeometry(lines...), nil
	case geos.POLYGON:
		rings, err := polygonRings(geom)
		if err != nil {
			return nil, err
		}
		return geojson.NewPolygonGeometry(rings), nil
	case geos.MULTIPOLYGON:
		count, err := geom.NGeometry()
		if err != nil {
			return nil, err
		}
		polygons := make([][][][]float64, count)
		for i := 0; i < count; i++ {
			sub, err := geom.Geometry(i)
			if err != nil {
				return nil, err
			}
			if polygons[i], err = polygonRings(sub); err != nil {
				return nil, err
			}
		}
		return geojson.NewMultiPolygonGeometry(polygons...), nil
	default:
		return nil, fmt.Errorf("unsupported geometry type for GeoJSON encoding: %v", t)
	}
}

func lineCoords(geom *geos.Geometry) ([][]float64, error) {
	n, err := geom.NPoint()
	if err != nil {
		return nil, err
	}
	coords := make([][]float64, n)
	for i := 0; i < n; i++ {
		p, err := geom.Point(i)
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
		coords[i] = []float64{x, y}
	}
	return coords, nil
}

func polygonRings(polygon *geos.Geometry) ([][][]float64, error) {
	shell, err := polygon.Shell()
	if err != nil {
		return nil, err
	}
	exterior, err := lineCoords(shell)
	if err != nil {
		return nil, err
	}
	rings := [][][]float64{exterior}

	holes, err := polygon.Holes()
	if err != nil {
		return nil, err
	}
	for _, hole := range holes {
		ring, err := lineCoords(hole)
		if err != nil {
			return nil, err
		}
		rings = append(rings, ring)
	}
	return rings, nil
}
