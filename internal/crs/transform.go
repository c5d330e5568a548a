package crs

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// coordFunc converts one x/y pair in place.
type coordFunc func(xy []float64) error

// Transform returns g expressed in the target system. When from equals to, g
// is returned unchanged, so reprojecting an already reprojected geometry is
// the identity.
func Transform(g geom.T, from, to CRS) (geom.T, error) {
	if g == nil {
		return nil, nil
	}
	if !from.Declared() {
		return nil, eris.New("crs: source reference system is undeclared")
	}
	if !to.Declared() {
		return nil, eris.New("crs: target reference system is undeclared")
	}
	if from == to {
		return g, nil
	}

	fn, err := converter(from, to)
	if err != nil {
		return nil, err
	}

	flat := append([]float64(nil), g.FlatCoords()...)
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		if err := fn(flat[i : i+2]); err != nil {
			return nil, err
		}
	}

	return rebuild(g, flat, to.SRID())
}

// TransformCoord converts a single x/y coordinate.
func TransformCoord(c geom.Coord, from, to CRS) (geom.Coord, error) {
	if from == to {
		return c, nil
	}
	if len(c) < 2 {
		return nil, eris.New("crs: coordinate needs x and y")
	}
	fn, err := converter(from, to)
	if err != nil {
		return nil, err
	}
	out := append(geom.Coord(nil), c...)
	if err := fn(out[:2]); err != nil {
		return nil, err
	}
	return out, nil
}

// converter pairs an orb projection with the input check of its source
// system. Web mercator latitudes are clamped at the square map edge.
func converter(from, to CRS) (coordFunc, error) {
	switch {
	case from == WGS84 && to == WebMercator:
		return projectWith(project.WGS84.ToMercator, checkLonLat), nil
	case from == WebMercator && to == WGS84:
		return projectWith(project.Mercator.ToWGS84, checkFinite), nil
	default:
		return nil, eris.Errorf("crs: no transformation from %s to %s", from, to)
	}
}

func projectWith(proj orb.Projection, check func(x, y float64) error) coordFunc {
	return func(xy []float64) error {
		if err := check(xy[0], xy[1]); err != nil {
			return err
		}
		p := proj(orb.Point{xy[0], xy[1]})
		xy[0], xy[1] = p[0], p[1]
		return nil
	}
}

func checkLonLat(lon, lat float64) error {
	if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return eris.Errorf("crs: coordinate (%g, %g) is outside EPSG:4326 bounds", lon, lat)
	}
	return nil
}

func checkFinite(x, y float64) error {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return eris.Errorf("crs: coordinate (%g, %g) is not finite", x, y)
	}
	return nil
}

// rebuild creates a geometry of the same type and structure as g over flat.
func rebuild(g geom.T, flat []float64, srid int) (geom.T, error) {
	layout := g.Layout()
	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(layout, flat).SetSRID(srid), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(layout, flat).SetSRID(srid), nil
	case *geom.LinearRing:
		return geom.NewLinearRingFlat(layout, flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(layout, flat, t.Ends()).SetSRID(srid), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(layout, flat, t.Ends()).SetSRID(srid), nil
	case *geom.MultiPolygon:
		return geom.NewMultiPolygonFlat(layout, flat, t.Endss()).SetSRID(srid), nil
	default:
		return nil, eris.Errorf("crs: unsupported geometry type %T", g)
	}
}
