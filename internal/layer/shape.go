package layer

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// shapeToGeom converts a go-shp shape to a go-geom geometry. Null shapes
// yield nil. Z and M ordinates are dropped.
func shapeToGeom(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.MultiPoint:
		return geom.NewMultiPointFlat(geom.XY, flatPoints(s.Points)), nil
	case *shp.PolyLine:
		return partsToMultiLineString(s.Parts, s.Points)
	case *shp.Polygon:
		return partsToMultiPolygon(s.Parts, s.Points)
	case *shp.PolygonZ:
		return partsToMultiPolygon(s.Parts, s.Points)
	case *shp.PolygonM:
		return partsToMultiPolygon(s.Parts, s.Points)
	default:
		return nil, eris.Errorf("layer: unsupported shape type %T", shape)
	}
}

// partBounds returns the [start, end) point range of each part.
func partBounds(parts []int32, numPoints int) [][2]int {
	out := make([][2]int, 0, len(parts))
	for i, start := range parts {
		end := numPoints
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if int(start) < 0 || int(start) > end || end > numPoints {
			continue
		}
		out = append(out, [2]int{int(start), end})
	}
	return out
}

func partsToMultiLineString(parts []int32, points []shp.Point) (geom.T, error) {
	if len(parts) == 0 || len(points) == 0 {
		return nil, eris.New("layer: empty polyline")
	}

	mls := geom.NewMultiLineString(geom.XY)
	for _, pb := range partBounds(parts, len(points)) {
		ls := geom.NewLineStringFlat(geom.XY, flatPoints(points[pb[0]:pb[1]]))
		if err := mls.Push(ls); err != nil {
			return nil, eris.Wrap(err, "layer: push linestring")
		}
	}
	return mls, nil
}

// partsToMultiPolygon groups shapefile rings into polygons. Outer rings are
// clockwise and holes counter-clockwise; each hole joins the outer ring that
// contains it, or the most recent outer ring when none does.
func partsToMultiPolygon(parts []int32, points []shp.Point) (geom.T, error) {
	if len(parts) == 0 || len(points) == 0 {
		return nil, eris.New("layer: empty polygon")
	}

	var (
		shells [][]float64
		holes  [][][]float64
	)
	for _, pb := range partBounds(parts, len(points)) {
		ring := closeRing(flatPoints(points[pb[0]:pb[1]]))
		if len(ring) < 8 {
			// Fewer than four positions cannot enclose an area.
			continue
		}

		if !xy.IsRingCounterClockwise(geom.XY, ring) || len(shells) == 0 {
			shells = append(shells, ring)
			holes = append(holes, nil)
			continue
		}

		owner := len(shells) - 1
		probe := geom.Coord{ring[0], ring[1]}
		for i := len(shells) - 1; i >= 0; i-- {
			if xy.IsPointInRing(geom.XY, probe, shells[i]) {
				owner = i
				break
			}
		}
		holes[owner] = append(holes[owner], ring)
	}

	if len(shells) == 0 {
		return nil, eris.New("layer: polygon has no valid rings")
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i, shell := range shells {
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRingFlat(geom.XY, shell)); err != nil {
			return nil, eris.Wrap(err, "layer: push shell")
		}
		for _, h := range holes[i] {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, h)); err != nil {
				return nil, eris.Wrap(err, "layer: push hole")
			}
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrap(err, "layer: push polygon")
		}
	}
	return mp, nil
}

// closeRing appends the first position when the ring is left open.
func closeRing(flat []float64) []float64 {
	n := len(flat)
	if n >= 4 && (flat[0] != flat[n-2] || flat[1] != flat[n-1]) {
		flat = append(flat, flat[0], flat[1])
	}
	return flat
}

func flatPoints(points []shp.Point) []float64 {
	flat := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p.X, p.Y)
	}
	return flat
}
