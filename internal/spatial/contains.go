// Package spatial classifies survey observations against protected-area
// regions.
package spatial

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Predicate decides whether a point on a region boundary counts as inside.
type Predicate int

// Containment predicates.
const (
	// Within requires the point to lie in the region interior. Boundary
	// points are outside.
	Within Predicate = iota
	// Intersects accepts interior and boundary points.
	Intersects
)

// String returns the configuration name of the predicate.
func (p Predicate) String() string {
	switch p {
	case Within:
		return "exclude"
	case Intersects:
		return "include"
	default:
		return "unknown"
	}
}

// ParsePredicate maps a boundary policy name to a Predicate. "exclude" and
// "within" select Within; "include" and "intersects" select Intersects.
func ParsePredicate(s string) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exclude", "within", "strict":
		return Within, nil
	case "include", "intersects", "inclusive":
		return Intersects, nil
	default:
		return Within, eris.Errorf("spatial: unknown boundary policy %q (want exclude or include)", s)
	}
}

// Locate returns where c lies relative to mp. A point inside any polygon's
// interior is Interior even when it touches another polygon's boundary.
func Locate(mp *geom.MultiPolygon, c geom.Coord) location.Type {
	if mp == nil || mp.Empty() || len(c) < 2 {
		return location.Exterior
	}
	if !mp.Bounds().OverlapsPoint(geom.XY, c) {
		return location.Exterior
	}

	result := location.Exterior
	for i := 0; i < mp.NumPolygons(); i++ {
		switch locateInPolygon(mp.Polygon(i), c) {
		case location.Interior:
			return location.Interior
		case location.Boundary:
			result = location.Boundary
		}
	}
	return result
}

func locateInPolygon(p *geom.Polygon, c geom.Coord) location.Type {
	if p.NumLinearRings() == 0 {
		return location.Exterior
	}
	layout := p.Layout()

	shell := p.LinearRing(0)
	loc := xy.LocatePointInRing(layout, c, shell.FlatCoords())
	if loc != location.Interior {
		return loc
	}

	for j := 1; j < p.NumLinearRings(); j++ {
		switch xy.LocatePointInRing(layout, c, p.LinearRing(j).FlatCoords()) {
		case location.Interior:
			return location.Exterior
		case location.Boundary:
			return location.Boundary
		}
	}
	return location.Interior
}

// Contains reports whether mp contains c under the given predicate.
func Contains(mp *geom.MultiPolygon, c geom.Coord, pred Predicate) bool {
	switch Locate(mp, c) {
	case location.Interior:
		return true
	case location.Boundary:
		return pred == Intersects
	default:
		return false
	}
}
