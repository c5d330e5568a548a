// Package survey holds the strongly typed records of the microplastic
// analysis: point Observations carrying a concentration measurement and
// Region polygons of marine protected areas.
package survey

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/mpa-survey/internal/crs"
)

// Partition labels the side of the protected-area boundary an observation
// falls on.
type Partition string

// Partitions, in reporting order.
const (
	Unclassified Partition = ""
	Inside       Partition = "Inside MPA"
	Outside      Partition = "Outside MPA"
)

// Partitions lists the classified partitions in reporting order.
var Partitions = []Partition{Inside, Outside}

// Measurement is an optional concentration value. Valid is false for
// missing or non-numeric source values.
type Measurement struct {
	Value float64
	Valid bool
}

// Observation is a single survey point.
type Observation struct {
	// Index is the record position in the source dataset.
	Index int
	// Location is nil when the source record has no geometry.
	Location    geom.Coord
	Measurement Measurement
	Attributes  map[string]any
	Partition   Partition
	// Regions names every region containing the location.
	Regions []string
}

// Located reports whether o carries a position.
func (o Observation) Located() bool { return len(o.Location) >= 2 }

// WithLocation returns a copy of o at loc.
func (o Observation) WithLocation(loc geom.Coord) Observation {
	o.Location = loc
	return o
}

// Classified returns a copy of o assigned to p with the given containing
// region names.
func (o Observation) Classified(p Partition, regions []string) Observation {
	o.Partition = p
	o.Regions = regions
	return o
}

// Region is a protected-area polygon.
type Region struct {
	Index    int
	Name     string
	Geometry *geom.MultiPolygon
}

// Area returns the planar area of the region in squared CRS units. Holes are
// subtracted regardless of ring orientation.
func (r Region) Area() float64 {
	if r.Geometry == nil {
		return 0
	}
	var area float64
	for i := 0; i < r.Geometry.NumPolygons(); i++ {
		poly := r.Geometry.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			a := math.Abs(xy.SignedArea(ring.Layout(), ring.FlatCoords()))
			if j == 0 {
				area += a
			} else {
				area -= a
			}
		}
	}
	return area
}

// Observations is an immutable set of observations in one CRS.
type Observations struct {
	Source string
	CRS    crs.CRS
	Items  []Observation
}

// Values returns every measurement value with its validity flag.
func (o Observations) Values() ([]float64, []bool) {
	values := make([]float64, len(o.Items))
	valid := make([]bool, len(o.Items))
	for i, item := range o.Items {
		values[i] = item.Measurement.Value
		valid[i] = item.Measurement.Valid
	}
	return values, valid
}

// Regions is an immutable set of regions in one CRS.
type Regions struct {
	Source string
	CRS    crs.CRS
	Items  []Region
}
