package survey

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/failure"
	"github.com/sells-group/mpa-survey/internal/layer"
)

// ParseMeasurement coerces a raw attribute to a measurement. Numbers pass
// through; strings are parsed after trimming; anything else, including
// "N/A", empty strings, NaN and infinities, becomes missing.
func ParseMeasurement(v any) Measurement {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return Measurement{}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return Measurement{}
		}
		f = parsed
	default:
		return Measurement{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Measurement{}
	}
	return Measurement{Value: f, Valid: true}
}

// BindObservations converts a point layer into observations. The measurement
// field must be part of the schema. Features without geometry are kept
// unlocated; any other non-point geometry is a schema error.
func BindObservations(l *layer.Layer, field string) (Observations, error) {
	name := l.FieldName(field)
	if name == "" {
		return Observations{}, failure.NewSchemaError(l.Path, eris.Errorf("survey: measurement field %q not found (fields: %s)", field, strings.Join(l.Fields, ", ")))
	}

	out := Observations{Source: l.Path, CRS: l.CRS, Items: make([]Observation, 0, len(l.Features))}
	var missing, unlocated int

	for _, f := range l.Features {
		loc, err := pointCoord(f.Geometry)
		if err != nil {
			return Observations{}, failure.NewSchemaError(l.Path, eris.Wrapf(err, "survey: feature %d", f.Index))
		}
		if loc == nil {
			unlocated++
		}

		m := ParseMeasurement(f.Properties[name])
		if !m.Valid {
			missing++
		}

		out.Items = append(out.Items, Observation{
			Index:       f.Index,
			Location:    loc,
			Measurement: m,
			Attributes:  f.Properties,
		})
	}

	zap.L().Debug("survey: observations bound",
		zap.String("source", l.Path),
		zap.Int("observations", len(out.Items)),
		zap.Int("missing_measurements", missing),
	)
	if unlocated > 0 {
		zap.L().Warn("survey: observations without geometry kept unlocated",
			zap.String("source", l.Path),
			zap.Int("unlocated", unlocated),
		)
	}
	return out, nil
}

// pointCoord returns a nil coordinate for absent or empty points.
func pointCoord(g geom.T) (geom.Coord, error) {
	switch p := g.(type) {
	case nil:
		return nil, nil
	case *geom.Point:
		if p == nil || p.Empty() {
			return nil, nil
		}
		return geom.Coord{p.X(), p.Y()}, nil
	case *geom.MultiPoint:
		if p.NumPoints() != 1 {
			return nil, eris.Errorf("has a multipoint with %d points", p.NumPoints())
		}
		c := p.Coord(0)
		return geom.Coord{c.X(), c.Y()}, nil
	default:
		return nil, eris.Errorf("has %T geometry, expected a point", g)
	}
}

// BindRegions converts a polygon layer into regions named by nameField.
// Features without geometry are skipped because they cannot contain points.
func BindRegions(l *layer.Layer, nameField string) (Regions, error) {
	name := l.FieldName(nameField)
	if name == "" {
		return Regions{}, failure.NewSchemaError(l.Path, eris.Errorf("survey: region name field %q not found (fields: %s)", nameField, strings.Join(l.Fields, ", ")))
	}

	out := Regions{Source: l.Path, CRS: l.CRS, Items: make([]Region, 0, len(l.Features))}
	var skipped int

	for _, f := range l.Features {
		var mp *geom.MultiPolygon
		switch g := f.Geometry.(type) {
		case nil:
			skipped++
			continue
		case *geom.MultiPolygon:
			mp = g
		case *geom.Polygon:
			mp = geom.NewMultiPolygon(g.Layout())
			if err := mp.Push(g); err != nil {
				return Regions{}, failure.NewSchemaError(l.Path, eris.Wrapf(err, "survey: feature %d polygon", f.Index))
			}
		default:
			return Regions{}, failure.NewSchemaError(l.Path, eris.Errorf("survey: feature %d has %T geometry, expected a polygon", f.Index, f.Geometry))
		}

		var label string
		if v := f.Properties[name]; v != nil {
			label = strings.TrimSpace(fmt.Sprint(v))
		}
		out.Items = append(out.Items, Region{Index: f.Index, Name: label, Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Warn("survey: regions without geometry skipped",
			zap.String("source", l.Path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}
