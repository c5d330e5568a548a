package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/crs"
)

// featureCollection adds the named crs member that geojson.FeatureCollection
// does not carry.
type featureCollection struct {
	Type     string             `json:"type"`
	Name     string             `json:"name,omitempty"`
	CRS      *geojson.CRS       `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

func namedCRS(c crs.CRS) *geojson.CRS {
	if !c.Declared() {
		return nil
	}
	return &geojson.CRS{
		Type:       "name",
		Properties: map[string]any{"name": fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", c.SRID())},
	}
}

// ObservationsToGeoJSON writes every classified observation as a point
// feature in the result CRS, with a null geometry when it has no location. Source attributes are kept next to the
// partition, measurement, quantile_class and regions properties.
func ObservationsToGeoJSON(path string, res *analysis.Result) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Name:     "observations",
		CRS:      namedCRS(res.TargetCRS),
		Features: make([]*geojson.Feature, 0, len(res.Classification.All)),
	}

	for _, o := range res.Classification.All {
		props := make(map[string]any, len(o.Attributes)+4)
		for k, v := range o.Attributes {
			props[k] = v
		}
		regions := o.Regions
		if regions == nil {
			regions = []string{}
		}
		props["partition"] = string(o.Partition)
		props["measurement"] = measurementValue(o.Measurement)
		props["quantile_class"] = quantileClass(o.Measurement, res.Breaks)
		props["regions"] = regions

		f := &geojson.Feature{ID: strconv.Itoa(o.Index), Properties: props}
		if o.Located() {
			f.Geometry = geom.NewPointFlat(geom.XY, []float64{o.Location.X(), o.Location.Y()})
		}
		fc.Features = append(fc.Features, f)
	}
	return writeJSON(path, fc)
}

// RegionsToGeoJSON writes the projected regions with their name and area.
func RegionsToGeoJSON(path string, res *analysis.Result) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Name:     "regions",
		CRS:      namedCRS(res.TargetCRS),
		Features: make([]*geojson.Feature, 0, len(res.Regions.Items)),
	}
	for _, r := range res.Regions.Items {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.Itoa(r.Index),
			Geometry: r.Geometry,
			Properties: map[string]any{
				"name": r.Name,
				"area": r.Area(),
			},
		})
	}
	return writeJSON(path, fc)
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "export: encode %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}
