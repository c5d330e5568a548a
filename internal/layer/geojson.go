package layer

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
)

// geojsonDocument is the envelope of a FeatureCollection. Features are kept
// raw so a single bad record can be reported by index.
type geojsonDocument struct {
	Type     string            `json:"type"`
	CRS      *geojson.CRS      `json:"crs,omitempty"`
	Features []json.RawMessage `json:"features"`
}

// ReadGeoJSON loads a FeatureCollection. Without a legacy "crs" member the
// coordinates are taken as OGC:CRS84 longitude/latitude, as RFC 7946 requires.
func ReadGeoJSON(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.NewLoadError(path, eris.Wrap(err, "layer: read geojson"))
	}
	return decodeGeoJSON(path, data)
}

func decodeGeoJSON(path string, data []byte) (*Layer, error) {
	var doc geojsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, failure.NewLoadError(path, eris.Wrap(err, "layer: decode geojson"))
	}
	if doc.Type != "FeatureCollection" {
		return nil, failure.NewLoadError(path, eris.Errorf("layer: expected FeatureCollection, got %q", doc.Type))
	}

	ref, err := geojsonCRS(doc.CRS)
	if err != nil {
		return nil, failure.NewProjectionError(path, err)
	}

	l := &Layer{Path: path, CRS: ref, Features: make([]Feature, 0, len(doc.Features))}
	seen := make(map[string]bool)

	for i, raw := range doc.Features {
		var f geojson.Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, failure.NewLoadError(path, eris.Wrapf(err, "layer: decode feature %d", i))
		}

		props := f.Properties
		if props == nil {
			props = map[string]any{}
		}
		for k := range props {
			if !seen[k] {
				seen[k] = true
				l.Fields = append(l.Fields, k)
			}
		}

		l.Features = append(l.Features, Feature{Index: i, Geometry: f.Geometry, Properties: props})
	}

	slices.Sort(l.Fields)
	return l, nil
}

// geojsonCRS interprets the pre-RFC 7946 "crs" member.
func geojsonCRS(c *geojson.CRS) (crs.CRS, error) {
	if c == nil {
		return crs.WGS84, nil
	}
	switch c.Type {
	case "name":
		name, _ := c.Properties["name"].(string)
		return crs.Parse(name)
	case "EPSG":
		return crs.Parse(fmt.Sprintf("EPSG:%v", c.Properties["code"]))
	default:
		return crs.Undeclared, eris.Errorf("layer: unsupported geojson crs type %q", c.Type)
	}
}
