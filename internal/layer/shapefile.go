package layer

import (
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
)

// ReadShapefile loads a .shp with its .dbf attributes, .prj reference system
// and optional .cpg text encoding. A missing .prj leaves the CRS undeclared.
func ReadShapefile(shpPath, encodingOverride string) (*Layer, error) {
	if len(shpPath) < 4 {
		return nil, failure.NewLoadError(shpPath, eris.New("layer: shapefile path too short"))
	}
	if _, err := os.Stat(sidecar(shpPath, ".dbf")); err != nil {
		return nil, failure.NewLoadError(shpPath, eris.Wrap(err, "layer: shapefile has no .dbf attribute table"))
	}

	ref, err := readPRJ(shpPath)
	if err != nil {
		return nil, failure.NewProjectionError(shpPath, err)
	}

	decoder, encName, err := dbfDecoder(shpPath, encodingOverride)
	if err != nil {
		return nil, failure.NewLoadError(shpPath, err)
	}

	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, failure.NewLoadError(shpPath, eris.Wrapf(err, "layer: open shapefile %s", shpPath))
	}
	defer func() { _ = reader.Close() }()

	// Build field list; DBF names are NUL padded.
	dbfFields := reader.Fields()
	fields := make([]string, len(dbfFields))
	numeric := make([]bool, len(dbfFields))
	for i, f := range dbfFields {
		fields[i] = strings.TrimRight(f.String(), "\x00")
		numeric[i] = f.Fieldtype == 'N' || f.Fieldtype == 'F'
	}

	l := &Layer{Path: shpPath, CRS: ref, Fields: fields}
	var skipped int

	for reader.Next() {
		idx, shape := reader.Shape()

		props := make(map[string]any, len(fields))
		for i, name := range fields {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
			if raw == "" {
				props[name] = nil
				continue
			}
			if numeric[i] {
				if v, perr := strconv.ParseFloat(raw, 64); perr == nil {
					props[name] = v
					continue
				}
			}
			val, derr := decoder.String(raw)
			if derr != nil {
				return nil, failure.NewLoadError(shpPath, eris.Wrapf(derr, "layer: decode %s attribute %q of record %d", encName, name, idx))
			}
			props[name] = val
		}

		g, convErr := shapeToGeom(shape)
		if convErr != nil {
			skipped++
			zap.L().Debug("layer: unreadable shapefile geometry",
				zap.String("path", shpPath),
				zap.Int("record", idx),
				zap.Error(convErr),
			)
		}

		l.Features = append(l.Features, Feature{Index: idx, Geometry: g, Properties: props})
	}
	if err := reader.Err(); err != nil {
		return nil, failure.NewLoadError(shpPath, eris.Wrap(err, "layer: read shapefile records"))
	}

	if skipped > 0 {
		zap.L().Warn("layer: shapefile records without usable geometry",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return l, nil
}

// readPRJ parses the .prj sidecar. No sidecar means an undeclared CRS.
func readPRJ(shpPath string) (crs.CRS, error) {
	data, err := os.ReadFile(sidecar(shpPath, ".prj"))
	if err != nil {
		if os.IsNotExist(err) {
			return crs.Undeclared, nil
		}
		return crs.Undeclared, eris.Wrap(err, "layer: read .prj")
	}
	return crs.Parse(string(data))
}
