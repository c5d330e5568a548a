// Package layer reads vector feature layers from GeoJSON files, shapefiles
// (plain or zipped) and PostGIS tables into go-geom geometries.
package layer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
)

// Feature is a single record of a layer.
type Feature struct {
	// Index is the zero-based position of the record in its source.
	Index      int
	Geometry   geom.T
	Properties map[string]any
}

// Layer is an immutable set of features sharing one reference system.
type Layer struct {
	Path     string
	CRS      crs.CRS
	Fields   []string
	Features []Feature
}

// Options tunes how files are decoded.
type Options struct {
	// Encoding overrides the DBF text encoding of shapefiles. Empty means
	// use the .cpg sidecar, falling back to UTF-8.
	Encoding string
	// TempDir receives extracted archives. Empty uses os.TempDir.
	TempDir string
}

// HasField reports whether name is part of the layer schema. Matching is
// case-insensitive because DBF field names are conventionally uppercase.
func (l *Layer) HasField(name string) bool {
	return l.FieldName(name) != ""
}

// FieldName returns the schema spelling of name, or "" when absent.
func (l *Layer) FieldName(name string) string {
	for _, f := range l.Fields {
		if strings.EqualFold(f, name) {
			return f
		}
	}
	return ""
}

// GeometryTypes counts features per geometry type name.
func (l *Layer) GeometryTypes() map[string]int {
	out := make(map[string]int)
	for _, f := range l.Features {
		out[geometryName(f.Geometry)]++
	}
	return out
}

// CheckExists returns a MissingInput error when path does not name a
// readable regular file.
func CheckExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure.NewMissingInputError(path, eris.New("file does not exist"))
		}
		return failure.NewMissingInputError(path, eris.Wrap(err, "stat"))
	}
	if info.IsDir() {
		return failure.NewMissingInputError(path, eris.New("path is a directory"))
	}
	return nil
}

// Open loads the layer at path, choosing a reader from the file extension.
func Open(path string, opts Options) (*Layer, error) {
	if err := CheckExists(path); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "layer"), zap.String("path", path))

	var (
		l   *Layer
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		l, err = ReadGeoJSON(path)
	case ".shp":
		l, err = ReadShapefile(path, opts.Encoding)
	case ".zip":
		l, err = readZippedShapefile(path, opts)
	default:
		return nil, failure.NewLoadError(path, eris.Errorf("unsupported file extension %q", ext))
	}
	if err != nil {
		return nil, err
	}

	log.Info("layer loaded",
		zap.Int("features", len(l.Features)),
		zap.Int("fields", len(l.Fields)),
		zap.Stringer("crs", l.CRS),
	)
	return l, nil
}

func geometryName(g geom.T) string {
	switch g.(type) {
	case nil:
		return "Null"
	case *geom.Point:
		return "Point"
	case *geom.MultiPoint:
		return "MultiPoint"
	case *geom.LineString:
		return "LineString"
	case *geom.MultiLineString:
		return "MultiLineString"
	case *geom.Polygon:
		return "Polygon"
	case *geom.MultiPolygon:
		return "MultiPolygon"
	case *geom.GeometryCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}
