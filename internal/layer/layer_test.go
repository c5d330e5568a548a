package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
)

const surveyGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 1, "geometry": {"type": "Point", "coordinates": [-3.2, 56.05]},
     "properties": {"MEASUREMEN": 12.5, "OBJECTID": 1}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [-2.0, 57.1]},
     "properties": {"MEASUREMEN": "N/A", "OBJECTID": 2, "ORG": "Marine Scotland"}},
    {"type": "Feature", "geometry": null, "properties": {"MEASUREMEN": "3"}}
  ]
}`

// ---------------------------------------------------------------------------
// Open / CheckExists
// ---------------------------------------------------------------------------

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.geojson"), Options{})
	require.Error(t, err)
	assert.Equal(t, failure.KindMissingInput, failure.KindOf(err))
}

func TestOpen_Directory(t *testing.T) {
	err := CheckExists(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, failure.KindMissingInput, failure.KindOf(err))
	assert.Contains(t, err.Error(), "directory")
}

func TestOpen_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "survey.csv", "a,b\n1,2\n")
	_, err := Open(path, Options{})
	require.Error(t, err)
	assert.Equal(t, failure.KindLoad, failure.KindOf(err))
}

// ---------------------------------------------------------------------------
// GeoJSON
// ---------------------------------------------------------------------------

func TestReadGeoJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "survey.geojson", surveyGeoJSON)

	l, err := Open(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, crs.WGS84, l.CRS)
	assert.Equal(t, []string{"MEASUREMEN", "OBJECTID", "ORG"}, l.Fields)
	require.Len(t, l.Features, 3)

	first := l.Features[0]
	assert.Equal(t, 0, first.Index)
	pt, ok := first.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -3.2, pt.X(), 1e-12)
	assert.InDelta(t, 56.05, pt.Y(), 1e-12)
	assert.Equal(t, 12.5, first.Properties["MEASUREMEN"])

	assert.Equal(t, "N/A", l.Features[1].Properties["MEASUREMEN"])
	assert.Nil(t, l.Features[2].Geometry)

	assert.Equal(t, map[string]int{"Point": 2, "Null": 1}, l.GeometryTypes())
}

func TestReadGeoJSON_CRSMember(t *testing.T) {
	doc := `{"type":"FeatureCollection",
	  "crs":{"type":"name","properties":{"name":"urn:ogc:def:crs:EPSG::3857"}},
	  "features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[1,2]},"properties":{}}]}`
	path := writeFile(t, t.TempDir(), "merc.json", doc)

	l, err := ReadGeoJSON(path)
	require.NoError(t, err)
	assert.Equal(t, crs.WebMercator, l.CRS)
	assert.Empty(t, l.Fields)
}

func TestReadGeoJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind failure.Kind
	}{
		{"invalid json", `{"type": "FeatureCollection", "features": [`, failure.KindLoad},
		{"wrong type", `{"type": "Feature", "geometry": null, "properties": {}}`, failure.KindLoad},
		{"bad feature", `{"type": "FeatureCollection", "features": [{"type": "Banana"}]}`, failure.KindLoad},
		{"unknown crs", `{"type": "FeatureCollection", "crs": {"type": "name", "properties": {"name": "EPSG:nope"}}, "features": []}`, failure.KindProjection},
		{"linked crs", `{"type": "FeatureCollection", "crs": {"type": "link", "properties": {}}, "features": []}`, failure.KindProjection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "bad.geojson", tt.doc)
			_, err := ReadGeoJSON(path)
			require.Error(t, err)
			assert.Equal(t, tt.kind, failure.KindOf(err))
		})
	}
}

func TestLayer_FieldName(t *testing.T) {
	l := &Layer{Fields: []string{"SITE_NAME", "MEASUREMEN"}}
	assert.Equal(t, "SITE_NAME", l.FieldName("site_name"))
	assert.True(t, l.HasField("Measuremen"))
	assert.False(t, l.HasField("area"))
	assert.Equal(t, "", l.FieldName("area"))
}

// ---------------------------------------------------------------------------
// Shapefile
// ---------------------------------------------------------------------------

func TestReadShapefile_Polygons(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "mpas", testWGS84PRJ, []testRegion{
		{name: "Firth of Forth Banks Complex", parts: squareWithHole},
		{name: "North-east Faroe Shetland", parts: separateSquare},
	})

	l, err := Open(path, Options{})
	require.NoError(t, err)

	assert.Equal(t, crs.WGS84, l.CRS)
	assert.Equal(t, []string{"SITE_NAME"}, l.Fields)
	require.Len(t, l.Features, 2)
	assert.Equal(t, "Firth of Forth Banks Complex", l.Features[0].Properties["SITE_NAME"])

	mp, ok := l.Features[0].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	require.Equal(t, 1, mp.NumPolygons(), "hole must join its shell")
	assert.Equal(t, 2, mp.Polygon(0).NumLinearRings())
	assert.Equal(t, []float64{0, 0}, []float64{mp.Bounds().Min(0), mp.Bounds().Min(1)})
	assert.Equal(t, []float64{10, 10}, []float64{mp.Bounds().Max(0), mp.Bounds().Max(1)})

	second, ok := l.Features[1].Geometry.(*geom.MultiPolygon)
	require.True(t, ok)
	assert.Equal(t, 1, second.NumPolygons())
	assert.Equal(t, 1, second.Polygon(0).NumLinearRings())
}

func TestReadShapefile_TwoShellsAreSeparatePolygons(t *testing.T) {
	dir := t.TempDir()
	parts := [][]shp.Point{squareWithHole[0], separateSquare[0]}
	path := writeTestPolygons(t, dir, "multi", testWGS84PRJ, []testRegion{{name: "Pair", parts: parts}})

	l, err := ReadShapefile(path, "")
	require.NoError(t, err)
	mp := l.Features[0].Geometry.(*geom.MultiPolygon)
	assert.Equal(t, 2, mp.NumPolygons())
}

func TestReadShapefile_NoPRJ(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "bare", "", []testRegion{{name: "A", parts: separateSquare}})

	l, err := ReadShapefile(path, "")
	require.NoError(t, err)
	assert.Equal(t, crs.Undeclared, l.CRS)
}

func TestReadShapefile_BadPRJ(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "odd", `PROJCS["Some_Local_Grid",UNIT["Meter",1.0]]`, []testRegion{{name: "A", parts: separateSquare}})

	_, err := ReadShapefile(path, "")
	require.Error(t, err)
	assert.Equal(t, failure.KindProjection, failure.KindOf(err))
}

func TestReadShapefile_MissingDBF(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "nodbf", testWGS84PRJ, []testRegion{{name: "A", parts: separateSquare}})
	require.NoError(t, os.Remove(filepath.Join(dir, "nodbf.dbf")))

	_, err := ReadShapefile(path, "")
	require.Error(t, err)
	assert.Equal(t, failure.KindLoad, failure.KindOf(err))
}

func TestReadShapefile_Points(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPoints(t, dir, "survey", testWGS84PRJ, []testPoint{
		{x: -3.2, y: 56.05, value: "12.5"},
		{x: -2.0, y: 57.1, value: "N/A"},
		{x: -1.0, y: 58.0, value: ""},
	})

	l, err := ReadShapefile(path, "")
	require.NoError(t, err)
	require.Len(t, l.Features, 3)

	assert.Equal(t, "12.5", l.Features[0].Properties["MEASUREMEN"])
	assert.Equal(t, "N/A", l.Features[1].Properties["MEASUREMEN"])
	assert.Nil(t, l.Features[2].Properties["MEASUREMEN"])
	assert.Equal(t, 1.5, l.Features[1].Properties["DEPTH"])

	pt := l.Features[0].Geometry.(*geom.Point)
	assert.InDelta(t, -3.2, pt.X(), 1e-12)
}

func TestReadShapefile_CodePage(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "latin", testWGS84PRJ, []testRegion{{name: "Baie de Saint-Brieuc \xe9st", parts: separateSquare}})
	writeFile(t, dir, "latin.cpg", "1252\n")

	l, err := ReadShapefile(path, "")
	require.NoError(t, err)
	assert.Equal(t, "Baie de Saint-Brieuc ést", l.Features[0].Properties["SITE_NAME"])

	// An explicit override wins over the sidecar.
	l, err = ReadShapefile(path, "utf-8")
	require.NoError(t, err)
	assert.NotEqual(t, "Baie de Saint-Brieuc ést", l.Features[0].Properties["SITE_NAME"])
}

func TestReadShapefile_UnknownEncoding(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPolygons(t, dir, "enc", testWGS84PRJ, []testRegion{{name: "A", parts: separateSquare}})

	_, err := ReadShapefile(path, "klingon-1")
	require.Error(t, err)
	assert.Equal(t, failure.KindLoad, failure.KindOf(err))
}

func TestOpen_ZippedShapefile(t *testing.T) {
	dir := t.TempDir()
	writeTestPolygons(t, dir, "mpas", testWGS84PRJ, []testRegion{{name: "Zipped", parts: separateSquare}})
	zipPath := filepath.Join(dir, "mpas.zip")
	zipFiles(t, zipPath, dir, "mpas.shp", "mpas.shx", "mpas.dbf", "mpas.prj")

	l, err := Open(zipPath, Options{TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, zipPath, l.Path)
	assert.Equal(t, crs.WGS84, l.CRS)
	require.Len(t, l.Features, 1)
	assert.Equal(t, "Zipped", l.Features[0].Properties["SITE_NAME"])
}

func TestOpen_ZipWithoutShapefile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "readme.txt", "nothing here")
	zipPath := filepath.Join(dir, "empty.zip")
	zipFiles(t, zipPath, dir, "readme.txt")

	_, err := Open(zipPath, Options{TempDir: t.TempDir()})
	require.Error(t, err)
	assert.Equal(t, failure.KindLoad, failure.KindOf(err))
}
