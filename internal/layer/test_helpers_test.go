package layer

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/require"
)

const testWGS84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// clockwise square with a counter-clockwise hole.
var squareWithHole = [][]shp.Point{
	{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}},
	{{X: 2, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 8}, {X: 2, Y: 8}, {X: 2, Y: 2}},
}

var separateSquare = [][]shp.Point{
	{{X: 20, Y: 0}, {X: 20, Y: 5}, {X: 25, Y: 5}, {X: 25, Y: 0}, {X: 20, Y: 0}},
}

type testRegion struct {
	name  string
	parts [][]shp.Point
}

// writeTestPolygons writes a polygon shapefile with a SITE_NAME column. An
// empty prj skips the .prj sidecar.
func writeTestPolygons(t *testing.T, dir, base, prj string, regions []testRegion) string {
	t.Helper()
	path := filepath.Join(dir, base+".shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("SITE_NAME", 40)}))

	for _, r := range regions {
		poly := shp.Polygon(*shp.NewPolyLine(r.parts))
		n := w.Write(&poly)
		require.NoError(t, w.WriteAttribute(int(n), 0, r.name))
	}
	w.Close()

	if prj != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, base+".prj"), []byte(prj), 0o644))
	}
	return path
}

type testPoint struct {
	x, y  float64
	value string
}

// writeTestPoints writes a point shapefile with a character MEASUREMEN column.
func writeTestPoints(t *testing.T, dir, base, prj string, points []testPoint) string {
	t.Helper()
	path := filepath.Join(dir, base+".shp")

	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("MEASUREMEN", 16),
		shp.FloatField("DEPTH", 10, 2),
	}))

	for i, p := range points {
		n := w.Write(&shp.Point{X: p.x, Y: p.y})
		require.NoError(t, w.WriteAttribute(int(n), 0, p.value))
		require.NoError(t, w.WriteAttribute(int(n), 1, float64(i)+0.5))
	}
	w.Close()

	if prj != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, base+".prj"), []byte(prj), 0o644))
	}
	return path
}

// zipFiles archives the named files of dir into zipPath under a nested folder.
func zipFiles(t *testing.T, zipPath, dir string, names ...string) {
	t.Helper()
	out, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(out)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		fw, err := zw.Create("export/" + name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
