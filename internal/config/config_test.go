package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/Marine Microplastic Concentrations.geojson", cfg.Input.Observations)
	assert.Equal(t, "data/c20230705_OffshoreMPAs_WGS84.shp", cfg.Input.Regions)
	assert.Equal(t, "MEASUREMEN", cfg.Input.MeasurementField)
	assert.Equal(t, "SITE_NAME", cfg.Input.RegionNameField)
	assert.Equal(t, "geom", cfg.Input.RegionsGeom)
	assert.Empty(t, cfg.Input.RegionsTable)
	assert.Equal(t, "EPSG:3857", cfg.Analysis.TargetCRS)
	assert.Equal(t, "exclude", cfg.Analysis.Boundary)
	assert.Equal(t, 5, cfg.Analysis.QuantileClasses)
	assert.Equal(t, 10, cfg.Analysis.HistogramBins)
	assert.InDelta(t, 0.05, cfg.Analysis.Alpha, 0.0001)
	assert.Equal(t, "text", cfg.Report.Format)
	assert.Empty(t, cfg.Export.Dir)
	assert.Equal(t, []string{"geojson"}, cfg.Export.Formats)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.NoError(t, cfg.Validate("analyze"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
input:
  observations: survey.geojson
  measurement_field: CONC
analysis:
  boundary: include
  histogram_bins: 20
log:
  level: debug
  format: json
export:
  dir: out
  formats: [geojson, xlsx]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "survey.geojson", cfg.Input.Observations)
	assert.Equal(t, "CONC", cfg.Input.MeasurementField)
	assert.Equal(t, "include", cfg.Analysis.Boundary)
	assert.Equal(t, 20, cfg.Analysis.HistogramBins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "out", cfg.Export.Dir)
	assert.Equal(t, []string{"geojson", "xlsx"}, cfg.Export.Formats)
	// Defaults still apply for unset values
	assert.Equal(t, "SITE_NAME", cfg.Input.RegionNameField)
	assert.Equal(t, 5, cfg.Analysis.QuantileClasses)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
analysis:
  target_crs: EPSG:4326
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MPA_ANALYSIS_TARGET_CRS", "EPSG:3857")
	t.Setenv("MPA_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "EPSG:3857", cfg.Analysis.TargetCRS)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MPA_ANALYSIS_QUANTILE_CLASSES", "7")
	t.Setenv("MPA_INPUT_REGIONS_TABLE", "public.mpas")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Analysis.QuantileClasses)
	assert.Equal(t, "public.mpas", cfg.Input.RegionsTable)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("input: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Input.Observations = "obs.geojson"
	cfg.Input.Regions = "mpas.shp"
	cfg.Input.MeasurementField = "MEASUREMEN"
	cfg.Input.RegionNameField = "SITE_NAME"
	cfg.Analysis.TargetCRS = "EPSG:3857"
	cfg.Analysis.Boundary = "exclude"
	cfg.Analysis.QuantileClasses = 5
	cfg.Analysis.HistogramBins = 10
	cfg.Analysis.Alpha = 0.05
	cfg.Report.Format = "text"
	cfg.Export.Formats = []string{"geojson"}
	return cfg
}

func TestValidateAnalyze_Valid(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("analyze"))

	cfg.Analysis.Boundary = "INCLUDE"
	cfg.Report.Format = "yaml"
	cfg.Export.Formats = []string{"geojson", "xlsx", "sqlite"}
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateAnalyze_Problems(t *testing.T) {
	cfg := validDefaults()
	cfg.Input.Observations = ""
	cfg.Analysis.Boundary = "touches"
	cfg.Analysis.HistogramBins = 0
	cfg.Analysis.QuantileClasses = -1
	cfg.Analysis.Alpha = 1.5
	cfg.Report.Format = "html"
	cfg.Export.Formats = []string{"kml"}

	err := cfg.Validate("analyze")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input.observations is required")
	assert.Contains(t, err.Error(), "analysis.boundary must be exclude or include")
	assert.Contains(t, err.Error(), "analysis.histogram_bins must be > 0")
	assert.Contains(t, err.Error(), "analysis.quantile_classes must be > 0")
	assert.Contains(t, err.Error(), "analysis.alpha")
	assert.Contains(t, err.Error(), "report.format")
	assert.Contains(t, err.Error(), "unknown format kml")
}

func TestValidateRegionsTable(t *testing.T) {
	cfg := validDefaults()
	cfg.Input.Regions = ""
	cfg.Input.RegionsTable = "public.mpas"

	err := cfg.Validate("areas")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input.database_url is required")

	cfg.Input.DatabaseURL = "postgres://localhost/mpa"
	assert.NoError(t, cfg.Validate("areas"))
	assert.NoError(t, cfg.Validate("analyze"))
}

func TestValidateDescribe(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate("describe"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
