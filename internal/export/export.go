// Package export writes classified observations and run summaries to files
// for mapping and charting tools.
package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/stats"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// Export formats.
const (
	FormatGeoJSON = "geojson"
	FormatXLSX    = "xlsx"
	FormatSQLite  = "sqlite"
)

// File names written into the export directory.
const (
	ObservationsGeoJSON = "observations.geojson"
	RegionsGeoJSON      = "regions.geojson"
	SummaryXLSX         = "summary.xlsx"
	RunsSQLite          = "mpa-survey.db"
)

// Write exports res into dir in every requested format and returns the
// paths written.
func Write(ctx context.Context, dir string, formats []string, res *analysis.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}
	log := zap.L().With(zap.String("component", "export"), zap.String("run_id", res.RunID))

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case FormatGeoJSON:
			obsPath := filepath.Join(dir, ObservationsGeoJSON)
			if err := ObservationsToGeoJSON(obsPath, res); err != nil {
				return written, err
			}
			regionsPath := filepath.Join(dir, RegionsGeoJSON)
			if err := RegionsToGeoJSON(regionsPath, res); err != nil {
				return written, err
			}
			written = append(written, obsPath, regionsPath)
		case FormatXLSX:
			path := filepath.Join(dir, SummaryXLSX)
			if err := ToXLSX(path, res); err != nil {
				return written, err
			}
			written = append(written, path)
		case FormatSQLite:
			path := filepath.Join(dir, RunsSQLite)
			if err := ToSQLite(ctx, path, res); err != nil {
				return written, err
			}
			written = append(written, path)
		default:
			return written, eris.Errorf("export: unknown format %q", f)
		}
	}

	log.Info("results exported", zap.Strings("files", written))
	return written, nil
}

// measurementValue returns the value of a valid measurement or nil.
func measurementValue(m survey.Measurement) any {
	if !m.Valid {
		return nil
	}
	return m.Value
}

// quantileClass returns the choropleth class of a valid measurement or nil.
func quantileClass(m survey.Measurement, breaks []float64) any {
	if !m.Valid {
		return nil
	}
	if c := stats.ClassOf(m.Value, breaks); c >= 0 {
		return c
	}
	return nil
}
