package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/config"
	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/spatial"
)

// addInputFlags registers the flags shared by commands that read regions.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("regions", "", "protected-area polygons (.shp, .zip, .geojson)")
	cmd.Flags().String("region-name-field", "", "region name attribute")
	cmd.Flags().String("regions-table", "", "read regions from this PostGIS table instead of a file")
	cmd.Flags().String("database-url", "", "PostGIS connection string for --regions-table")
	cmd.Flags().String("encoding", "", "shapefile text encoding (overrides .cpg)")
	cmd.Flags().String("crs", "", "target CRS (EPSG:3857 or EPSG:4326)")
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	str := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	str("observations", &c.Input.Observations)
	str("measurement-field", &c.Input.MeasurementField)
	str("regions", &c.Input.Regions)
	str("region-name-field", &c.Input.RegionNameField)
	str("regions-table", &c.Input.RegionsTable)
	str("database-url", &c.Input.DatabaseURL)
	str("encoding", &c.Input.Encoding)
	str("crs", &c.Analysis.TargetCRS)
	str("boundary", &c.Analysis.Boundary)
	str("format", &c.Report.Format)
	str("export-dir", &c.Export.Dir)

	if cmd.Flags().Changed("export") {
		c.Export.Formats, _ = cmd.Flags().GetStringSlice("export")
	}
	if cmd.Flags().Changed("bins") {
		c.Analysis.HistogramBins, _ = cmd.Flags().GetInt("bins")
	}
	if cmd.Flags().Changed("classes") {
		c.Analysis.QuantileClasses, _ = cmd.Flags().GetInt("classes")
	}
	if cmd.Flags().Changed("alpha") {
		c.Analysis.Alpha, _ = cmd.Flags().GetFloat64("alpha")
	}
}

// analysisOptions translates configuration into pipeline options.
func analysisOptions(c *config.Config) (analysis.Options, error) {
	target, err := crs.Parse(c.Analysis.TargetCRS)
	if err != nil {
		return analysis.Options{}, eris.Wrap(err, "analysis.target_crs")
	}
	boundary, err := spatial.ParsePredicate(c.Analysis.Boundary)
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		ObservationsPath: c.Input.Observations,
		RegionsPath:      c.Input.Regions,
		MeasurementField: c.Input.MeasurementField,
		RegionNameField:  c.Input.RegionNameField,
		RegionsTable:     c.Input.RegionsTable,
		RegionsGeom:      c.Input.RegionsGeom,
		Encoding:         c.Input.Encoding,
		TargetCRS:        target,
		Boundary:         boundary,
		HistogramBins:    c.Analysis.HistogramBins,
		QuantileClasses:  c.Analysis.QuantileClasses,
		Alpha:            c.Analysis.Alpha,
	}, nil
}

// regionsPool connects to PostGIS when regions come from a table. The
// returned pool is nil when regions are read from a file.
func regionsPool(ctx context.Context, c *config.Config) (*pgxpool.Pool, error) {
	if c.Input.RegionsTable == "" {
		return nil, nil
	}
	if c.Input.DatabaseURL == "" {
		return nil, eris.New("regions: no database_url configured (set input.database_url or --database-url)")
	}

	pool, err := pgxpool.New(ctx, c.Input.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "regions: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "regions: ping database")
	}

	zap.L().Info("connected to regions database", zap.String("table", c.Input.RegionsTable))
	return pool, nil
}
