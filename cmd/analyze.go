package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/export"
	"github.com/sells-group/mpa-survey/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify survey points and compare concentrations",
	Long:  "Runs the full analysis: load, project, classify against the protected areas, aggregate per partition and run the Mann-Whitney U test. Results are printed and optionally exported.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyFlags(cmd, cfg)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		format, err := report.ParseFormat(cfg.Report.Format)
		if err != nil {
			return err
		}

		opts, err := analysisOptions(cfg)
		if err != nil {
			return err
		}

		pool, err := regionsPool(ctx, cfg)
		if err != nil {
			return err
		}
		if pool != nil {
			defer pool.Close()
			opts.RegionsDB = pool
		}

		res, err := analysis.Run(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		if err := report.Write(cmd.OutOrStdout(), res, format); err != nil {
			return err
		}

		if cfg.Export.Dir != "" {
			files, err := export.Write(ctx, cfg.Export.Dir, cfg.Export.Formats, res)
			if err != nil {
				return eris.Wrap(err, "analyze: export")
			}
			zap.L().Info("exports written", zap.Int("files", len(files)), zap.String("dir", cfg.Export.Dir))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("observations", "", "survey points (.geojson, .shp, .zip)")
	analyzeCmd.Flags().String("measurement-field", "", "concentration attribute")
	addInputFlags(analyzeCmd)
	analyzeCmd.Flags().String("boundary", "", "points on a region edge: exclude (strict within) or include")
	analyzeCmd.Flags().String("format", "", "report format: text, json or yaml")
	analyzeCmd.Flags().String("export-dir", "", "write exports into this directory")
	analyzeCmd.Flags().StringSlice("export", nil, "export formats: geojson, xlsx, sqlite")
	analyzeCmd.Flags().Int("bins", 0, "histogram bins")
	analyzeCmd.Flags().Int("classes", 0, "quantile classes for the choropleth export")
	analyzeCmd.Flags().Float64("alpha", 0, "significance level")
	rootCmd.AddCommand(analyzeCmd)
}
