package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/layer"
	"github.com/sells-group/mpa-survey/internal/spatial"
)

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Show protected-area size by site",
	Long:  "Projects the protected-area polygons to the target CRS and prints the total area per site name, smallest first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyFlags(cmd, cfg)
		if err := cfg.Validate("areas"); err != nil {
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
		} else if err := layer.CheckExists(opts.RegionsPath); err != nil {
			return err
		}

		regions, err := analysis.LoadRegions(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "areas")
		}
		projected, err := analysis.ProjectRegions(regions, opts.TargetCRS)
		if err != nil {
			return eris.Wrap(err, "areas")
		}

		return formatAreas(cmd.OutOrStdout(), spatial.AreaBySite(projected), opts.TargetCRS)
	},
}

func init() {
	addInputFlags(areasCmd)
	rootCmd.AddCommand(areasCmd)
}

// formatAreas writes a tabular representation of site areas to out.
func formatAreas(out io.Writer, areas []spatial.SiteArea, target crs.CRS) error {
	unit := "m²"
	if target.Geographic() {
		unit = "deg²"
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "SITE\tAREA (%s)\tPARTS\n", unit)
	_, _ = fmt.Fprintln(w, "----\t----\t-----")

	var (
		total float64
		parts int
	)
	for _, a := range areas {
		total += a.Area
		parts += a.Parts
		_, _ = fmt.Fprintf(w, "%s\t%.2f\t%d\n", a.Name, a.Area, a.Parts)
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t%.2f\t%d\n", total, parts)
	return eris.Wrap(w.Flush(), "areas: flush")
}
