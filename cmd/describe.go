package main

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mpa-survey/internal/failure"
	"github.com/sells-group/mpa-survey/internal/layer"
	"github.com/sells-group/mpa-survey/internal/stats"
	"github.com/sells-group/mpa-survey/internal/survey"
)

var describeCmd = &cobra.Command{
	Use:   "describe <path>",
	Short: "Describe a spatial dataset",
	Long:  "Prints the CRS, geometry types, attribute fields and feature count of a dataset and, with --field, summary statistics of a numeric attribute.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encoding, _ := cmd.Flags().GetString("encoding")
		if encoding == "" {
			encoding = cfg.Input.Encoding
		}
		l, err := layer.Open(args[0], layer.Options{Encoding: encoding})
		if err != nil {
			return eris.Wrap(err, "describe")
		}

		field, _ := cmd.Flags().GetString("field")
		return describeLayer(cmd.OutOrStdout(), l, field)
	},
}

func init() {
	describeCmd.Flags().String("field", "", "numeric attribute to summarize")
	describeCmd.Flags().String("encoding", "", "shapefile text encoding (overrides .cpg)")
	rootCmd.AddCommand(describeCmd)
}

func describeLayer(out io.Writer, l *layer.Layer, field string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Path:\t%s\n", l.Path)
	_, _ = fmt.Fprintf(w, "CRS:\t%s\n", l.CRS)
	_, _ = fmt.Fprintf(w, "Features:\t%d\n", len(l.Features))

	types := l.GeometryTypes()
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "Geometry %s:\t%d\n", name, types[name])
	}
	_, _ = fmt.Fprintf(w, "Fields:\t%v\n", l.Fields)

	if field != "" {
		name := l.FieldName(field)
		if name == "" {
			_ = w.Flush()
			return failure.NewSchemaError(l.Path, eris.Errorf("describe: field %q not found", field))
		}
		values := make([]float64, len(l.Features))
		valid := make([]bool, len(l.Features))
		for i, f := range l.Features {
			m := survey.ParseMeasurement(f.Properties[name])
			values[i], valid[i] = m.Value, m.Valid
		}
		s := stats.Describe(values, valid)

		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "%s\tcount %d\tmissing %d\n", name, s.Count, s.Missing)
		_, _ = fmt.Fprintf(w, "\tmean %.4f\tstd %.4f\n", s.Mean, s.Std)
		_, _ = fmt.Fprintf(w, "\tmin %.4f\tmax %.4f\n", s.Min, s.Max)
		_, _ = fmt.Fprintf(w, "\tq1 %.4f\tmedian %.4f\tq3 %.4f\n", s.Q1, s.Median, s.Q3)
	}
	return eris.Wrap(w.Flush(), "describe: flush")
}
