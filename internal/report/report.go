// Package report renders analysis results as text tables, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/mpa-survey/internal/analysis"
)

// Format selects a rendering.
type Format string

// Supported formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", eris.Errorf("report: unknown format %q", s)
	}
}

// Write renders res to w in the given format.
func Write(w io.Writer, res *analysis.Result, format Format) error {
	doc := NewDocument(res)
	switch format {
	case FormatText, "":
		return writeText(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(doc), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return eris.Wrap(err, "report: encode yaml")
		}
		return eris.Wrap(enc.Close(), "report: close yaml encoder")
	default:
		return eris.Errorf("report: unknown format %q", format)
	}
}

const histogramWidth = 40

func writeText(out io.Writer, doc Document) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Run %s\n", doc.RunID)
	_, _ = fmt.Fprintf(w, "Observations:\t%d\t%s\n", doc.Dataset.Observations, doc.Dataset.ObservationsSource)
	_, _ = fmt.Fprintf(w, "Regions:\t%d\t%s\n", doc.Dataset.Regions, doc.Dataset.RegionsSource)
	_, _ = fmt.Fprintf(w, "CRS:\t%s\t\n", doc.TargetCRS)
	_, _ = fmt.Fprintf(w, "Boundary:\t%s\t\n", doc.Boundary)
	_, _ = fmt.Fprintln(w)

	if len(doc.AreaBySite) > 0 {
		_, _ = fmt.Fprintln(w, "SITE\tAREA\tPARTS")
		_, _ = fmt.Fprintln(w, "----\t----\t-----")
		for _, s := range doc.AreaBySite {
			_, _ = fmt.Fprintf(w, "%s\t%.2f\t%d\n", s.Name, s.Area, s.Parts)
		}
		_, _ = fmt.Fprintln(w)
	}

	_, _ = fmt.Fprintf(w, "%s BY PARTITION\n", strings.ToUpper(doc.MeasurementField))
	_, _ = fmt.Fprintln(w, "PARTITION\tMEDIAN\tSTD\tCOUNT\tMEAN\tSE\tMISSING")
	_, _ = fmt.Fprintln(w, "---------\t------\t---\t-----\t----\t--\t-------")
	for _, g := range append(doc.Groups, doc.Overall) {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%d\n",
			g.Partition, num(g.Median), num(g.Std), g.Count, num(g.Mean), num(g.StdErr), g.Missing)
	}
	_, _ = fmt.Fprintln(w)

	if t := doc.Test; t != nil {
		verdict := "not significant"
		if t.Significant {
			verdict = "significant"
		}
		_, _ = fmt.Fprintf(w, "%s (%s): U=%g p=%s, %s at alpha=%g\n",
			t.Name, t.Method, t.Statistic, num(t.P), verdict, t.Alpha)
	} else {
		_, _ = fmt.Fprintln(w, "Mann-Whitney U: not computed")
	}
	_, _ = fmt.Fprintln(w)

	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "report: flush")
	}

	writeHistogram(out, doc)

	for _, warn := range doc.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s\n", warn)
	}
	return nil
}

func writeHistogram(out io.Writer, doc Document) {
	h := doc.Histogram
	if len(h.Counts) == 0 {
		return
	}
	peak := 0
	for _, c := range h.Counts {
		peak = max(peak, c)
	}

	w := tabwriter.NewWriter(out, 0, 0, 1, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintf(out, "%s distribution\n", doc.MeasurementField)
	for i, c := range h.Counts {
		bar := 0
		if peak > 0 {
			bar = c * histogramWidth / peak
		}
		_, _ = fmt.Fprintf(w, "%.4g\t- %.4g\t%d\t %s\n", h.Edges[i], h.Edges[i+1], c, strings.Repeat("#", bar))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", *v)
}
