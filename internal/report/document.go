package report

import (
	"math"
	"time"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/spatial"
	"github.com/sells-group/mpa-survey/internal/stats"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// Document is the serializable form of an analysis result. Undefined
// statistics are nil.
type Document struct {
	RunID            string             `json:"run_id" yaml:"run_id"`
	StartedAt        time.Time          `json:"started_at" yaml:"started_at"`
	TargetCRS        string             `json:"target_crs" yaml:"target_crs"`
	Boundary         string             `json:"boundary" yaml:"boundary"`
	MeasurementField string             `json:"measurement_field" yaml:"measurement_field"`
	Dataset          Dataset            `json:"dataset" yaml:"dataset"`
	Groups           []Group            `json:"groups" yaml:"groups"`
	Overall          Group              `json:"overall" yaml:"overall"`
	Test             *Test              `json:"test" yaml:"test"`
	Histogram        stats.Histogram    `json:"histogram" yaml:"histogram"`
	QuantileBreaks   []float64          `json:"quantile_breaks" yaml:"quantile_breaks"`
	AreaBySite       []spatial.SiteArea `json:"area_by_site" yaml:"area_by_site"`
	Warnings         []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Dataset describes the inputs of a run.
type Dataset struct {
	ObservationsSource string `json:"observations_source" yaml:"observations_source"`
	RegionsSource      string `json:"regions_source" yaml:"regions_source"`
	Observations       int    `json:"observations" yaml:"observations"`
	Regions            int    `json:"regions" yaml:"regions"`
}

// Group is one row of the group statistics table.
type Group struct {
	Partition string   `json:"partition" yaml:"partition"`
	Size      int      `json:"size" yaml:"size"`
	Count     int      `json:"count" yaml:"count"`
	Missing   int      `json:"missing" yaml:"missing"`
	Mean      *float64 `json:"mean" yaml:"mean"`
	Median    *float64 `json:"median" yaml:"median"`
	Std       *float64 `json:"std" yaml:"std"`
	StdErr    *float64 `json:"se" yaml:"se"`
	Min       *float64 `json:"min" yaml:"min"`
	Q1        *float64 `json:"q1" yaml:"q1"`
	Q3        *float64 `json:"q3" yaml:"q3"`
	Max       *float64 `json:"max" yaml:"max"`
}

// Test is the rank test outcome.
type Test struct {
	Name        string   `json:"name" yaml:"name"`
	Method      string   `json:"method" yaml:"method"`
	N1          int      `json:"n1" yaml:"n1"`
	N2          int      `json:"n2" yaml:"n2"`
	U1          float64  `json:"u1" yaml:"u1"`
	U2          float64  `json:"u2" yaml:"u2"`
	Statistic   float64  `json:"statistic" yaml:"statistic"`
	P           *float64 `json:"p_value" yaml:"p_value"`
	Z           *float64 `json:"z" yaml:"z"`
	Alpha       float64  `json:"alpha" yaml:"alpha"`
	Significant bool     `json:"significant" yaml:"significant"`
}

// NewDocument converts res into a Document.
func NewDocument(res *analysis.Result) Document {
	doc := Document{
		RunID:            res.RunID,
		StartedAt:        res.StartedAt,
		TargetCRS:        res.TargetCRS.String(),
		Boundary:         res.Boundary.String(),
		MeasurementField: res.MeasurementField,
		Dataset: Dataset{
			ObservationsSource: res.Observations.Source,
			RegionsSource:      res.Regions.Source,
			Observations:       len(res.Observations.Items),
			Regions:            len(res.Regions.Items),
		},
		Overall:        newGroup("All", len(res.Observations.Items), res.Overall),
		Histogram:      res.Histogram,
		QuantileBreaks: res.Breaks,
		AreaBySite:     res.AreaBySite,
		Warnings:       res.Warnings,
	}

	for _, p := range survey.Partitions {
		doc.Groups = append(doc.Groups, newGroup(string(p), len(res.Classification.Partition(p)), res.Groups[p]))
	}

	if t := res.Test; t != nil {
		doc.Test = &Test{
			Name:        "Mann-Whitney U",
			Method:      t.Method,
			N1:          t.N1,
			N2:          t.N2,
			U1:          t.U1,
			U2:          t.U2,
			Statistic:   t.Statistic,
			P:           finite(t.P),
			Z:           finite(t.Z),
			Alpha:       res.Alpha,
			Significant: t.Significant(res.Alpha),
		}
	}
	return doc
}

func newGroup(name string, size int, s stats.Summary) Group {
	return Group{
		Partition: name,
		Size:      size,
		Count:     s.Count,
		Missing:   s.Missing,
		Mean:      finite(s.Mean),
		Median:    finite(s.Median),
		Std:       finite(s.Std),
		StdErr:    finite(s.StdErr),
		Min:       finite(s.Min),
		Q1:        finite(s.Q1),
		Q3:        finite(s.Q3),
		Max:       finite(s.Max),
	}
}

// finite returns nil for NaN and infinities.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
