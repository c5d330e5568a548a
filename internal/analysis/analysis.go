// Package analysis runs the survey comparison: load both datasets, project
// them to one CRS, classify observations against the protected areas and
// aggregate the measurements per partition.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/layer"
	"github.com/sells-group/mpa-survey/internal/spatial"
	"github.com/sells-group/mpa-survey/internal/stats"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// Options configures a run.
type Options struct {
	ObservationsPath string
	RegionsPath      string
	MeasurementField string
	RegionNameField  string

	// RegionsDB, when set, reads regions from RegionsTable instead of
	// RegionsPath.
	RegionsDB    layer.Querier
	RegionsTable string
	RegionsGeom  string

	Encoding string
	TempDir  string

	TargetCRS       crs.CRS
	Boundary        spatial.Predicate
	HistogramBins   int
	QuantileClasses int
	Alpha           float64
}

// Result holds every stage output of a run.
type Result struct {
	RunID            string
	StartedAt        time.Time
	TargetCRS        crs.CRS
	Boundary         spatial.Predicate
	MeasurementField string
	Alpha            float64

	// Observations and Regions are expressed in TargetCRS.
	Observations   survey.Observations
	Regions        survey.Regions
	Classification spatial.Classification

	Groups  map[survey.Partition]stats.Summary
	Overall stats.Summary
	// Test is nil when either partition has no valid measurement.
	Test       *stats.MWUResult
	Histogram  stats.Histogram
	Breaks     []float64
	AreaBySite []spatial.SiteArea
	Warnings   []string
}

// Run executes the pipeline. Missing inputs are reported before anything is
// parsed.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := zap.L().With(zap.String("component", "analysis"))
	res := &Result{
		RunID:            uuid.NewString(),
		StartedAt:        time.Now().UTC(),
		TargetCRS:        opts.TargetCRS,
		Boundary:         opts.Boundary,
		MeasurementField: opts.MeasurementField,
		Alpha:            opts.Alpha,
	}
	log = log.With(zap.String("run_id", res.RunID))

	if err := CheckInputs(opts); err != nil {
		return nil, err
	}

	obs, err := LoadObservations(opts)
	if err != nil {
		return nil, err
	}
	regions, err := LoadRegions(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "analysis: run cancelled")
	}

	res.Observations, res.Regions, err = Project(obs, regions, opts.TargetCRS)
	if err != nil {
		return nil, err
	}
	log.Info("datasets projected",
		zap.Stringer("target_crs", opts.TargetCRS),
		zap.Int("observations", len(res.Observations.Items)),
		zap.Int("regions", len(res.Regions.Items)),
	)

	res.Classification, err = spatial.Classify(res.Observations, res.Regions, opts.Boundary)
	if err != nil {
		return nil, err
	}
	res.AreaBySite = spatial.AreaBySite(res.Regions)

	if err := Aggregate(res, opts); err != nil {
		return nil, err
	}

	for _, w := range res.Warnings {
		log.Warn("aggregation warning", zap.String("warning", w))
	}
	log.Info("analysis complete",
		zap.Int("inside", len(res.Classification.Inside)),
		zap.Int("outside", len(res.Classification.Outside)),
		zap.Duration("elapsed", time.Since(res.StartedAt)),
	)
	return res, nil
}

// CheckInputs verifies that every file input exists.
func CheckInputs(opts Options) error {
	if err := layer.CheckExists(opts.ObservationsPath); err != nil {
		return err
	}
	if opts.RegionsDB == nil {
		if err := layer.CheckExists(opts.RegionsPath); err != nil {
			return err
		}
	}
	return nil
}

// LoadObservations reads and binds the observation layer.
func LoadObservations(opts Options) (survey.Observations, error) {
	l, err := layer.Open(opts.ObservationsPath, layer.Options{Encoding: opts.Encoding, TempDir: opts.TempDir})
	if err != nil {
		return survey.Observations{}, err
	}
	return survey.BindObservations(l, opts.MeasurementField)
}

// LoadRegions reads and binds the region layer from a file or PostGIS.
func LoadRegions(ctx context.Context, opts Options) (survey.Regions, error) {
	var (
		l   *layer.Layer
		err error
	)
	if opts.RegionsDB != nil {
		l, err = layer.ReadPostGIS(ctx, opts.RegionsDB, layer.PostGISSource{
			Table:      opts.RegionsTable,
			NameColumn: opts.RegionNameField,
			GeomColumn: opts.RegionsGeom,
		})
	} else {
		l, err = layer.Open(opts.RegionsPath, layer.Options{Encoding: opts.Encoding, TempDir: opts.TempDir})
	}
	if err != nil {
		return survey.Regions{}, err
	}
	return survey.BindRegions(l, opts.RegionNameField)
}

// Aggregate computes the group statistics, the rank test and the
// distribution summaries of a classified result. Insufficient data produces
// warnings, never errors.
func Aggregate(res *Result, opts Options) error {
	if n := res.Classification.Unlocated; n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d observation(s) without geometry counted as %s", n, survey.Outside))
	}

	res.Groups = make(map[survey.Partition]stats.Summary, len(survey.Partitions))
	samples := make(map[survey.Partition][]float64, len(survey.Partitions))

	for _, p := range survey.Partitions {
		values, valid := measurements(res.Classification.Partition(p))
		s := stats.Describe(values, valid)
		res.Groups[p] = s
		samples[p] = stats.Drop(values, valid)
		for _, w := range s.Warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", p, w))
		}
	}

	values, valid := res.Observations.Values()
	res.Overall = stats.Describe(values, valid)

	test, err := stats.MannWhitneyU(samples[survey.Inside], samples[survey.Outside])
	if err != nil {
		res.Warnings = append(res.Warnings, "mann-whitney u: "+eris.Cause(err).Error())
	} else {
		res.Test = &test
	}

	kept := stats.Drop(values, valid)
	res.Histogram, err = stats.NewHistogram(kept, opts.HistogramBins)
	if err != nil {
		return err
	}
	res.Breaks, err = stats.QuantileBreaks(kept, opts.QuantileClasses)
	if err != nil {
		return err
	}
	return nil
}

func measurements(obs []survey.Observation) ([]float64, []bool) {
	values := make([]float64, len(obs))
	valid := make([]bool, len(obs))
	for i, o := range obs {
		values[i] = o.Measurement.Value
		valid[i] = o.Measurement.Valid
	}
	return values, valid
}
