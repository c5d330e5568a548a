package spatial

import (
	"cmp"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// Classification is the result of classifying a set of observations. Both
// partitions preserve input order.
type Classification struct {
	CRS       crs.CRS
	Predicate Predicate
	// All holds every classified observation in input order.
	All     []survey.Observation
	Inside  []survey.Observation
	Outside []survey.Observation
	// Unlocated counts observations without geometry; they are Outside.
	Unlocated int
}

// Partition returns the observations assigned to p.
func (c Classification) Partition(p survey.Partition) []survey.Observation {
	switch p {
	case survey.Inside:
		return c.Inside
	case survey.Outside:
		return c.Outside
	default:
		return nil
	}
}

// Counts returns the number of observations per partition.
func (c Classification) Counts() map[survey.Partition]int {
	return map[survey.Partition]int{
		survey.Inside:  len(c.Inside),
		survey.Outside: len(c.Outside),
	}
}

// Classify assigns every observation to Inside when at least one region
// contains it and Outside otherwise. Observations without a location are
// Outside. Observations and regions must share one declared CRS. Measurement
// validity is not considered.
func Classify(obs survey.Observations, regions survey.Regions, pred Predicate) (Classification, error) {
	if !obs.CRS.Declared() || !regions.CRS.Declared() {
		return Classification{}, failure.NewProjectionError(obs.Source, eris.Errorf(
			"spatial: cannot classify without declared CRS (observations %s, regions %s)", obs.CRS, regions.CRS))
	}
	if obs.CRS != regions.CRS {
		return Classification{}, failure.NewProjectionError(obs.Source, eris.Errorf(
			"spatial: CRS mismatch: observations in %s, regions in %s", obs.CRS, regions.CRS))
	}

	log := zap.L().With(zap.String("component", "spatial"))

	out := Classification{
		CRS:       obs.CRS,
		Predicate: pred,
		All:       make([]survey.Observation, 0, len(obs.Items)),
	}

	var multi int
	for _, o := range obs.Items {
		var names []string
		if o.Located() {
			names = containing(regions.Items, o, pred)
		} else {
			out.Unlocated++
		}
		if len(names) > 1 {
			multi++
		}

		p := survey.Outside
		if len(names) > 0 {
			p = survey.Inside
		}
		classified := o.Classified(p, names)

		out.All = append(out.All, classified)
		if p == survey.Inside {
			out.Inside = append(out.Inside, classified)
		} else {
			out.Outside = append(out.Outside, classified)
		}
	}

	log.Info("observations classified",
		zap.String("crs", obs.CRS.String()),
		zap.String("boundary", pred.String()),
		zap.Int("inside", len(out.Inside)),
		zap.Int("outside", len(out.Outside)),
		zap.Int("in_multiple_regions", multi),
		zap.Int("unlocated", out.Unlocated),
	)
	return out, nil
}

// containing returns the distinct names of the regions containing o, in
// region order.
func containing(regions []survey.Region, o survey.Observation, pred Predicate) []string {
	var names []string
	for _, r := range regions {
		if !Contains(r.Geometry, o.Location, pred) {
			continue
		}
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
	}
	return names
}

// SiteArea is the total area of the regions sharing one name.
type SiteArea struct {
	Name  string  `json:"name" yaml:"name"`
	Area  float64 `json:"area" yaml:"area"`
	Parts int     `json:"parts" yaml:"parts"`
}

// AreaBySite sums region area per name and sorts the result by ascending
// area. Ties are ordered by name.
func AreaBySite(regions survey.Regions) []SiteArea {
	index := make(map[string]int)
	var out []SiteArea
	for _, r := range regions.Items {
		i, ok := index[r.Name]
		if !ok {
			i = len(out)
			index[r.Name] = i
			out = append(out, SiteArea{Name: r.Name})
		}
		out[i].Area += r.Area()
		out[i].Parts++
	}

	slices.SortStableFunc(out, func(a, b SiteArea) int {
		if c := cmp.Compare(a.Area, b.Area); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
