package analysis

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/mpa-survey/internal/crs"
	"github.com/sells-group/mpa-survey/internal/failure"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// ProjectObservations returns a copy of obs expressed in target.
func ProjectObservations(obs survey.Observations, target crs.CRS) (survey.Observations, error) {
	if !obs.CRS.Declared() {
		return survey.Observations{}, failure.NewProjectionError(obs.Source, eris.New("analysis: observations do not declare a CRS"))
	}

	out := survey.Observations{Source: obs.Source, CRS: target, Items: make([]survey.Observation, len(obs.Items))}
	for i, o := range obs.Items {
		if !o.Located() {
			out.Items[i] = o
			continue
		}
		loc, err := crs.TransformCoord(o.Location, obs.CRS, target)
		if err != nil {
			return survey.Observations{}, failure.NewProjectionError(obs.Source, eris.Wrapf(err, "analysis: project observation %d", o.Index))
		}
		out.Items[i] = o.WithLocation(loc)
	}
	return out, nil
}

// ProjectRegions returns a copy of regions expressed in target.
func ProjectRegions(regions survey.Regions, target crs.CRS) (survey.Regions, error) {
	if !regions.CRS.Declared() {
		return survey.Regions{}, failure.NewProjectionError(regions.Source, eris.New("analysis: regions do not declare a CRS"))
	}

	out := survey.Regions{Source: regions.Source, CRS: target, Items: make([]survey.Region, len(regions.Items))}
	for i, r := range regions.Items {
		g, err := crs.Transform(r.Geometry, regions.CRS, target)
		if err != nil {
			return survey.Regions{}, failure.NewProjectionError(regions.Source, eris.Wrapf(err, "analysis: project region %q", r.Name))
		}
		mp, ok := g.(*geom.MultiPolygon)
		if !ok {
			return survey.Regions{}, failure.NewProjectionError(regions.Source, eris.Errorf("analysis: region %q projected to %T", r.Name, g))
		}
		r.Geometry = mp
		out.Items[i] = r
	}
	return out, nil
}

// Project reprojects both datasets to target and checks that they end up in
// the same system.
func Project(obs survey.Observations, regions survey.Regions, target crs.CRS) (survey.Observations, survey.Regions, error) {
	if !target.Declared() {
		return survey.Observations{}, survey.Regions{}, failure.NewProjectionError("", eris.New("analysis: target CRS is undeclared"))
	}

	pObs, err := ProjectObservations(obs, target)
	if err != nil {
		return survey.Observations{}, survey.Regions{}, err
	}
	pRegions, err := ProjectRegions(regions, target)
	if err != nil {
		return survey.Observations{}, survey.Regions{}, err
	}

	if pObs.CRS != pRegions.CRS || pObs.CRS != target {
		return survey.Observations{}, survey.Regions{}, failure.NewProjectionError("", eris.Errorf(
			"analysis: projected systems differ: observations %s, regions %s, target %s", pObs.CRS, pRegions.CRS, target))
	}
	return pObs, pRegions, nil
}
