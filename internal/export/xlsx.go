package export

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/mpa-survey/internal/analysis"
	"github.com/sells-group/mpa-survey/internal/survey"
)

// Sheet names of the XLSX export.
const (
	SheetObservations = "observations"
	SheetGroups       = "groups"
	SheetAreas        = "areas"
	SheetTest         = "test"
)

// ToXLSX writes a workbook with one sheet per table: classified
// observations, group statistics, area by site and the rank test.
func ToXLSX(path string, res *analysis.Result) error {
	f := xlsx.NewFile()

	obs, err := f.AddSheet(SheetObservations)
	if err != nil {
		return eris.Wrap(err, "xlsx: add observations sheet")
	}
	addHeader(obs, "index", "x", "y", "partition", "measurement", "quantile_class", "regions")
	for _, o := range res.Classification.All {
		row := obs.AddRow()
		row.AddCell().SetInt(o.Index)
		if o.Located() {
			addFloat(row, o.Location.X())
			addFloat(row, o.Location.Y())
		} else {
			row.AddCell()
			row.AddCell()
		}
		row.AddCell().SetString(string(o.Partition))
		if o.Measurement.Valid {
			addFloat(row, o.Measurement.Value)
		} else {
			row.AddCell()
		}
		if c, ok := quantileClass(o.Measurement, res.Breaks).(int); ok {
			row.AddCell().SetInt(c)
		} else {
			row.AddCell()
		}
		row.AddCell().SetString(strings.Join(o.Regions, "; "))
	}

	groups, err := f.AddSheet(SheetGroups)
	if err != nil {
		return eris.Wrap(err, "xlsx: add groups sheet")
	}
	addHeader(groups, "partition", "median", "std", "count", "mean", "se", "missing", "min", "q1", "q3", "max")
	for _, p := range survey.Partitions {
		s := res.Groups[p]
		row := groups.AddRow()
		row.AddCell().SetString(string(p))
		addFloat(row, s.Median)
		addFloat(row, s.Std)
		row.AddCell().SetInt(s.Count)
		addFloat(row, s.Mean)
		addFloat(row, s.StdErr)
		row.AddCell().SetInt(s.Missing)
		addFloat(row, s.Min)
		addFloat(row, s.Q1)
		addFloat(row, s.Q3)
		addFloat(row, s.Max)
	}

	areas, err := f.AddSheet(SheetAreas)
	if err != nil {
		return eris.Wrap(err, "xlsx: add areas sheet")
	}
	addHeader(areas, "site", "area", "parts")
	for _, a := range res.AreaBySite {
		row := areas.AddRow()
		row.AddCell().SetString(a.Name)
		addFloat(row, a.Area)
		row.AddCell().SetInt(a.Parts)
	}

	test, err := f.AddSheet(SheetTest)
	if err != nil {
		return eris.Wrap(err, "xlsx: add test sheet")
	}
	addHeader(test, "method", "n1", "n2", "u1", "u2", "p_value", "alpha")
	if t := res.Test; t != nil {
		row := test.AddRow()
		row.AddCell().SetString(t.Method)
		row.AddCell().SetInt(t.N1)
		row.AddCell().SetInt(t.N2)
		addFloat(row, t.U1)
		addFloat(row, t.U2)
		addFloat(row, t.P)
		addFloat(row, res.Alpha)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}

// addFloat appends a numeric cell, leaving it blank for undefined values.
func addFloat(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	cell.SetFloat(v)
}
