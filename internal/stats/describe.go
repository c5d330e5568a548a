// Package stats computes the group statistics and the two-sample rank test
// used to compare concentrations inside and outside protected areas.
package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Summary describes one group of measurements. Statistics that cannot be
// computed from the available data are NaN.
type Summary struct {
	Count   int     `json:"count" yaml:"count"`
	Missing int     `json:"missing" yaml:"missing"`
	Mean    float64 `json:"mean" yaml:"mean"`
	Median  float64 `json:"median" yaml:"median"`
	Std     float64 `json:"std" yaml:"std"`
	StdErr  float64 `json:"se" yaml:"se"`
	Min     float64 `json:"min" yaml:"min"`
	Q1      float64 `json:"q1" yaml:"q1"`
	Q3      float64 `json:"q3" yaml:"q3"`
	Max     float64 `json:"max" yaml:"max"`
	// Warnings lists the statistics that were left undefined and why.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Drop returns the values whose valid flag is set. A nil valid slice keeps
// every finite value.
func Drop(values []float64, valid []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if valid != nil && !valid[i] {
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Describe summarizes the valid values. Missing values are dropped, never
// imputed. Std is the sample standard deviation and StdErr is Std/sqrt(Count).
func Describe(values []float64, valid []bool) Summary {
	kept := Drop(values, valid)
	s := Summary{
		Count:   len(kept),
		Missing: len(values) - len(kept),
		Mean:    math.NaN(),
		Median:  math.NaN(),
		Std:     math.NaN(),
		StdErr:  math.NaN(),
		Min:     math.NaN(),
		Q1:      math.NaN(),
		Q3:      math.NaN(),
		Max:     math.NaN(),
	}

	switch s.Count {
	case 0:
		s.Warnings = append(s.Warnings, "no valid measurements: all statistics undefined")
		return s
	case 1:
		s.Warnings = append(s.Warnings, "one valid measurement: std and standard error undefined")
	}

	sorted := slices.Clone(kept)
	slices.Sort(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Median = Quantile(sorted, 0.5)
	s.Q1 = Quantile(sorted, 0.25)
	s.Q3 = Quantile(sorted, 0.75)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]

	if s.Count > 1 {
		s.Std = stat.StdDev(sorted, nil)
		s.StdErr = StdErr(s.Std, s.Count)
	}
	return s
}

// StdErr returns std/sqrt(count), or NaN when count is one or less.
func StdErr(std float64, count int) float64 {
	if count <= 1 {
		return math.NaN()
	}
	return std / math.Sqrt(float64(count))
}

// Quantile returns the p-quantile of sorted using linear interpolation
// between closest ranks. sorted must be in ascending order.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 || math.IsNaN(p) {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
