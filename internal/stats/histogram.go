package stats

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Histogram holds equal-width bin counts. Edges has one more element than
// Counts; every bin is half open except the last, which includes its upper
// edge.
type Histogram struct {
	Edges  []float64 `json:"edges" yaml:"edges"`
	Counts []int     `json:"counts" yaml:"counts"`
}

// NewHistogram bins values into n equal-width bins spanning their range. A
// zero-width range is widened by 0.5 on both sides.
func NewHistogram(values []float64, n int) (Histogram, error) {
	if n <= 0 {
		return Histogram{}, eris.Errorf("stats: histogram needs a positive bin count, got %d", n)
	}

	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Histogram{}, eris.Errorf("stats: histogram value %g is not finite", v)
		}
	}

	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = slices.Min(values), slices.Max(values)
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	h := Histogram{Edges: floats.Span(make([]float64, n+1), lo, hi), Counts: make([]int, n)}
	h.Edges[n] = hi
	if len(values) == 0 {
		return h, nil
	}

	// stat.Histogram bins are half open; nudging the last divider up closes
	// the final bin on hi.
	dividers := slices.Clone(h.Edges)
	dividers[n] = math.Nextafter(hi, math.Inf(1))
	sorted := slices.Sorted(slices.Values(values))

	for i, c := range stat.Histogram(nil, dividers, sorted, nil) {
		h.Counts[i] = int(c)
	}
	return h, nil
}

// Total returns the number of binned values.
func (h Histogram) Total() int {
	var total int
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// QuantileBreaks returns the k+1 class boundaries splitting values into k
// classes of roughly equal size, from the minimum to the maximum.
func QuantileBreaks(values []float64, k int) ([]float64, error) {
	if k <= 0 {
		return nil, eris.Errorf("stats: quantile classes must be positive, got %d", k)
	}
	if len(values) == 0 {
		return nil, nil
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	breaks := make([]float64, k+1)
	for i := range breaks {
		breaks[i] = Quantile(sorted, float64(i)/float64(k))
	}
	return breaks, nil
}

// ClassOf returns the zero-based class of v given quantile breaks: the first
// class whose upper bound is at least v. It returns -1 when breaks is empty
// or v is NaN.
func ClassOf(v float64, breaks []float64) int {
	if len(breaks) < 2 || math.IsNaN(v) {
		return -1
	}
	for i := 1; i < len(breaks); i++ {
		if v <= breaks[i] {
			return i - 1
		}
	}
	return len(breaks) - 2
}
