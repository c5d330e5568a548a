package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := Describe(values, nil)

	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 0, s.Missing)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.InDelta(t, 4.5, s.Median, 1e-12)
	// Sample standard deviation: sqrt(32/7).
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.Std, 1e-12)
	assert.InDelta(t, s.Std/math.Sqrt(8), s.StdErr, 1e-12)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 4.0, s.Q1, 1e-12)
	assert.InDelta(t, 5.5, s.Q3, 1e-12)
	assert.Empty(t, s.Warnings)
}

func TestDescribe_DropsMissing(t *testing.T) {
	// "N/A" and empty strings arrive here as invalid values.
	values := []float64{1, 0, 3, 0, math.NaN()}
	valid := []bool{true, false, true, false, true}

	s := Describe(values, valid)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 3, s.Missing)
	assert.InDelta(t, 2.0, s.Mean, 1e-12)
	assert.InDelta(t, 2.0, s.Median, 1e-12)
	assert.InDelta(t, math.Sqrt2, s.Std, 1e-12)
}

func TestDescribe_InsufficientData(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := Describe(nil, nil)
		assert.Equal(t, 0, s.Count)
		for _, v := range []float64{s.Mean, s.Median, s.Std, s.StdErr, s.Min, s.Max, s.Q1, s.Q3} {
			assert.True(t, math.IsNaN(v))
		}
		require.Len(t, s.Warnings, 1)
	})

	t.Run("single", func(t *testing.T) {
		s := Describe([]float64{3.5}, []bool{true})
		assert.Equal(t, 1, s.Count)
		assert.Equal(t, 3.5, s.Mean)
		assert.Equal(t, 3.5, s.Median)
		assert.True(t, math.IsNaN(s.Std))
		assert.True(t, math.IsNaN(s.StdErr))
		require.Len(t, s.Warnings, 1)
		assert.Contains(t, s.Warnings[0], "standard error")
	})

	t.Run("all missing", func(t *testing.T) {
		s := Describe([]float64{0, 0}, []bool{false, false})
		assert.Equal(t, 0, s.Count)
		assert.Equal(t, 2, s.Missing)
		assert.True(t, math.IsNaN(s.StdErr))
	})
}

func TestStdErr(t *testing.T) {
	tests := []struct {
		std   float64
		count int
		want  float64
	}{
		{2, 4, 1},
		{3, 9, 1},
		{1.5, 100, 0.15},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, StdErr(tt.std, tt.count), 1e-12)
	}
	assert.True(t, math.IsNaN(StdErr(1, 1)))
	assert.True(t, math.IsNaN(StdErr(0, 0)))
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.p), 1e-12)
	}
	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
}
