package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistogram(t *testing.T) {
	h, err := NewHistogram([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 4, 6, 8, 10}, h.Edges)
	// Last bin includes its upper edge.
	assert.Equal(t, []int{2, 2, 2, 2, 3}, h.Counts)
	assert.Equal(t, 11, h.Total())
}

func TestNewHistogram_EdgeCases(t *testing.T) {
	h, err := NewHistogram([]float64{3, 3, 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5, 3, 3.5}, h.Edges)
	assert.Equal(t, []int{0, 3}, h.Counts)

	h, err = NewHistogram(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Total())
	assert.Len(t, h.Edges, 5)

	_, err = NewHistogram([]float64{1}, 0)
	assert.Error(t, err)

	_, err = NewHistogram([]float64{1, math.NaN()}, 3)
	assert.Error(t, err)
}

func TestNewHistogram_UnsortedInput(t *testing.T) {
	values := []float64{0.3, 0.1, 0.2, 0.7, 0.9, 0.5, 1.0}
	h, err := NewHistogram(values, 2)
	require.NoError(t, err)

	// The maximum lands in the closed last bin.
	assert.InDeltaSlice(t, []float64{0.1, 0.55, 1.0}, h.Edges, 1e-12)
	assert.Equal(t, []int{4, 3}, h.Counts)
	assert.Equal(t, []float64{0.3, 0.1, 0.2, 0.7, 0.9, 0.5, 1.0}, values, "input is not reordered")
}

func TestQuantileBreaks(t *testing.T) {
	breaks, err := QuantileBreaks([]float64{5, 1, 4, 2, 3}, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, breaks)

	tests := []struct {
		v    float64
		want int
	}{
		{1, 0},
		{2, 0},
		{2.5, 1},
		{4, 2},
		{5, 3},
		{99, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassOf(tt.v, breaks), "value %v", tt.v)
	}

	assert.Equal(t, -1, ClassOf(1, nil))

	empty, err := QuantileBreaks(nil, 3)
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = QuantileBreaks([]float64{1}, 0)
	assert.Error(t, err)
}
