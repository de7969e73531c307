package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float64
		expected float64
	}{
		{"Simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 27},
		{"Zero", []float64{0, 0, 0}, []float64{0, 0, 0}, 0},
		{"Identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"Mixed", []float64{1, -1}, []float64{-1, 1}, 8},
		{"Empty", []float64{}, []float64{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-12)
		})
	}
}

func TestManhattanAndChebyshev(t *testing.T) {
	a := []float32{1, -2, 3}
	b := []float32{4, 2, 2}

	assert.InDelta(t, 8, Manhattan(a, b), 1e-6)
	assert.InDelta(t, 4, Chebyshev(a, b), 1e-6)
}

func TestProvider(t *testing.T) {
	for _, m := range []Metric{MetricL2, MetricL1, MetricChebyshev} {
		t.Run(m.String(), func(t *testing.T) {
			s, err := Provider[float64](m)
			require.NoError(t, err)
			assert.True(t, s.Valid())
			assert.Equal(t, m.String(), s.Name)
		})
	}

	_, err := Provider[float64](Metric(99))
	require.Error(t, err)
	assert.Equal(t, "Unknown(99)", Metric(99).String())
}

// The fold over per-axis gaps between two points must reproduce the point
// distance; that is what makes box distances a lower bound.
func TestFoldAgreesWithDistance(t *testing.T) {
	a := []float64{0.5, -3, 7, 2}
	b := []float64{2, 1, 7, -1}

	for _, m := range []Metric{MetricL2, MetricL1, MetricChebyshev} {
		t.Run(m.String(), func(t *testing.T) {
			s, err := Provider[float64](m)
			require.NoError(t, err)

			var acc float64
			for i := range a {
				acc = s.Fold(acc, math.Abs(a[i]-b[i]))
			}
			assert.InDelta(t, s.Distance(a, b), acc, 1e-12)
		})
	}
}

func TestEuclidean(t *testing.T) {
	assert.InDelta(t, 5.0, Euclidean(25.0), 1e-12)
	assert.InDelta(t, float32(3), Euclidean(float32(9)), 1e-6)
}

func TestDefault(t *testing.T) {
	s := Default[float32]()
	assert.Equal(t, "L2", s.Name)
	assert.InDelta(t, float32(2), s.Distance([]float32{0, 0}, []float32{1, 1}), 1e-6)
}
