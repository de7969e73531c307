package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dualtree/distance"
)

func TestBox_PointDistance(t *testing.T) {
	space := distance.Default[float64]()
	b, err := NewBox([]float64{0, 0}, []float64{2, 1})
	require.NoError(t, err)

	tests := []struct {
		name string
		p    []float64
		want float64
	}{
		{"inside", []float64{1, 0.5}, 0},
		{"on boundary", []float64{2, 1}, 0},
		{"left", []float64{-3, 0.5}, 9},
		{"corner", []float64{3, 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.PointDistance(space, tt.p))
		})
	}
}

func TestBox_Distance(t *testing.T) {
	space := distance.Default[float64]()
	a := Box[float64]{Min: []float64{0, 0}, Max: []float64{1, 1}}

	overlap := Box[float64]{Min: []float64{0.5, 0.5}, Max: []float64{2, 2}}
	assert.Equal(t, 0.0, a.Distance(space, overlap))

	apart := Box[float64]{Min: []float64{4, 5}, Max: []float64{6, 6}}
	assert.Equal(t, 25.0, a.Distance(space, apart))
	assert.Equal(t, 25.0, apart.Distance(space, a))
}

func TestBox_DegenerateAxes(t *testing.T) {
	space := distance.Default[float64]()
	point, err := NewBox([]float64{1, 1}, []float64{1, 1})
	require.NoError(t, err)

	assert.Equal(t, 0.0, point.PointDistance(space, []float64{1, 1}))
	assert.Equal(t, 1.0, point.PointDistance(space, []float64{1, 2}))
	assert.Equal(t, 2.0, point.Distance(space, Box[float64]{Min: []float64{2, 2}, Max: []float64{2, 2}}))
}

func TestBox_Chebyshev(t *testing.T) {
	space, err := distance.Provider[float64](distance.MetricChebyshev)
	require.NoError(t, err)
	b := Box[float64]{Min: []float64{0, 0}, Max: []float64{1, 1}}

	assert.Equal(t, 3.0, b.PointDistance(space, []float64{4, 2}))
}

func TestBox_Validate(t *testing.T) {
	_, err := NewBox([]float64{0, 2}, []float64{1, 1})
	var mb *ErrMalformedBox
	require.ErrorAs(t, err, &mb)
	assert.Equal(t, 1, mb.Axis)

	_, err = NewBox([]float64{0}, []float64{1, 1})
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestBox_SplitAndWidest(t *testing.T) {
	b := Box[float64]{Min: []float64{0, 0}, Max: []float64{4, 1}}

	axis, spread := b.Widest()
	assert.Equal(t, 0, axis)
	assert.Equal(t, 4.0, spread)

	lo, hi := b.Split(axis, 3)
	assert.Equal(t, []float64{3, 1}, lo.Max)
	assert.Equal(t, []float64{3, 0}, hi.Min)
	assert.Equal(t, []float64{4, 1}, b.Max, "split must not modify the source box")

	lo, _ = b.Split(0, 10)
	assert.Equal(t, 4.0, lo.Max[0])
}

func TestBox_Print(t *testing.T) {
	b := Box[float64]{Min: []float64{0, -1}, Max: []float64{1.5, 2}}
	assert.Equal(t, "[0, 1.5]\n[-1, 2]\n", b.Print())
}
