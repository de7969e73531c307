package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nb(id int64, d float64) Neighbor[float64] {
	return Neighbor[float64]{Distance: d, Point: Point[float64]{ID: id}}
}

func ids(nbs []Neighbor[float64]) []int64 {
	out := make([]int64, len(nbs))
	for i, n := range nbs {
		out[i] = n.Point.ID
	}
	return out
}

func TestSelectK(t *testing.T) {
	cands := []Neighbor[float64]{nb(7, 3), nb(4, 1), nb(9, 1), nb(2, 5), nb(1, 1), nb(3, 0.5)}

	got, cmps := selectK(cands, 3)

	assert.Equal(t, []int64{3, 1, 4}, ids(got))
	assert.Positive(t, cmps)
}

func TestSelectK_Pads(t *testing.T) {
	got, _ := selectK([]Neighbor[float64]{nb(5, 2)}, 3)

	require.Len(t, got, 3)
	assert.Equal(t, int64(5), got[0].Point.ID)
	assert.True(t, got[1].IsSentinel())
	assert.True(t, got[2].IsSentinel())
	assert.True(t, math.IsInf(got[2].Distance, 1))
}

func TestSelectK_SentinelsLast(t *testing.T) {
	cands := []Neighbor[float64]{Sentinel[float64](), nb(8, math.Inf(1)), nb(1, 2)}

	got, _ := selectK(cands, 3)

	assert.Equal(t, []int64{1, 8, NoID}, ids(got))
}

func TestSelectK_ZeroK(t *testing.T) {
	got, _ := selectK([]Neighbor[float64]{nb(1, 1)}, 0)
	assert.Empty(t, got)
}

func TestValidateMode(t *testing.T) {
	assert.NoError(t, ValidateMode[float64](KNearest(1)))
	assert.ErrorIs(t, ValidateMode[float64](KNearest(0)), ErrInvalidK)
	assert.NoError(t, ValidateMode[float64](Within[float64]{Radius: 0}))
	assert.ErrorIs(t, ValidateMode[float64](Within[float64]{Radius: -1}), ErrInvalidRadius)
	assert.ErrorIs(t, ValidateMode[float64](Within[float64]{Radius: math.NaN()}), ErrInvalidRadius)
	assert.ErrorIs(t, ValidateMode[float64](nil), ErrUnknownMode)
	assert.ErrorIs(t, ValidateMode[float64](Within[float32]{Radius: 1}), ErrUnknownMode)
}
