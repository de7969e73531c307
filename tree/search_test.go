package tree

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/testutil"
)

func toHits(nbs []Neighbor[float64]) []testutil.Hit {
	var out []testutil.Hit
	for _, n := range nbs {
		if n.IsSentinel() {
			continue
		}
		out = append(out, testutil.Hit{ID: n.Point.ID, Distance: n.Distance})
	}
	return out
}

func TestSearch_Scenario(t *testing.T) {
	tr := buildTree(t, squarePoints, 2, 1)
	e := NewEngine(tr, SameID{}, NoCount{})

	got, err := e.Search(context.Background(), Point[float64]{Coords: []float64{0, 0}, ID: 0}, KNearest(2))
	require.NoError(t, err)

	assert.Equal(t, []testutil.Hit{{ID: 1, Distance: 1}, {ID: 2, Distance: 1}}, toHits(got))
}

func TestSearch_MatchesLinearScan(t *testing.T) {
	rng := testutil.NewRNG(4711)
	space := distance.Default[float64]()

	datasets := map[string][]float64{
		"uniform":   testutil.UniformPoints[float64](rng, 400, 3),
		"clustered": testutil.ClusteredPoints[float64](rng, 400, 3, 4, 0.02),
		"grid":      testutil.GridPoints[float64](7, 3),
	}
	for name, data := range datasets {
		t.Run(name, func(t *testing.T) {
			tr := buildTree(t, data, 3, 5)
			e := NewEngine(tr, SameID{}, NoCount{})

			for i := 0; i < len(data)/3; i += 13 {
				q := Point[float64]{Coords: data[i*3 : i*3+3], ID: int64(i)}
				for _, k := range []int{1, 4, 10} {
					got, err := e.Search(context.Background(), q, KNearest(k))
					require.NoError(t, err)
					require.Len(t, got, k)
					assert.Equal(t, testutil.ExactKNN(space, data, 3, q.Coords, q.ID, k), toHits(got), "query %d k=%d", i, k)
				}

				r := 0.05
				if name == "grid" {
					r = 2
				}
				got, err := e.Search(context.Background(), q, Within[float64]{Radius: r})
				require.NoError(t, err)
				assert.ElementsMatch(t, testutil.ExactRange(space, data, 3, q.Coords, q.ID, r), toHits(got), "query %d", i)
			}
		})
	}
}

func TestSearch_ExternalPoint(t *testing.T) {
	data := testutil.UniformPoints[float64](testutil.NewRNG(5), 200, 2)
	tr := buildTree(t, data, 2, 4)
	e := NewEngine(tr, SameID{}, NoCount{})
	q := []float64{0.5, 0.5}

	got, err := e.Search(context.Background(), Point[float64]{Coords: q, ID: NoID}, KNearest(3))
	require.NoError(t, err)

	assert.Equal(t, testutil.ExactKNN(distance.Default[float64](), data, 2, q, NoID, 3), toHits(got))
}

func TestSearch_FewerThanK(t *testing.T) {
	tr := buildTree(t, []float64{0, 0, 1, 1, 2, 2}, 2, 1)
	e := NewEngine(tr, SameID{}, NoCount{})

	got, err := e.Search(context.Background(), Point[float64]{Coords: []float64{0, 0}, ID: 0}, KNearest(5))
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, []int64{1, 2, NoID, NoID, NoID}, ids(got))
}

func TestSearch_EmptyTree(t *testing.T) {
	tr := buildTree(t, nil, 2, 4)
	e := NewEngine(tr, nil, NoCount{})

	got, err := e.Search(context.Background(), Point[float64]{Coords: []float64{0, 0}, ID: NoID}, KNearest(2))
	require.NoError(t, err)
	assert.Equal(t, []int64{NoID, NoID}, ids(got))

	got, err = e.Search(context.Background(), Point[float64]{Coords: []float64{0, 0}, ID: NoID}, Within[float64]{Radius: 1})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_Validation(t *testing.T) {
	tr := buildTree(t, squarePoints, 2, 2)
	e := NewEngine(tr, nil, NoCount{})
	ctx := context.Background()

	_, err := e.Search(ctx, Point[float64]{Coords: []float64{0, 0, 0}}, KNearest(1))
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)

	_, err = e.Search(ctx, Point[float64]{Coords: []float64{0, 0}}, KNearest(0))
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = e.Search(ctx, Point[float64]{Coords: []float64{0, 0}}, Within[float64]{Radius: -1})
	assert.ErrorIs(t, err, ErrInvalidRadius)
}

func TestSearch_InvalidCoordinate(t *testing.T) {
	tr := buildTree(t, squarePoints, 2, 1)
	e := NewEngine(tr, nil, &Count{})

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		for _, mode := range []Mode[float64]{KNearest(1), Within[float64]{Radius: 1}} {
			got, err := e.Search(context.Background(), Point[float64]{Coords: []float64{0, v}, ID: NoID}, mode)
			var ic *ErrInvalidCoordinate
			require.ErrorAs(t, err, &ic)
			assert.Equal(t, 1, ic.Axis)
			assert.Nil(t, got)
		}
	}
	assert.Zero(t, e.Counter().Distances())
}

func TestSearch_Cancelled(t *testing.T) {
	tr := buildTree(t, squarePoints, 2, 1)
	e := NewEngine(tr, nil, NoCount{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Search(ctx, Point[float64]{Coords: []float64{0, 0}, ID: NoID}, KNearest(1))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_Float32(t *testing.T) {
	data := testutil.UniformPoints[float32](testutil.NewRNG(9), 100, 4)
	ds, err := NewFlatDataset(data, 4, nil)
	require.NoError(t, err)
	tr, err := Build[float32](context.Background(), ds, BuildOptions[float32]{LeafSize: 3})
	require.NoError(t, err)
	defer tr.Close()
	e := NewEngine(tr, SameID{}, &Count{})

	got, err := e.Search(context.Background(), Point[float32]{Coords: data[:4], ID: 0}, KNearest(3))
	require.NoError(t, err)

	want := testutil.ExactKNN(distance.Default[float32](), data, 4, data[:4], 0, 3)
	require.Len(t, got, 3)
	for i, h := range want {
		assert.Equal(t, h.ID, got[i].Point.ID)
	}
	assert.Positive(t, e.Counter().Distances())
}
