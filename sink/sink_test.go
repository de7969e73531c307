package sink

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector[float64]()
	coords := []float64{1, 2}

	require.NoError(t, c.Append(context.Background(), Record[float64]{PointID: 1, NeighborID: 2, Coords: coords}))
	coords[0] = 99

	recs := c.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, []float64{1, 2}, recs[0].Coords, "coordinates are copied")

	c.Reset()
	assert.Zero(t, c.Len())
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector[float64]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = c.Append(context.Background(), Record[float64]{PointID: int64(w), NeighborID: int64(i)})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 800, c.Len())
}

func TestCollector_Cancelled(t *testing.T) {
	c := NewCollector[float64]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Append(ctx, Record[float64]{}), context.Canceled)
	assert.Zero(t, c.Len())
}

func TestWriteError(t *testing.T) {
	cause := assert.AnError
	err := &WriteError{Written: 3, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "after 3 records")
}
