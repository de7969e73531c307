package dualtree

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/sink"
)

// countingSink counts accepted records for metrics.
type countingSink[T distance.Float] struct {
	sink.Sink[T]
	n atomic.Uint64
}

func (c *countingSink[T]) Append(ctx context.Context, rec sink.Record[T]) error {
	if err := c.Sink.Append(ctx, rec); err != nil {
		return err
	}
	c.n.Add(1)
	return nil
}
