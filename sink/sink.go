package sink

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/dualtree/distance"
)

// Sink receives range-query hits. Implementations must serialize concurrent
// appends; the query engine calls Append from several workers at once.
//
// rec.Coords aliases the index's off-heap arena and is only valid for the
// duration of Append. A Sink that keeps coordinates must copy them, as
// Collector does; reading a retained slice after Index.Close faults.
type Sink[T distance.Float] interface {
	Append(ctx context.Context, rec Record[T]) error
}

// WriteError reports a failed append. Written counts the records that were
// accepted before the failure.
type WriteError struct {
	Written uint64
	Cause   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sink: write failed after %d records: %v", e.Written, e.Cause)
}

func (e *WriteError) Unwrap() error { return e.Cause }

// Collector is an in-memory Sink. Coordinates are copied on append, so
// records stay valid after the index is closed.
type Collector[T distance.Float] struct {
	mu      sync.Mutex
	records []Record[T]
}

// NewCollector creates an empty Collector.
func NewCollector[T distance.Float]() *Collector[T] {
	return &Collector[T]{}
}

// Append implements Sink.
func (c *Collector[T]) Append(ctx context.Context, rec Record[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Coords = slices.Clone(rec.Coords)

	c.mu.Lock()
	c.records = append(c.records, rec)
	c.mu.Unlock()
	return nil
}

// Records returns the collected records in insertion order.
func (c *Collector[T]) Records() []Record[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

// Len returns the number of collected records.
func (c *Collector[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Reset drops all collected records.
func (c *Collector[T]) Reset() {
	c.mu.Lock()
	c.records = nil
	c.mu.Unlock()
}
