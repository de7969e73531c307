package tree

import "sync/atomic"

// Counter receives the number of distance evaluations and comparisons made
// by the query engine. The engine is generic over its Counter, so NoCount
// means no runtime flag and no counting work.
type Counter interface {
	AddDistances(n uint64)
	AddComparisons(n uint64)
}

// NoCount is the disabled Counter.
type NoCount struct{}

func (NoCount) AddDistances(uint64)   {}
func (NoCount) AddComparisons(uint64) {}

// Count tallies distance evaluations and comparisons. It is safe for use by
// concurrent workers.
type Count struct {
	distances   atomic.Uint64
	comparisons atomic.Uint64
}

func (c *Count) AddDistances(n uint64)   { c.distances.Add(n) }
func (c *Count) AddComparisons(n uint64) { c.comparisons.Add(n) }

// Distances returns the number of distance evaluations so far.
func (c *Count) Distances() uint64 { return c.distances.Load() }

// Comparisons returns the number of comparisons so far.
func (c *Count) Comparisons() uint64 { return c.comparisons.Load() }

// Reset zeroes both counters.
func (c *Count) Reset() {
	c.distances.Store(0)
	c.comparisons.Store(0)
}
