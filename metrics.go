package dualtree

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    buildHistogram prometheus.Histogram
//	    knnCounter     prometheus.Counter
//	}
//
//	func (p *PrometheusCollector) RecordKNN(queries, k int, duration time.Duration, err error) {
//	    p.knnCounter.Add(float64(queries))
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordBuild is called after each index build with the number of
	// indexed points.
	RecordBuild(points int, duration time.Duration, err error)

	// RecordKNN is called after each k-nearest-neighbor query. queries is
	// the number of query points (1 for Search).
	RecordKNN(queries, k int, duration time.Duration, err error)

	// RecordRange is called after each radius query. hits is the number of
	// neighbors found or streamed.
	RecordRange(queries int, hits uint64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBuild(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordKNN(int, int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordRange(int, uint64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildPoints     atomic.Int64
	BuildTotalNanos atomic.Int64
	KNNCount        atomic.Int64
	KNNErrors       atomic.Int64
	KNNQueries      atomic.Int64
	KNNTotalNanos   atomic.Int64
	RangeCount      atomic.Int64
	RangeErrors     atomic.Int64
	RangeQueries    atomic.Int64
	RangeHits       atomic.Uint64
	RangeTotalNanos atomic.Int64
}

// RecordBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBuild(points int, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.BuildPoints.Add(int64(points))
}

// RecordKNN implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKNN(queries, k int, duration time.Duration, err error) {
	b.KNNCount.Add(1)
	b.KNNQueries.Add(int64(queries))
	b.KNNTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.KNNErrors.Add(1)
	}
}

// RecordRange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRange(queries int, hits uint64, duration time.Duration, err error) {
	b.RangeCount.Add(1)
	b.RangeQueries.Add(int64(queries))
	b.RangeHits.Add(hits)
	b.RangeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RangeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:    b.BuildCount.Load(),
		BuildErrors:   b.BuildErrors.Load(),
		BuildPoints:   b.BuildPoints.Load(),
		BuildAvgNanos: avgNanos(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		KNNCount:      b.KNNCount.Load(),
		KNNErrors:     b.KNNErrors.Load(),
		KNNQueries:    b.KNNQueries.Load(),
		KNNAvgNanos:   avgNanos(b.KNNTotalNanos.Load(), b.KNNCount.Load()),
		RangeCount:    b.RangeCount.Load(),
		RangeErrors:   b.RangeErrors.Load(),
		RangeQueries:  b.RangeQueries.Load(),
		RangeHits:     b.RangeHits.Load(),
		RangeAvgNanos: avgNanos(b.RangeTotalNanos.Load(), b.RangeCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	BuildCount    int64
	BuildErrors   int64
	BuildPoints   int64
	BuildAvgNanos int64
	KNNCount      int64
	KNNErrors     int64
	KNNQueries    int64
	KNNAvgNanos   int64
	RangeCount    int64
	RangeErrors   int64
	RangeQueries  int64
	RangeHits     uint64
	RangeAvgNanos int64
}
