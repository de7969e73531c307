package dualtree

import (
	"log/slog"
	"runtime"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/internal/arena"
	"github.com/hupe1980/dualtree/resource"
	"github.com/hupe1980/dualtree/tree"
)

type options struct {
	leafSize         int
	metric           distance.Metric
	discriminator    tree.Discriminator
	instrument       bool
	workers          int
	arenaChunkSize   int
	arenaMaxChunks   int
	resources        *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
	ids              []int64
}

// Option configures New.
type Option func(*options)

// WithLeafSize sets the maximum number of points stored in a leaf.
// Smaller leaves prune more precisely but add nodes. Values <= 0 select
// tree.DefaultLeafSize.
func WithLeafSize(n int) Option {
	return func(o *options) {
		o.leafSize = n
	}
}

// WithMetric selects the distance metric. The default is
// distance.MetricL2 (squared Euclidean).
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithDiscriminator sets how all-pairs queries over the index itself
// recognize a query point among its candidates. The default,
// tree.SameID, excludes a point from its own neighbors.
func WithDiscriminator(d tree.Discriminator) Option {
	return func(o *options) {
		o.discriminator = d
	}
}

// WithInstrumentation counts distance evaluations and pruning comparisons.
// The totals are reported by Stats. Without it the counting code is compiled
// out of the query engine.
func WithInstrumentation() Option {
	return func(o *options) {
		o.instrument = true
	}
}

// WithWorkers sets the number of goroutines used by all-pairs queries.
// Values <= 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithArenaChunkSize sets the size of the off-heap chunks holding leaf
// points and ids.
func WithArenaChunkSize(bytes int) Option {
	return func(o *options) {
		o.arenaChunkSize = bytes
	}
}

// WithArenaMaxChunks caps the number of arena chunks. Building an index
// that does not fit fails with ErrArenaExhausted.
func WithArenaMaxChunks(n int) Option {
	return func(o *options) {
		o.arenaMaxChunks = n
	}
}

// WithResourceController shares memory and worker budgets across indexes.
// Arena chunks are charged against the memory limit and every all-pairs
// worker holds a worker slot while it runs.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 4 << 30,
//	    MaxQueryWorkers:  8,
//	})
//	a, _ := dualtree.New(ctx, pointsA, 3, dualtree.WithResourceController(rc))
//	b, _ := dualtree.New(ctx, pointsB, 3, dualtree.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithIDs assigns an identifier to every point, in row order. Without it
// row i has id i. Ids must be unique and must not be -1; New returns an
// *ErrInvalidID otherwise.
func WithIDs(ids []int64) Option {
	return func(o *options) {
		o.ids = ids
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &dualtree.BasicMetricsCollector{}
//	idx, _ := dualtree.New(ctx, points, dim, dualtree.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("k-NN queries: %d, avg latency: %dns\n", stats.KNNQueries, stats.KNNAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := dualtree.NewJSONLogger(slog.LevelDebug)
//	idx, _ := dualtree.New(ctx, points, dim, dualtree.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		leafSize:         tree.DefaultLeafSize,
		metric:           distance.MetricL2,
		discriminator:    tree.SameID{},
		arenaChunkSize:   arena.DefaultChunkSize,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.discriminator == nil {
		o.discriminator = tree.SameID{}
	}
	return o
}

type queryOptions struct {
	ids           []int64
	discriminator tree.Discriminator
}

// QueryOption configures the query set of AllKNNOf and AllWithinOf.
type QueryOption func(*queryOptions)

// WithQueryIDs assigns identifiers to the query points, in row order.
// Without it query row i has id i. The same rules as WithIDs apply.
func WithQueryIDs(ids []int64) QueryOption {
	return func(o *queryOptions) {
		o.ids = ids
	}
}

// WithQueryDiscriminator decides which candidates count as the query point
// itself. The default, tree.Disjoint, treats the two sets as unrelated;
// use tree.NewSharedIDs when they overlap.
func WithQueryDiscriminator(d tree.Discriminator) QueryOption {
	return func(o *queryOptions) {
		o.discriminator = d
	}
}

func applyQueryOptions(optFns []QueryOption) queryOptions {
	o := queryOptions{discriminator: tree.Disjoint{}}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.discriminator == nil {
		o.discriminator = tree.Disjoint{}
	}
	return o
}
