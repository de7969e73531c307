package dualtree

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/dualtree/blobstore"
	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/internal/arena"
	"github.com/hupe1980/dualtree/sink"
	"github.com/hupe1980/dualtree/tree"
)

// Neighbor is one query result. Coords is a copy owned by the caller.
type Neighbor[T distance.Float] struct {
	ID       int64
	Distance T
	Coords   []T
}

// IsSentinel reports whether n pads a k-NN result that found fewer than k
// candidates.
func (n Neighbor[T]) IsSentinel() bool {
	return n.ID == tree.NoID && math.IsInf(float64(n.Distance), 1)
}

// engine is the query surface shared by the counting and non-counting
// engine instantiations.
type engine[T distance.Float] interface {
	Search(ctx context.Context, q tree.Point[T], mode tree.Mode[T]) ([]tree.Neighbor[T], error)
	AllNearest(ctx context.Context, query *tree.Tree[T], mode tree.Mode[T], opts tree.AllOptions[T]) error
}

// Index is an immutable exact nearest-neighbor index. All methods are safe
// for concurrent use; AllKNN calls on the same index run one at a time
// because they share the index's neighbor buffers.
type Index[T distance.Float] struct {
	opts    options
	tree    *tree.Tree[T]
	counter *tree.Count // nil without instrumentation

	mu     sync.RWMutex // guards tree against Close
	closed bool
	selfMu sync.Mutex // serializes AllKNN
}

// New builds an index over data, a row-major slice of len(data)/dim points.
// The coordinates are copied; data may be reused after New returns.
func New[T distance.Float](ctx context.Context, data []T, dim int, optFns ...Option) (*Index[T], error) {
	o := applyOptions(optFns)
	points := 0
	if dim > 0 {
		points = len(data) / dim
	}

	start := time.Now()
	idx, err := build(ctx, data, dim, o)
	elapsed := time.Since(start)

	nodes := 0
	if idx != nil {
		nodes = idx.tree.NumNodes()
	}
	o.metricsCollector.RecordBuild(points, elapsed, err)
	o.logger.LogBuild(ctx, points, dim, nodes, elapsed, err)
	return idx, err
}

func build[T distance.Float](ctx context.Context, data []T, dim int, o options) (*Index[T], error) {
	space, err := distance.Provider[T](o.metric)
	if err != nil {
		return nil, err
	}
	ds, err := tree.NewFlatDataset(data, dim, o.ids)
	if err != nil {
		return nil, err
	}

	t, err := tree.Build[T](ctx, ds, tree.BuildOptions[T]{
		LeafSize: o.leafSize,
		Space:    space,
		Arena:    o.newArena(),
	})
	if err != nil {
		return nil, translateError(err)
	}

	idx := &Index[T]{opts: o, tree: t}
	if o.instrument {
		idx.counter = &tree.Count{}
	}
	return idx, nil
}

func (o options) newArena() *arena.Arena {
	var aopts []arena.Option
	if o.arenaMaxChunks > 0 {
		aopts = append(aopts, arena.WithMaxChunks(o.arenaMaxChunks))
	}
	if o.resources != nil {
		aopts = append(aopts, arena.WithMemoryAcquirer(o.resources))
	}
	return arena.New(o.arenaChunkSize, aopts...)
}

func (idx *Index[T]) engine(ref *tree.Tree[T], disc tree.Discriminator) engine[T] {
	if idx.counter != nil {
		return tree.NewEngine(ref, disc, idx.counter)
	}
	return tree.NewEngine(ref, disc, tree.NoCount{})
}

func (idx *Index[T]) allOptions(out sink.Sink[T]) tree.AllOptions[T] {
	opts := tree.AllOptions[T]{
		Workers: idx.opts.workers,
		Sink:    out,
	}
	if rc := idx.opts.resources; rc != nil {
		opts.Acquire = rc.AcquireWorker
		opts.Release = rc.ReleaseWorker
	}
	return opts
}

// acquire pins the tree for a query; release with idx.mu.RUnlock.
func (idx *Index[T]) acquire() error {
	idx.mu.RLock()
	if idx.closed {
		idx.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

// Dim returns the dimension of the indexed points.
func (idx *Index[T]) Dim() int { return idx.tree.Dim() }

// Len returns the number of indexed points.
func (idx *Index[T]) Len() int { return idx.tree.Len() }

// Search returns the k nearest indexed points to q, nearest first, ties
// ordered by ascending id. When the index holds fewer than k points the
// result is padded with sentinel neighbors (see Neighbor.IsSentinel).
func (idx *Index[T]) Search(ctx context.Context, q []T, k int) ([]Neighbor[T], error) {
	start := time.Now()
	res, err := idx.search(ctx, q, tree.KNearest(k))
	idx.opts.metricsCollector.RecordKNN(1, k, time.Since(start), err)
	idx.opts.logger.WithK(k).LogQuery(ctx, "knn", 1, time.Since(start), err)
	return res, err
}

// SearchRadius returns every indexed point within distance r of q, nearest
// first, ties ordered by ascending id. The boundary is inclusive.
func (idx *Index[T]) SearchRadius(ctx context.Context, q []T, r T) ([]Neighbor[T], error) {
	start := time.Now()
	res, err := idx.search(ctx, q, tree.Within[T]{Radius: r})
	if err == nil {
		slices.SortFunc(res, func(a, b Neighbor[T]) int {
			return cmp.Or(cmp.Compare(a.Distance, b.Distance), cmp.Compare(a.ID, b.ID))
		})
	}
	idx.opts.metricsCollector.RecordRange(1, uint64(len(res)), time.Since(start), err)
	idx.opts.logger.LogQuery(ctx, "range", 1, time.Since(start), err)
	return res, err
}

func (idx *Index[T]) search(ctx context.Context, q []T, mode tree.Mode[T]) ([]Neighbor[T], error) {
	if err := idx.acquire(); err != nil {
		return nil, err
	}
	defer idx.mu.RUnlock()

	found, err := idx.engine(idx.tree, tree.Disjoint{}).Search(ctx, tree.Point[T]{Coords: q, ID: tree.NoID}, mode)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor[T], len(found))
	for i, nb := range found {
		out[i] = toNeighbor(nb)
	}
	return out, nil
}

func toNeighbor[T distance.Float](nb tree.Neighbor[T]) Neighbor[T] {
	return Neighbor[T]{
		ID:       nb.Point.ID,
		Distance: nb.Distance,
		Coords:   slices.Clone(nb.Point.Coords),
	}
}

// AllKNN finds the k nearest neighbors of every indexed point, excluding
// the point itself. The result is indexed by input row; every row holds
// exactly k neighbors ordered like Search.
func (idx *Index[T]) AllKNN(ctx context.Context, k int) ([][]Neighbor[T], error) {
	start := time.Now()
	res, err := idx.allKNN(ctx, k)
	idx.opts.metricsCollector.RecordKNN(idx.tree.Len(), k, time.Since(start), err)
	idx.opts.logger.WithK(k).LogQuery(ctx, "all_knn", idx.tree.Len(), time.Since(start), err)
	return res, err
}

func (idx *Index[T]) allKNN(ctx context.Context, k int) ([][]Neighbor[T], error) {
	if err := idx.acquire(); err != nil {
		return nil, err
	}
	defer idx.mu.RUnlock()

	idx.selfMu.Lock()
	defer idx.selfMu.Unlock()

	e := idx.engine(idx.tree, idx.opts.discriminator)
	if err := e.AllNearest(ctx, idx.tree, tree.KNearest(k), idx.allOptions(nil)); err != nil {
		return nil, err
	}
	return collectKNN(idx.tree, k), nil
}

// AllKNNOf finds the k nearest indexed points for every row of queries,
// a row-major slice of the index dimension. The result is indexed by query
// row. By default no indexed point is treated as a query point itself; see
// WithQueryDiscriminator.
func (idx *Index[T]) AllKNNOf(ctx context.Context, queries []T, k int, optFns ...QueryOption) ([][]Neighbor[T], error) {
	start := time.Now()
	n := idx.queryLen(queries)
	res, err := idx.allKNNOf(ctx, queries, k, applyQueryOptions(optFns))
	idx.opts.metricsCollector.RecordKNN(n, k, time.Since(start), err)
	idx.opts.logger.WithK(k).LogQuery(ctx, "all_knn", n, time.Since(start), err)
	return res, err
}

func (idx *Index[T]) allKNNOf(ctx context.Context, queries []T, k int, qo queryOptions) ([][]Neighbor[T], error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if err := idx.acquire(); err != nil {
		return nil, err
	}
	defer idx.mu.RUnlock()

	qt, err := idx.buildQueryTree(ctx, queries, qo)
	if err != nil {
		return nil, err
	}
	defer qt.Close()

	e := idx.engine(idx.tree, qo.discriminator)
	if err := e.AllNearest(ctx, qt, tree.KNearest(k), idx.allOptions(nil)); err != nil {
		return nil, err
	}
	return collectKNN(qt, k), nil
}

// collectKNN copies the neighbor buffers of t out by input row.
func collectKNN[T distance.Float](t *tree.Tree[T], k int) [][]Neighbor[T] {
	out := make([][]Neighbor[T], t.Len())
	t.Leaves(func(h tree.Handle, start int) bool {
		n := t.Node(h)
		for i := 0; i < n.Count(); i++ {
			slots := n.Neighbors(i)
			row := make([]Neighbor[T], k)
			for j, s := range slots {
				row[j] = toNeighbor(s.Neighbor)
			}
			out[t.Row(start+i)] = row
		}
		return true
	})
	return out
}

// AllWithin streams every pair of distinct indexed points at most r apart
// into out, once per ordered pair. out must accept concurrent appends.
func (idx *Index[T]) AllWithin(ctx context.Context, r T, out sink.Sink[T]) error {
	if out == nil {
		return ErrNilSink
	}
	start := time.Now()
	counted := &countingSink[T]{Sink: out}
	err := idx.allWithin(ctx, r, counted)
	idx.opts.metricsCollector.RecordRange(idx.tree.Len(), counted.n.Load(), time.Since(start), err)
	idx.opts.logger.LogQuery(ctx, "all_range", idx.tree.Len(), time.Since(start), err)
	return err
}

func (idx *Index[T]) allWithin(ctx context.Context, r T, out sink.Sink[T]) error {
	if err := idx.acquire(); err != nil {
		return err
	}
	defer idx.mu.RUnlock()

	e := idx.engine(idx.tree, idx.opts.discriminator)
	return e.AllNearest(ctx, idx.tree, tree.Within[T]{Radius: r}, idx.allOptions(out))
}

// AllWithinOf streams, for every row of queries, each indexed point within
// distance r into out. Record.PointID is the query id.
func (idx *Index[T]) AllWithinOf(ctx context.Context, queries []T, r T, out sink.Sink[T], optFns ...QueryOption) error {
	if out == nil {
		return ErrNilSink
	}
	start := time.Now()
	n := idx.queryLen(queries)
	counted := &countingSink[T]{Sink: out}
	err := idx.allWithinOf(ctx, queries, r, counted, applyQueryOptions(optFns))
	idx.opts.metricsCollector.RecordRange(n, counted.n.Load(), time.Since(start), err)
	idx.opts.logger.LogQuery(ctx, "all_range", n, time.Since(start), err)
	return err
}

func (idx *Index[T]) allWithinOf(ctx context.Context, queries []T, r T, out sink.Sink[T], qo queryOptions) error {
	if err := tree.ValidateMode[T](tree.Within[T]{Radius: r}); err != nil {
		return err
	}
	if err := idx.acquire(); err != nil {
		return err
	}
	defer idx.mu.RUnlock()

	qt, err := idx.buildQueryTree(ctx, queries, qo)
	if err != nil {
		return err
	}
	defer qt.Close()

	e := idx.engine(idx.tree, qo.discriminator)
	return e.AllNearest(ctx, qt, tree.Within[T]{Radius: r}, idx.allOptions(out))
}

// AllWithinToBlob runs AllWithin into a record stream stored as blob name.
// The blob is only published when the whole query succeeds; on error the
// partial blob is discarded.
func (idx *Index[T]) AllWithinToBlob(ctx context.Context, store blobstore.BlobStore, name string, r T, opts ...sink.StreamOption) error {
	if idx.opts.resources != nil {
		opts = append([]sink.StreamOption{sink.WithIOController(idx.opts.resources)}, opts...)
	}
	bs, err := sink.NewBlobSink[T](ctx, store, name, idx.tree.Dim(), opts...)
	if err != nil {
		return err
	}
	if err := idx.AllWithin(ctx, r, bs); err != nil {
		return errors.Join(err, bs.Abort(ctx))
	}
	return bs.Commit(ctx)
}

func (idx *Index[T]) queryLen(queries []T) int {
	if d := idx.tree.Dim(); d > 0 {
		return len(queries) / d
	}
	return 0
}

func (idx *Index[T]) buildQueryTree(ctx context.Context, queries []T, qo queryOptions) (*tree.Tree[T], error) {
	ds, err := tree.NewFlatDataset(queries, idx.tree.Dim(), qo.ids)
	if err != nil {
		return nil, err
	}
	qt, err := tree.Build[T](ctx, ds, tree.BuildOptions[T]{
		LeafSize: idx.opts.leafSize,
		Space:    idx.tree.Space(),
		Arena:    idx.opts.newArena(),
	})
	return qt, translateError(err)
}

// Stats describes an index.
type Stats struct {
	Points    int
	Dimension int
	Nodes     int
	Leaves    int
	Metric    string

	ArenaChunks        uint64
	ArenaBytesReserved uint64
	ArenaBytesUsed     uint64

	// Distances and Comparisons are cumulative over all queries; they stay
	// zero without WithInstrumentation.
	Distances   uint64
	Comparisons uint64
}

// Stats returns a snapshot of the index statistics.
func (idx *Index[T]) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	s := Stats{
		Points:    idx.tree.Len(),
		Dimension: idx.tree.Dim(),
		Nodes:     idx.tree.NumNodes(),
		Metric:    idx.tree.Space().Name,
	}
	idx.tree.Leaves(func(tree.Handle, int) bool {
		s.Leaves++
		return true
	})
	as := idx.tree.ArenaStats()
	s.ArenaChunks = as.ActiveChunks
	s.ArenaBytesReserved = as.BytesReserved
	s.ArenaBytesUsed = as.BytesUsed
	if idx.counter != nil {
		s.Distances = idx.counter.Distances()
		s.Comparisons = idx.counter.Comparisons()
	}
	return s
}

// ResetCounters zeroes the instrumentation counters.
func (idx *Index[T]) ResetCounters() {
	if idx.counter != nil {
		idx.counter.Reset()
	}
}

// Check verifies the structural invariants of the tree.
func (idx *Index[T]) Check() error {
	if err := idx.acquire(); err != nil {
		return err
	}
	defer idx.mu.RUnlock()
	return idx.tree.Check()
}

// Print renders the tree for debugging.
func (idx *Index[T]) Print() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree.Print()
}

// Close releases the off-heap memory of the index. It waits for running
// queries; later calls fail with ErrClosed. Close is idempotent.
func (idx *Index[T]) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.tree.Close()
}
