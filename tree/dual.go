package tree

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/sink"
)

// subtreesPerWorker controls how finely the query tree is split.
const subtreesPerWorker = 4

// AllOptions configures AllNearest.
type AllOptions[T distance.Float] struct {
	// Workers is the number of concurrent traversals; <= 1 runs inline.
	Workers int
	// Sink receives range hits. Required for Within, ignored for KNearest.
	Sink sink.Sink[T]
	// Acquire, when set, is called before each parallel traversal starts
	// and Release after it ends; it bounds concurrency across queries.
	Acquire func(ctx context.Context) error
	Release func()
}

// AllNearest finds the neighbors of every point of query in the reference
// tree with a dual-tree traversal. query may be the reference tree itself.
//
// With KNearest, each leaf of query gets its neighbor buffer reset and
// filled; read the results with Node.Neighbors or Tree.Leaves. With Within,
// every hit is streamed to opts.Sink.
//
// Disjoint query subtrees are distributed across opts.Workers goroutines.
// Each worker writes only the neighbor buffers of its own query points.
// Cancelling ctx stops all workers at their next node visit.
func (e *Engine[T, C]) AllNearest(ctx context.Context, query *Tree[T], mode Mode[T], opts AllOptions[T]) error {
	if err := ValidateMode[T](mode); err != nil {
		return err
	}
	if query.dim != e.ref.dim {
		return &ErrDimensionMismatch{Expected: e.ref.dim, Actual: query.dim}
	}
	if _, ok := mode.(Within[T]); ok && opts.Sink == nil {
		return errNoSink
	}

	if k, ok := mode.(KNearest); ok {
		query.InitKNeighbors(int(k))
	}
	if query.root == NilHandle || e.ref.root == NilHandle {
		return nil
	}

	d := &dualSearch[T, C]{
		Engine: e,
		query:  query,
		mode:   mode,
		out:    opts.Sink,
		bounds: make([]T, len(query.nodes)),
	}
	inf := T(math.Inf(1))
	for i := range d.bounds {
		d.bounds[i] = inf
	}

	if opts.Workers <= 1 {
		return d.visit(ctx, query.root, e.ref.root)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, h := range query.frontier(opts.Workers * subtreesPerWorker) {
		g.Go(func() error {
			if opts.Acquire != nil {
				if err := opts.Acquire(gctx); err != nil {
					return err
				}
				defer opts.Release()
			}
			return d.visit(gctx, h, e.ref.root)
		})
	}
	return g.Wait()
}

type dualSearch[T distance.Float, C Counter] struct {
	*Engine[T, C]
	query *Tree[T]
	mode  Mode[T]
	out   sink.Sink[T]
	// bounds[h] is the largest k-th neighbor distance of any point under
	// query node h. Workers own disjoint query subtrees, so writes never
	// collide.
	bounds []T
}

func (d *dualSearch[T, C]) visit(ctx context.Context, q, r Handle) error {
	d.counter.AddDistances(1)
	dist := d.query.nodes[q].box.Distance(d.space, d.ref.nodes[r].box)
	return d.dual(ctx, q, r, dist)
}

func (d *dualSearch[T, C]) bound(q Handle) T {
	if w, ok := d.mode.(Within[T]); ok {
		return w.Radius
	}
	return d.bounds[q]
}

func (d *dualSearch[T, C]) dual(ctx context.Context, q, r Handle, dist T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Strict: an equally distant node may still hold a smaller id.
	d.counter.AddComparisons(1)
	if dist > d.bound(q) {
		return nil
	}

	qn, rn := &d.query.nodes[q], &d.ref.nodes[r]
	switch {
	case qn.IsLeaf() && rn.IsLeaf():
		b, err := d.FindAllNearest(ctx, qn, rn, d.bounds[q], d.mode, d.out)
		d.bounds[q] = b
		return err

	case qn.IsLeaf():
		return d.descendReference(ctx, q, r)

	case rn.IsLeaf():
		for _, c := range [2]Handle{qn.left, qn.right} {
			if err := d.visit(ctx, c, r); err != nil {
				return err
			}
		}

	default:
		for _, c := range [2]Handle{qn.left, qn.right} {
			if err := d.descendReference(ctx, c, r); err != nil {
				return err
			}
		}
	}

	d.counter.AddComparisons(1)
	d.bounds[q] = max(d.bounds[qn.left], d.bounds[qn.right])
	return nil
}

// descendReference visits the children of reference node r against query
// node q, nearer child first so the farther one meets a tighter bound.
func (d *dualSearch[T, C]) descendReference(ctx context.Context, q, r Handle) error {
	rn := &d.ref.nodes[r]
	near, far := d.ClosestNode(&d.query.nodes[q], rn.left, rn.right)
	if err := d.dual(ctx, q, near.Node, near.Distance); err != nil {
		return err
	}
	return d.dual(ctx, q, far.Node, far.Distance)
}
