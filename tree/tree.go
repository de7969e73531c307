package tree

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/internal/arena"
)

// DefaultLeafSize is the maximum number of points per leaf used by Build
// when no leaf size is given.
const DefaultLeafSize = 20

// Tree is a built spatial index. Apart from the neighbor buffers prepared by
// k-NN queries, a Tree is immutable after Build and may be queried
// concurrently.
type Tree[T distance.Float] struct {
	dim   int
	space distance.Space[T]
	arena *arena.Arena
	nodes []Node[T]
	root  Handle
	// rows maps tree order back to dataset row indices.
	rows []int
}

// BuildOptions configures Build.
type BuildOptions[T distance.Float] struct {
	// LeafSize bounds the points per leaf; <= 0 means DefaultLeafSize.
	LeafSize int
	// Space is the metric; the zero value means squared Euclidean.
	Space distance.Space[T]
	// Arena backs the point buffers. Ownership passes to the tree; when nil
	// the tree creates its own.
	Arena *arena.Arena
}

// Build partitions ds into a tree of bounding boxes by recursive median
// splits on the widest axis.
func Build[T distance.Float](ctx context.Context, ds Dataset[T], opts BuildOptions[T]) (*Tree[T], error) {
	if err := validateDataset(ds); err != nil {
		return nil, err
	}
	if opts.LeafSize <= 0 {
		opts.LeafSize = DefaultLeafSize
	}
	if !opts.Space.Valid() {
		opts.Space = distance.Default[T]()
	}
	if opts.Arena == nil {
		opts.Arena = arena.New(arena.DefaultChunkSize)
	}

	n := ds.Len()
	t := &Tree[T]{
		dim:   ds.Dim(),
		space: opts.Space,
		arena: opts.Arena,
		root:  NilHandle,
		rows:  make([]int, n),
	}
	for i := range t.rows {
		t.rows[i] = i
	}
	if n == 0 {
		return t, nil
	}

	b := &builder[T]{
		tree:     t,
		ds:       ds,
		view:     permuted[T]{ds: ds, rows: t.rows},
		leafSize: opts.LeafSize,
	}
	t.nodes = make([]Node[T], 0, 2*((n+opts.LeafSize-1)/opts.LeafSize))

	root, err := b.build(ctx, 0, n)
	if err != nil {
		_ = t.arena.Free()
		return nil, err
	}
	t.root = root
	return t, nil
}

type builder[T distance.Float] struct {
	tree     *Tree[T]
	ds       Dataset[T]
	view     permuted[T]
	leafSize int
}

func (b *builder[T]) build(ctx context.Context, start, end int) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return NilHandle, err
	}
	t := b.tree
	count := end - start

	box, stats, err := b.summarize(ctx, start, end)
	if err != nil {
		return NilHandle, err
	}

	h := Handle(len(t.nodes))
	t.nodes = append(t.nodes, Node[T]{})

	if count <= b.leafSize {
		if err := t.nodes[h].InitLeaf(ctx, t.arena, box, stats, int(h), start, count, t.dim, b.view); err != nil {
			return NilHandle, err
		}
		return h, nil
	}

	axis, _ := box.Widest()
	b.sortRows(start, end, axis)
	mid := start + count/2

	t.nodes[h].InitInternal(box, stats, int(h), count)

	left, err := b.build(ctx, start, mid)
	if err != nil {
		return NilHandle, err
	}
	right, err := b.build(ctx, mid, end)
	if err != nil {
		return NilHandle, err
	}
	// t.nodes may have grown; index again instead of keeping a pointer.
	t.nodes[h].SetChildren(left, right)
	return h, nil
}

// summarize computes the tight bounding box and centroid of rows
// [start, end), allocated from the arena.
func (b *builder[T]) summarize(ctx context.Context, start, end int) (Box[T], Statistics[T], error) {
	t := b.tree
	buf, err := arena.AllocContext[T](ctx, t.arena, 3*t.dim)
	if err != nil {
		return Box[T]{}, Statistics[T]{}, err
	}
	lo, hi, centroid := buf[:t.dim:t.dim], buf[t.dim:2*t.dim:2*t.dim], buf[2*t.dim:]

	for j := 0; j < t.dim; j++ {
		v := b.view.At(start, j)
		lo[j], hi[j] = v, v
	}
	for i := start; i < end; i++ {
		for j := 0; j < t.dim; j++ {
			v := b.view.At(i, j)
			lo[j] = min(lo[j], v)
			hi[j] = max(hi[j], v)
			centroid[j] += v
		}
	}
	inv := 1 / T(end-start)
	for j := range centroid {
		centroid[j] *= inv
	}
	return Box[T]{Min: lo, Max: hi}, Statistics[T]{Centroid: centroid}, nil
}

// sortRows orders rows [start, end) by the coordinate on axis, breaking ties
// by row index so builds are deterministic.
func (b *builder[T]) sortRows(start, end, axis int) {
	ds := b.ds
	slices.SortFunc(b.tree.rows[start:end], func(x, y int) int {
		vx, vy := ds.At(x, axis), ds.At(y, axis)
		switch {
		case vx < vy:
			return -1
		case vx > vy:
			return 1
		}
		return x - y
	})
}

// Dim returns the dimensionality of the points.
func (t *Tree[T]) Dim() int { return t.dim }

// Len returns the number of points in the tree.
func (t *Tree[T]) Len() int { return len(t.rows) }

// NumNodes returns the number of nodes (internal and leaf).
func (t *Tree[T]) NumNodes() int { return len(t.nodes) }

// Root returns the root handle, NilHandle for an empty tree.
func (t *Tree[T]) Root() Handle { return t.root }

// Space returns the metric the tree was built with.
func (t *Tree[T]) Space() distance.Space[T] { return t.space }

// Node returns the node addressed by h.
func (t *Tree[T]) Node(h Handle) *Node[T] { return &t.nodes[h] }

// Row returns the dataset row index of the point at tree position pos.
func (t *Tree[T]) Row(pos int) int { return t.rows[pos] }

// ArenaStats returns the memory statistics of the backing arena.
func (t *Tree[T]) ArenaStats() arena.Stats { return t.arena.Stats() }

// Close releases the arena. Every Point and Box obtained from the tree is
// invalid afterwards.
func (t *Tree[T]) Close() error {
	t.nodes = nil
	t.root = NilHandle
	return t.arena.Free()
}

// InitKNeighbors prepares the neighbor buffers of every leaf for k.
func (t *Tree[T]) InitKNeighbors(k int) {
	for h := range t.nodes {
		t.nodes[h].InitKNeighbors(k)
	}
}

// Leaves calls fn for every leaf in depth-first order together with the tree
// position of its first point. Iteration stops when fn returns false.
func (t *Tree[T]) Leaves(fn func(h Handle, start int) bool) {
	if t.root == NilHandle {
		return
	}
	start := 0
	var walk func(h Handle) bool
	walk = func(h Handle) bool {
		n := &t.nodes[h]
		if n.IsLeaf() {
			ok := fn(h, start)
			start += n.count
			return ok
		}
		return walk(n.left) && walk(n.right)
	}
	walk(t.root)
}

// Check verifies the structural invariants: leaves own points and no
// children, internal nodes own children and no points, child counts add up,
// and every box is well formed and contains the points beneath it.
func (t *Tree[T]) Check() error {
	if t.root == NilHandle {
		return nil
	}
	_, err := t.check(t.root)
	return err
}

func (t *Tree[T]) check(h Handle) ([]Point[T], error) {
	n := &t.nodes[h]
	if err := n.box.Validate(); err != nil {
		return nil, &ErrInvariant{Node: h, Reason: err.Error()}
	}

	var pts []Point[T]
	if n.IsLeaf() {
		if n.right != NilHandle {
			return nil, &ErrInvariant{Node: h, Reason: "leaf with a right child"}
		}
		if n.count == 0 || len(n.ids) != n.count || len(n.points) != n.count*t.dim {
			return nil, &ErrInvariant{Node: h, Reason: "leaf buffers do not match point count"}
		}
		for i := 0; i < n.count; i++ {
			pts = append(pts, n.Point(i, t.dim))
		}
	} else {
		if n.right == NilHandle {
			return nil, &ErrInvariant{Node: h, Reason: "internal node with one child"}
		}
		if n.points != nil || n.ids != nil {
			return nil, &ErrInvariant{Node: h, Reason: "internal node owns points"}
		}
		l, err := t.check(n.left)
		if err != nil {
			return nil, err
		}
		r, err := t.check(n.right)
		if err != nil {
			return nil, err
		}
		pts = append(l, r...)
		if len(pts) != n.count {
			return nil, &ErrInvariant{Node: h, Reason: fmt.Sprintf("children hold %d points, node counts %d", len(pts), n.count)}
		}
	}

	for _, p := range pts {
		if !n.box.Contains(p.Coords) {
			return nil, &ErrInvariant{Node: h, Reason: fmt.Sprintf("point %d outside box", p.ID)}
		}
	}
	return pts, nil
}

// Print renders every node in depth-first order.
func (t *Tree[T]) Print() string {
	var sb strings.Builder
	var walk func(h Handle)
	walk = func(h Handle) {
		n := &t.nodes[h]
		sb.WriteString(n.Print(t.dim))
		if !n.IsLeaf() {
			walk(n.left)
			walk(n.right)
		}
	}
	if t.root != NilHandle {
		walk(t.root)
	}
	return sb.String()
}

// frontier splits the tree into at most target disjoint subtrees by
// repeatedly expanding the largest internal node.
func (t *Tree[T]) frontier(target int) []Handle {
	if t.root == NilHandle {
		return nil
	}
	out := []Handle{t.root}
	for len(out) < target {
		best := -1
		for i, h := range out {
			n := &t.nodes[h]
			if !n.IsLeaf() && (best < 0 || n.count > t.nodes[out[best]].count) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		n := &t.nodes[out[best]]
		out = slices.Replace(out, best, best+1, n.left, n.right)
	}
	return out
}
