package tree

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/internal/arena"
)

// Handle addresses a node in its tree's node arena.
type Handle int32

// NilHandle is the absent child.
const NilHandle Handle = -1

// Statistics is the per-node aggregate computed by the builder. The query
// engine never reads it.
type Statistics[T distance.Float] struct {
	Centroid []T
}

// Node is a tree vertex. A node is a leaf iff it has no children iff it owns
// points; the kind never changes after initialization.
type Node[T distance.Float] struct {
	id          int
	count       int
	box         Box[T]
	stats       Statistics[T]
	left, right Handle

	// Leaf-only buffers. points has count*dim entries; ids has count.
	points []T
	ids    []int64

	// neighbors has count*k slots while a k-NN query is prepared.
	neighbors []Slot[T]
	k         int
}

// InitInternal configures a routing node. It allocates no point storage;
// the children are attached with SetChildren.
func (n *Node[T]) InitInternal(box Box[T], stats Statistics[T], id, count int) {
	*n = Node[T]{
		id:    id,
		count: count,
		box:   box,
		stats: stats,
		left:  NilHandle,
		right: NilHandle,
	}
}

// InitLeaf configures a leaf holding rows [start, start+count) of ds. The
// coordinates and original ids are copied into buffers allocated from a.
func (n *Node[T]) InitLeaf(ctx context.Context, a *arena.Arena, box Box[T], stats Statistics[T], id, start, count, dim int, ds Dataset[T]) error {
	points, err := arena.AllocContext[T](ctx, a, count*dim)
	if err != nil {
		return err
	}
	ids, err := arena.AllocContext[int64](ctx, a, count)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		for j := 0; j < dim; j++ {
			points[i*dim+j] = ds.At(start+i, j)
		}
		ids[i] = ds.ID(start + i)
	}

	*n = Node[T]{
		id:     id,
		count:  count,
		box:    box,
		stats:  stats,
		left:   NilHandle,
		right:  NilHandle,
		points: points,
		ids:    ids,
	}
	return nil
}

// SetChildren attaches the two children of an internal node.
func (n *Node[T]) SetChildren(left, right Handle) {
	n.left, n.right = left, right
}

// InitKNeighbors prepares the neighbor buffer of a leaf for a k-NN query:
// every slot records its owner's id and starts as a sentinel. Internal
// nodes are left untouched.
func (n *Node[T]) InitKNeighbors(k int) {
	if !n.IsLeaf() {
		return
	}
	if cap(n.neighbors) >= n.count*k {
		n.neighbors = n.neighbors[:n.count*k]
	} else {
		n.neighbors = make([]Slot[T], n.count*k)
	}
	n.k = k
	s := Sentinel[T]()
	for i := 0; i < n.count; i++ {
		for j := 0; j < k; j++ {
			n.neighbors[i*k+j] = Slot[T]{QueryID: n.ids[i], Neighbor: s}
		}
	}
}

func (n *Node[T]) ID() int                   { return n.id }
func (n *Node[T]) Count() int                { return n.count }
func (n *Node[T]) Box() Box[T]               { return n.box }
func (n *Node[T]) Statistics() Statistics[T] { return n.stats }
func (n *Node[T]) IsLeaf() bool              { return n.left == NilHandle }

// Children returns the child handles; both are NilHandle on a leaf.
func (n *Node[T]) Children() (left, right Handle) { return n.left, n.right }

// Point returns local point i of a leaf; the coordinates alias the arena.
func (n *Node[T]) Point(i, dim int) Point[T] {
	return Point[T]{Coords: n.points[i*dim : (i+1)*dim : (i+1)*dim], ID: n.ids[i]}
}

// IDs returns the original ids of a leaf's points.
func (n *Node[T]) IDs() []int64 { return n.ids }

// Neighbors returns the k current neighbor slots of local point i.
func (n *Node[T]) Neighbors(i int) []Slot[T] {
	return n.neighbors[i*n.k : (i+1)*n.k : (i+1)*n.k]
}

// K returns the k the neighbor buffer was prepared for, 0 if none.
func (n *Node[T]) K() int { return n.k }

// Print renders the node for debugging. It does not modify the node.
func (n *Node[T]) Print(dim int) string {
	var sb strings.Builder
	if n.IsLeaf() {
		fmt.Fprintf(&sb, "Leaf: %d\n", n.id)
	} else {
		fmt.Fprintf(&sb, "Node: %d\n", n.id)
	}
	sb.WriteString(n.box.Print())
	fmt.Fprintf(&sb, "points: %d\n", n.count)
	if n.IsLeaf() {
		for i := 0; i < n.count; i++ {
			for j := 0; j < dim; j++ {
				fmt.Fprintf(&sb, "%g ", float64(n.points[i*dim+j]))
			}
			fmt.Fprintf(&sb, "id=%d\n", n.ids[i])
		}
	}
	return sb.String()
}
