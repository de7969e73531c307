package tree

import (
	"context"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/sink"
)

// Ranked is a node handle paired with its box distance.
type Ranked[T distance.Float] struct {
	Node     Handle
	Distance T
}

// Engine answers queries against a reference tree. It holds no per-query
// state and is safe for concurrent use when its Counter is.
type Engine[T distance.Float, C Counter] struct {
	ref     *Tree[T]
	space   distance.Space[T]
	disc    Discriminator
	counter C
}

// NewEngine creates an Engine over ref. A nil discriminator means SameID.
func NewEngine[T distance.Float, C Counter](ref *Tree[T], disc Discriminator, counter C) *Engine[T, C] {
	if disc == nil {
		disc = SameID{}
	}
	return &Engine[T, C]{
		ref:     ref,
		space:   ref.space,
		disc:    disc,
		counter: counter,
	}
}

// Counter returns the engine's counter.
func (e *Engine[T, C]) Counter() C { return e.counter }

// ClosestChild orders the children of the reference node n by their box
// distance to q, nearer first. n must be internal.
func (e *Engine[T, C]) ClosestChild(n *Node[T], q []T) (near, far Ranked[T]) {
	l, r := &e.ref.nodes[n.left], &e.ref.nodes[n.right]
	e.counter.AddDistances(2)
	dl := l.box.PointDistance(e.space, q)
	dr := r.box.PointDistance(e.space, q)

	e.counter.AddComparisons(1)
	if dr < dl {
		return Ranked[T]{n.right, dr}, Ranked[T]{n.left, dl}
	}
	return Ranked[T]{n.left, dl}, Ranked[T]{n.right, dr}
}

// ClosestNode orders the reference nodes a and b by the distance between
// their boxes and self's box, nearer first. On a tie a comes first.
func (e *Engine[T, C]) ClosestNode(self *Node[T], a, b Handle) (near, far Ranked[T]) {
	e.counter.AddDistances(2)
	da := self.box.Distance(e.space, e.ref.nodes[a].box)
	db := self.box.Distance(e.space, e.ref.nodes[b].box)

	e.counter.AddComparisons(1)
	if db < da {
		return Ranked[T]{b, db}, Ranked[T]{a, da}
	}
	return Ranked[T]{a, da}, Ranked[T]{b, db}
}

// FindNearest scans every point of the reference leaf n against q and
// appends the hits to cands.
//
// With Within, every point at distance <= Radius is appended, unordered.
// With KNearest, all points are appended and the list is then trimmed to the
// k best (ascending distance, then ascending id), padded with sentinels to
// exactly k entries.
//
// Points the discriminator identifies as q itself are skipped.
func (e *Engine[T, C]) FindNearest(n *Node[T], q Point[T], cands []Neighbor[T], mode Mode[T]) []Neighbor[T] {
	var (
		radius T
		ranged bool
		k      int
	)
	switch m := mode.(type) {
	case Within[T]:
		radius, ranged = m.Radius, true
	case KNearest:
		k = int(m)
	}

	dim := e.ref.dim
	for i := 0; i < n.count; i++ {
		if e.disc.Same(n.ids[i], q.ID) {
			continue
		}
		e.counter.AddDistances(1)
		p := n.points[i*dim : (i+1)*dim : (i+1)*dim]
		d := e.space.Distance(q.Coords, p)
		if ranged {
			e.counter.AddComparisons(1)
			if d > radius {
				continue
			}
		}
		cands = append(cands, Neighbor[T]{Distance: d, Point: Point[T]{Coords: p, ID: n.ids[i]}})
	}

	if !ranged {
		var cmps uint64
		cands, cmps = selectK(cands, k)
		e.counter.AddComparisons(cmps)
	}
	return cands
}

// FindAllNearest runs FindNearest for every point of the query leaf qn
// against the reference leaf rn.
//
// With KNearest, each query point's current neighbors (from its neighbor
// buffer) seed the search and the trimmed result is written back. The
// returned bound is the largest k-th distance over qn's points, or bound if
// that is larger.
//
// With Within, every hit is appended to out as a Record and the radius is
// returned. A failing append aborts the scan.
func (e *Engine[T, C]) FindAllNearest(ctx context.Context, qn, rn *Node[T], bound T, mode Mode[T], out sink.Sink[T]) (T, error) {
	dim := e.ref.dim

	switch m := mode.(type) {
	case KNearest:
		k := int(m)
		var worst T
		temp := make([]Neighbor[T], 0, k+rn.count)
		for i := 0; i < qn.count; i++ {
			slots := qn.Neighbors(i)
			temp = temp[:0]
			for _, s := range slots {
				if !s.IsSentinel() {
					temp = append(temp, s.Neighbor)
				}
			}
			temp = e.FindNearest(rn, qn.Point(i, dim), temp, m)
			for j := range slots {
				slots[j].Neighbor = temp[j]
			}

			e.counter.AddComparisons(1)
			if kth := temp[k-1].Distance; kth > worst {
				worst = kth
			}
		}
		e.counter.AddComparisons(1)
		if worst < bound {
			bound = worst
		}
		return bound, nil

	case Within[T]:
		var temp []Neighbor[T]
		for i := 0; i < qn.count; i++ {
			q := qn.Point(i, dim)
			temp = e.FindNearest(rn, q, temp[:0], m)
			for _, nb := range temp {
				rec := sink.Record[T]{
					PointID:    q.ID,
					NeighborID: nb.Point.ID,
					Coords:     nb.Point.Coords,
					Distance:   nb.Distance,
				}
				if err := out.Append(ctx, rec); err != nil {
					return bound, err
				}
			}
		}
		return m.Radius, nil
	}
	return bound, ErrUnknownMode
}
