package tree

import (
	"context"
	"math"
)

// Search finds the neighbors of a single point q in the reference tree.
//
// With KNearest the result has exactly k entries in ascending order. With
// Within the hits are returned in traversal order. q.ID takes part in
// self-exclusion; pass NoID for a point outside the reference set.
func (e *Engine[T, C]) Search(ctx context.Context, q Point[T], mode Mode[T]) ([]Neighbor[T], error) {
	if err := ValidateMode[T](mode); err != nil {
		return nil, err
	}
	if len(q.Coords) != e.ref.dim {
		return nil, &ErrDimensionMismatch{Expected: e.ref.dim, Actual: len(q.Coords)}
	}
	for j, v := range q.Coords {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ErrInvalidCoordinate{Row: 0, Axis: j}
		}
	}

	var out []Neighbor[T]
	if k, ok := mode.(KNearest); ok && e.ref.root == NilHandle {
		out, _ = selectK(out, int(k))
		return out, nil
	}
	if e.ref.root == NilHandle {
		return nil, nil
	}

	e.counter.AddDistances(1)
	d := e.ref.nodes[e.ref.root].box.PointDistance(e.space, q.Coords)
	return e.search(ctx, e.ref.root, d, q, mode, out)
}

func (e *Engine[T, C]) search(ctx context.Context, h Handle, boxDist T, q Point[T], mode Mode[T], out []Neighbor[T]) ([]Neighbor[T], error) {
	if err := ctx.Err(); err != nil {
		return out, err
	}

	e.counter.AddComparisons(1)
	if boxDist > e.pointBound(out, mode) {
		return out, nil
	}

	n := &e.ref.nodes[h]
	if n.IsLeaf() {
		return e.FindNearest(n, q, out, mode), nil
	}

	near, far := e.ClosestChild(n, q.Coords)
	out, err := e.search(ctx, near.Node, near.Distance, q, mode, out)
	if err != nil {
		return out, err
	}
	return e.search(ctx, far.Node, far.Distance, q, mode, out)
}

// pointBound is the distance beyond which a subtree cannot contribute.
func (e *Engine[T, C]) pointBound(out []Neighbor[T], mode Mode[T]) T {
	switch m := mode.(type) {
	case KNearest:
		if len(out) < int(m) {
			return T(math.Inf(1))
		}
		return out[int(m)-1].Distance
	case Within[T]:
		return m.Radius
	}
	return T(math.Inf(1))
}
