package tree

import (
	"cmp"
	"math"
	"slices"

	"github.com/hupe1980/dualtree/distance"
)

// Point is a coordinate vector plus its original id. Coordinates of points
// handed out by the engine alias arena memory.
type Point[T distance.Float] struct {
	Coords []T
	ID     int64
}

// Neighbor is one k-NN candidate.
type Neighbor[T distance.Float] struct {
	Distance T
	Point    Point[T]
}

// Sentinel returns the padding neighbor: distance +Inf, id NoID.
func Sentinel[T distance.Float]() Neighbor[T] {
	return Neighbor[T]{Distance: T(math.Inf(1)), Point: Point[T]{ID: NoID}}
}

// IsSentinel reports whether n is padding.
func (n Neighbor[T]) IsSentinel() bool {
	return n.Point.ID == NoID && math.IsInf(float64(n.Distance), 1)
}

// Slot is one entry of a leaf's neighbor buffer: the owning query point's id
// plus its current candidate.
type Slot[T distance.Float] struct {
	QueryID int64
	Neighbor[T]
}

// Mode selects the query discipline: KNearest or Within.
type Mode[T distance.Float] interface {
	mode()
}

// KNearest keeps the k closest neighbors of every query point.
type KNearest int

func (KNearest) mode() {}

// Within collects every neighbor at distance <= Radius.
type Within[T distance.Float] struct {
	Radius T
}

func (Within[T]) mode() {}

// ValidateMode checks k or the radius.
func ValidateMode[T distance.Float](m Mode[T]) error {
	switch v := m.(type) {
	case KNearest:
		if v < 1 {
			return ErrInvalidK
		}
	case Within[T]:
		if !(v.Radius >= 0) {
			return ErrInvalidRadius
		}
	default:
		return ErrUnknownMode
	}
	return nil
}

// compareNeighbors orders by ascending distance, then ascending id, with
// sentinels after every real neighbor.
func compareNeighbors[T distance.Float](a, b Neighbor[T]) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	as, bs := a.Point.ID == NoID, b.Point.ID == NoID
	switch {
	case as && !bs:
		return 1
	case !as && bs:
		return -1
	}
	return cmp.Compare(a.Point.ID, b.Point.ID)
}

// selectK keeps the k best candidates in ascending order, padding with
// sentinels. It reuses the backing array of cands and returns the number of
// comparisons made.
//
// The first k entries are heapified worst-on-top; every later candidate
// only enters by beating the current worst. Only the survivors are sorted.
func selectK[T distance.Float](cands []Neighbor[T], k int) ([]Neighbor[T], uint64) {
	if k <= 0 {
		return cands[:0], 0
	}
	var cmps uint64
	less := func(a, b Neighbor[T]) int {
		cmps++
		return compareNeighbors(a, b)
	}

	if len(cands) > k {
		h := cands[:k]
		for i := k/2 - 1; i >= 0; i-- {
			siftDown(h, i, less)
		}
		for _, c := range cands[k:] {
			if less(c, h[0]) < 0 {
				h[0] = c
				siftDown(h, 0, less)
			}
		}
		cands = h
	}

	slices.SortFunc(cands, less)
	for len(cands) < k {
		cands = append(cands, Sentinel[T]())
	}
	return cands, cmps
}

// siftDown restores a max-heap (worst candidate at the root).
func siftDown[T distance.Float](h []Neighbor[T], i int, less func(a, b Neighbor[T]) int) {
	n := len(h)
	for {
		worst := i
		l, r := 2*i+1, 2*i+2
		if l < n && less(h[l], h[worst]) > 0 {
			worst = l
		}
		if r < n && less(h[r], h[worst]) > 0 {
			worst = r
		}
		if worst == i {
			return
		}
		h[i], h[worst] = h[worst], h[i]
		i = worst
	}
}
