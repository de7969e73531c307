package tree

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hupe1980/dualtree/distance"
)

// Box is an axis-aligned hyper-rectangle. A node's box aliases arena memory
// and is never modified after the node is initialized.
type Box[T distance.Float] struct {
	Min []T
	Max []T
}

// NewBox builds a validated box from per-axis extents. The slices are
// aliased, not copied.
func NewBox[T distance.Float](lo, hi []T) (Box[T], error) {
	b := Box[T]{Min: lo, Max: hi}
	if err := b.Validate(); err != nil {
		return Box[T]{}, err
	}
	return b, nil
}

// Dim returns the number of axes.
func (b Box[T]) Dim() int { return len(b.Min) }

// Validate reports a malformed box: mismatched extents, NaN, or min > max.
// Zero-width axes are valid.
func (b Box[T]) Validate() error {
	if len(b.Min) != len(b.Max) {
		return &ErrDimensionMismatch{Expected: len(b.Min), Actual: len(b.Max)}
	}
	for i := range b.Min {
		lo, hi := float64(b.Min[i]), float64(b.Max[i])
		if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
			return &ErrMalformedBox{Axis: i, Min: lo, Max: hi}
		}
	}
	return nil
}

// Contains reports whether p lies inside the box (boundaries included).
func (b Box[T]) Contains(p []T) bool {
	for i := range b.Min {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// PointDistance returns the minimum distance from p to the box under space;
// zero when p is inside.
func (b Box[T]) PointDistance(space distance.Space[T], p []T) T {
	var acc T
	for i := range b.Min {
		var gap T
		if p[i] < b.Min[i] {
			gap = b.Min[i] - p[i]
		} else if p[i] > b.Max[i] {
			gap = p[i] - b.Max[i]
		}
		acc = space.Fold(acc, gap)
	}
	return acc
}

// Distance returns the minimum distance between any point of b and any
// point of o; zero when they overlap.
func (b Box[T]) Distance(space distance.Space[T], o Box[T]) T {
	var acc T
	for i := range b.Min {
		var gap T
		if d := o.Min[i] - b.Max[i]; d > 0 {
			gap = d
		} else if d := b.Min[i] - o.Max[i]; d > 0 {
			gap = d
		}
		acc = space.Fold(acc, gap)
	}
	return acc
}

// Widest returns the axis with the largest extent and that extent.
func (b Box[T]) Widest() (axis int, spread T) {
	spread = -1
	for i := range b.Min {
		if s := b.Max[i] - b.Min[i]; s > spread {
			axis, spread = i, s
		}
	}
	return axis, spread
}

// Split cuts the box at value along axis. The halves are fresh heap copies;
// at is clamped to the box extent.
func (b Box[T]) Split(axis int, at T) (lo, hi Box[T]) {
	at = min(max(at, b.Min[axis]), b.Max[axis])

	lo = Box[T]{Min: slices.Clone(b.Min), Max: slices.Clone(b.Max)}
	hi = Box[T]{Min: slices.Clone(b.Min), Max: slices.Clone(b.Max)}
	lo.Max[axis] = at
	hi.Min[axis] = at
	return lo, hi
}

// Print renders the extents, one axis per line.
func (b Box[T]) Print() string {
	var sb strings.Builder
	for i := range b.Min {
		fmt.Fprintf(&sb, "[%g, %g]\n", float64(b.Min[i]), float64(b.Max[i]))
	}
	return sb.String()
}
