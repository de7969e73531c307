package distance

import (
	"fmt"
	"math"
)

// Float is the set of coordinate types a tree can be built over.
type Float interface {
	~float32 | ~float64
}

// Metric identifies a built-in distance metric.
type Metric int

const (
	MetricL2 Metric = iota
	MetricL1
	MetricChebyshev
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "L2"
	case MetricL1:
		return "L1"
	case MetricChebyshev:
		return "Chebyshev"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// Func computes the distance between two points of equal dimension.
type Func[T Float] func(a, b []T) T

// FoldFunc folds the gap along one axis into an accumulated box distance.
type FoldFunc[T Float] func(acc, gap T) T

// Space is a pluggable metric: a point distance plus the matching fold for
// box distances. Both must agree on units (e.g. squared units for MetricL2).
type Space[T Float] struct {
	Name     string
	Distance Func[T]
	Fold     FoldFunc[T]
}

// Provider returns the Space for a built-in metric.
func Provider[T Float](m Metric) (Space[T], error) {
	switch m {
	case MetricL2:
		return Space[T]{Name: m.String(), Distance: SquaredL2[T], Fold: foldSquared[T]}, nil
	case MetricL1:
		return Space[T]{Name: m.String(), Distance: Manhattan[T], Fold: foldSum[T]}, nil
	case MetricChebyshev:
		return Space[T]{Name: m.String(), Distance: Chebyshev[T], Fold: foldMax[T]}, nil
	default:
		return Space[T]{}, fmt.Errorf("unsupported metric: %v", m)
	}
}

// Default returns the squared Euclidean space.
func Default[T Float]() Space[T] {
	s, _ := Provider[T](MetricL2)
	return s
}

// Valid reports whether both functions are set.
func (s Space[T]) Valid() bool {
	return s.Distance != nil && s.Fold != nil
}

// SquaredL2 calculates the squared Euclidean distance between two points.
// Assumes the points have the same length (caller's responsibility).
func SquaredL2[T Float](a, b []T) T {
	var sum T
	b = b[:len(a)]
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Manhattan calculates the L1 distance between two points.
func Manhattan[T Float](a, b []T) T {
	var sum T
	b = b[:len(a)]
	for i := range a {
		sum += abs(a[i] - b[i])
	}
	return sum
}

// Chebyshev calculates the L∞ distance between two points.
func Chebyshev[T Float](a, b []T) T {
	var m T
	b = b[:len(a)]
	for i := range a {
		if d := abs(a[i] - b[i]); d > m {
			m = d
		}
	}
	return m
}

// Euclidean converts a squared L2 distance back to the true distance.
func Euclidean[T Float](squared T) T {
	return T(math.Sqrt(float64(squared)))
}

func foldSquared[T Float](acc, gap T) T { return acc + gap*gap }

func foldSum[T Float](acc, gap T) T { return acc + gap }

func foldMax[T Float](acc, gap T) T {
	if gap > acc {
		return gap
	}
	return acc
}

func abs[T Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}
