package testutil

import (
	"cmp"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/dualtree/distance"
)

// Hit is one exact neighbor: the neighbor's row id and its distance.
type Hit struct {
	ID       int64
	Distance float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call.
func FillUniform[T distance.Float](r *RNG, dst []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = T(r.rand.Float64())
	}
}

// UniformPoints generates num row-major points in [0, 1)^dim.
func UniformPoints[T distance.Float](r *RNG, num, dim int) []T {
	data := make([]T, num*dim)
	FillUniform(r, data)
	return data
}

// GaussianPoints generates num row-major points from a standard normal
// distribution.
func GaussianPoints[T distance.Float](r *RNG, num, dim int) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]T, num*dim)
	for i := range data {
		data[i] = T(r.rand.NormFloat64())
	}
	return data
}

// ClusteredPoints generates points around random centroids in [0, 1)^dim.
// Useful for exercising pruning on non-uniform data.
func ClusteredPoints[T distance.Float](r *RNG, num, dim, clusters int, spread float64) []T {
	centroids := UniformPoints[T](r, clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]T, num*dim)
	for i := range num {
		c := centroids[(i%clusters)*dim:]
		for j := range dim {
			data[i*dim+j] = c[j] + T(r.rand.NormFloat64()*spread)
		}
	}
	return data
}

// GridPoints generates the side^dim integer lattice. Every point has
// several neighbors at exactly the same distance, which exercises the id
// tie-break.
func GridPoints[T distance.Float](side, dim int) []T {
	n := int(math.Pow(float64(side), float64(dim)))
	data := make([]T, 0, n*dim)
	for i := range n {
		v := i
		for range dim {
			data = append(data, T(v%side))
			v /= side
		}
	}
	return data
}

// DuplicatePoints returns num copies of the same point.
func DuplicatePoints[T distance.Float](num int, p ...T) []T {
	data := make([]T, 0, num*len(p))
	for range num {
		data = append(data, p...)
	}
	return data
}

// ExactKNN returns the k nearest rows of data to q by linear scan, ordered by
// ascending distance then ascending id. Row queryID is skipped; pass -1 to
// keep every row. Fewer than k hits are returned when data is small.
func ExactKNN[T distance.Float](space distance.Space[T], data []T, dim int, q []T, queryID int64, k int) []Hit {
	hits := scan(space, data, dim, q, queryID, math.Inf(1))
	slices.SortFunc(hits, compareHits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// ExactRange returns every row of data within distance r of q, ordered by
// ascending id. Row queryID is skipped; pass -1 to keep every row.
func ExactRange[T distance.Float](space distance.Space[T], data []T, dim int, q []T, queryID int64, r T) []Hit {
	hits := scan(space, data, dim, q, queryID, float64(r))
	slices.SortFunc(hits, func(a, b Hit) int { return cmp.Compare(a.ID, b.ID) })
	return hits
}

func scan[T distance.Float](space distance.Space[T], data []T, dim int, q []T, queryID int64, r float64) []Hit {
	var hits []Hit
	for i := 0; i < len(data)/dim; i++ {
		if int64(i) == queryID {
			continue
		}
		d := float64(space.Distance(q, data[i*dim:(i+1)*dim]))
		if d <= r {
			hits = append(hits, Hit{ID: int64(i), Distance: d})
		}
	}
	return hits
}

func compareHits(a, b Hit) int {
	if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
