package tree

import "github.com/RoaringBitmap/roaring/v2/roaring64"

// Discriminator decides whether a candidate point is the query point itself
// and must be skipped.
type Discriminator interface {
	Same(candidate, query int64) bool
}

// SameID excludes candidates whose id equals the query id. Use it when the
// query set is the reference set.
type SameID struct{}

func (SameID) Same(candidate, query int64) bool {
	return query != NoID && candidate == query
}

// Disjoint never excludes anything. Use it when query and reference ids live
// in separate id spaces.
type Disjoint struct{}

func (Disjoint) Same(int64, int64) bool { return false }

// SharedIDs excludes a candidate only when it carries the query's id and
// that id belongs to the overlap between the query and reference sets.
type SharedIDs struct {
	shared *roaring64.Bitmap
}

// NewSharedIDs creates a SharedIDs over the given overlap. Negative ids
// cannot be shared and are ignored.
func NewSharedIDs(ids ...int64) *SharedIDs {
	bm := roaring64.New()
	for _, id := range ids {
		if id >= 0 {
			bm.Add(uint64(id))
		}
	}
	bm.RunOptimize()
	return &SharedIDs{shared: bm}
}

func (s *SharedIDs) Same(candidate, query int64) bool {
	return candidate == query && query >= 0 && s.shared.Contains(uint64(query))
}

// Len returns the size of the overlap.
func (s *SharedIDs) Len() uint64 { return s.shared.GetCardinality() }
