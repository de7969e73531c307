package tree

import (
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/dualtree/distance"
)

// NoID marks the absence of a point id (sentinel neighbors, external queries).
const NoID int64 = -1

// Dataset is the reference input consumed by the builder. It is only read
// while nodes are initialized; the tree keeps no reference to it.
type Dataset[T distance.Float] interface {
	Len() int
	Dim() int
	At(i, j int) T
	ID(i int) int64
}

// FlatDataset is a Dataset over a row-major coordinate slice.
type FlatDataset[T distance.Float] struct {
	data []T
	dim  int
	ids  []int64
}

// NewFlatDataset wraps data (len = n*dim). ids maps each row to its original
// identifier; nil means row i has id i. Ids must be unique and must not be
// NoID, otherwise self-exclusion cannot tell points apart.
func NewFlatDataset[T distance.Float](data []T, dim int, ids []int64) (*FlatDataset[T], error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of dimension %d", len(data), dim)
	}
	n := len(data) / dim
	if ids != nil && len(ids) != n {
		return nil, fmt.Errorf("got %d ids for %d rows", len(ids), n)
	}
	if err := validateIDs(ids); err != nil {
		return nil, err
	}
	return &FlatDataset[T]{data: data, dim: dim, ids: ids}, nil
}

func validateIDs(ids []int64) error {
	seen := roaring64.New()
	for i, id := range ids {
		if id == NoID {
			return &ErrInvalidID{Row: i, ID: id}
		}
		if !seen.CheckedAdd(uint64(id)) {
			return &ErrInvalidID{Row: i, ID: id, Dup: slices.Index(ids, id)}
		}
	}
	return nil
}

func (d *FlatDataset[T]) Len() int { return len(d.data) / d.dim }
func (d *FlatDataset[T]) Dim() int { return d.dim }

func (d *FlatDataset[T]) At(i, j int) T { return d.data[i*d.dim+j] }

func (d *FlatDataset[T]) ID(i int) int64 {
	if d.ids == nil {
		return int64(i)
	}
	return d.ids[i]
}

// Row returns the coordinates of row i without copying.
func (d *FlatDataset[T]) Row(i int) []T {
	return d.data[i*d.dim : (i+1)*d.dim : (i+1)*d.dim]
}

// permuted presents ds in tree order.
type permuted[T distance.Float] struct {
	ds   Dataset[T]
	rows []int
}

func (p permuted[T]) Len() int       { return len(p.rows) }
func (p permuted[T]) Dim() int       { return p.ds.Dim() }
func (p permuted[T]) At(i, j int) T  { return p.ds.At(p.rows[i], j) }
func (p permuted[T]) ID(i int) int64 { return p.ds.ID(p.rows[i]) }

func validateDataset[T distance.Float](ds Dataset[T]) error {
	if ds.Dim() <= 0 {
		return ErrInvalidDimension
	}
	for i := 0; i < ds.Len(); i++ {
		for j := 0; j < ds.Dim(); j++ {
			v := float64(ds.At(i, j))
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &ErrInvalidCoordinate{Row: i, Axis: j}
			}
		}
	}
	return nil
}
