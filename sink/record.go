package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/dualtree/distance"
)

// Record is one range-query hit: the query point id, the neighbor (id and
// coordinates) and their distance. Records are written once and never
// mutated.
type Record[T distance.Float] struct {
	PointID    int64
	NeighborID int64
	Coords     []T
	Distance   T
}

// RecordSize returns the encoded size of a record for the given dimension.
//
// Layout (little endian):
//
//	[0:8)    PointID    int64
//	[8:16)   NeighborID int64
//	[16:24)  Distance   float64
//	[24:...) Coords     dim × float64
func RecordSize(dim int) int {
	return 24 + 8*dim
}

// ErrShortRecord is returned when decoding a truncated record.
var ErrShortRecord = errors.New("sink: short record")

// AppendRecord appends the fixed-size encoding of rec to dst.
func AppendRecord[T distance.Float](dst []byte, rec Record[T]) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, uint64(rec.PointID))
	dst = binary.LittleEndian.AppendUint64(dst, uint64(rec.NeighborID))
	dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(rec.Distance)))
	for _, c := range rec.Coords {
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(float64(c)))
	}
	return dst
}

// DecodeRecord decodes a record of dimension dim from src. Coordinates are
// written into coords when it has room, otherwise a new slice is allocated.
func DecodeRecord[T distance.Float](src []byte, dim int, coords []T) (Record[T], error) {
	if len(src) < RecordSize(dim) {
		return Record[T]{}, fmt.Errorf("%w: need %d bytes, have %d", ErrShortRecord, RecordSize(dim), len(src))
	}
	if cap(coords) < dim {
		coords = make([]T, dim)
	}
	coords = coords[:dim]

	rec := Record[T]{
		PointID:    int64(binary.LittleEndian.Uint64(src[0:])),
		NeighborID: int64(binary.LittleEndian.Uint64(src[8:])),
		Distance:   T(math.Float64frombits(binary.LittleEndian.Uint64(src[16:]))),
		Coords:     coords,
	}
	for j := 0; j < dim; j++ {
		coords[j] = T(math.Float64frombits(binary.LittleEndian.Uint64(src[24+8*j:])))
	}
	return rec, nil
}
