package dualtree

import (
	"errors"
	"fmt"

	"github.com/hupe1980/dualtree/internal/arena"
	"github.com/hupe1980/dualtree/tree"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = tree.ErrInvalidK
	// ErrInvalidRadius is returned for a negative or NaN radius.
	ErrInvalidRadius = tree.ErrInvalidRadius
	// ErrInvalidDimension is returned for a dimension below one.
	ErrInvalidDimension = tree.ErrInvalidDimension
	// ErrNilSink is returned when a range query is given no sink.
	ErrNilSink = errors.New("sink must not be nil")
	// ErrClosed is returned when using an index after Close.
	ErrClosed = errors.New("index is closed")
	// ErrArenaExhausted is returned when the point arena cannot grow, either
	// because its chunk limit or the memory budget is reached. The index
	// being built is discarded.
	ErrArenaExhausted = errors.New("arena exhausted")
)

type (
	// ErrDimensionMismatch indicates a query/index dimensionality mismatch.
	ErrDimensionMismatch = tree.ErrDimensionMismatch
	// ErrInvalidCoordinate indicates a NaN or infinite input coordinate.
	ErrInvalidCoordinate = tree.ErrInvalidCoordinate
	// ErrMalformedBox indicates a bounding box with min > max.
	ErrMalformedBox = tree.ErrMalformedBox
	// ErrInvalidID indicates a point id equal to -1 or used twice.
	ErrInvalidID = tree.ErrInvalidID
)

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, arena.ErrAllocationFailed) {
		return fmt.Errorf("%w: %w", ErrArenaExhausted, err)
	}
	return err
}
