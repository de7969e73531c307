package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrInvalidRadius is returned for a negative or NaN radius.
	ErrInvalidRadius = errors.New("radius must be a non-negative number")
	// ErrInvalidDimension is returned when a dataset has no axes.
	ErrInvalidDimension = errors.New("dimension must be positive")
	// ErrUnknownMode is returned for a nil or foreign query Mode.
	ErrUnknownMode = errors.New("unknown query mode")

	errNoSink = errors.New("range query needs a sink")
)

// ErrDimensionMismatch indicates a query/index dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrMalformedBox indicates a bounding box with min > max or a NaN extent.
type ErrMalformedBox struct {
	Axis     int
	Min, Max float64
}

func (e *ErrMalformedBox) Error() string {
	return fmt.Sprintf("malformed box on axis %d: min=%g max=%g", e.Axis, e.Min, e.Max)
}

// ErrInvalidCoordinate indicates a NaN or infinite input coordinate.
type ErrInvalidCoordinate struct {
	Row  int
	Axis int
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("invalid coordinate at row %d, axis %d", e.Row, e.Axis)
}

// ErrInvalidID indicates a point id equal to NoID or repeated within a
// dataset. Dup is the first row carrying ID when Reason is a duplicate.
type ErrInvalidID struct {
	Row int
	ID  int64
	Dup int
}

func (e *ErrInvalidID) Error() string {
	if e.ID == NoID {
		return fmt.Sprintf("invalid id at row %d: %d is reserved", e.Row, e.ID)
	}
	return fmt.Sprintf("invalid id at row %d: %d already used by row %d", e.Row, e.ID, e.Dup)
}

// ErrInvariant reports a structural violation found by Tree.Check.
type ErrInvariant struct {
	Node   Handle
	Reason string
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("node %d: %s", e.Node, e.Reason)
}
