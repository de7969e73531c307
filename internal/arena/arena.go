package arena

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/hupe1980/dualtree/internal/mmap"
)

// MemoryAcquirer reserves memory against an external budget before a chunk
// is mapped, and gives it back when the arena is freed.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrAllocationFailed is returned when a chunk cannot be obtained.
	ErrAllocationFailed = errors.New("arena: allocation failed")
	// ErrMaxChunksExceeded is returned when the arena reaches its chunk limit.
	ErrMaxChunksExceeded = errors.New("arena: max chunks exceeded")
	// ErrClosed is returned when allocating from a freed arena.
	ErrClosed = errors.New("arena: closed")
)

const (
	// DefaultChunkSize is the default size of a chunk (1 MiB).
	DefaultChunkSize = 1 << 20
	// DefaultAlignment is the alignment of every allocation.
	DefaultAlignment = 8
	// DefaultMaxChunks caps the number of chunks (64 GiB with default chunks).
	DefaultMaxChunks = 65536

	acquireTimeout = 100 * time.Millisecond
)

// Scalar lists the element types the arena can hand out as typed slices.
type Scalar interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint32 | ~uint64
}

// Stats tracks arena memory usage.
//
//   - BytesReserved: memory mapped from the OS
//   - BytesUsed: bytes requested by allocations
//   - BytesWasted: alignment padding plus the unused tails of retired chunks
type Stats struct {
	ActiveChunks  uint64
	BytesReserved uint64
	BytesUsed     uint64
	BytesWasted   uint64
	TotalAllocs   uint64
}

type chunk struct {
	data    []byte
	mapping *mmap.Mapping
	offset  int
}

// Arena is a chunked bump allocator. It is safe for concurrent use, but
// Free must not race with allocations.
type Arena struct {
	chunkSize int
	maxChunks int
	acquirer  MemoryAcquirer

	mu      sync.Mutex
	chunks  []*chunk
	current *chunk
	stats   Stats
	closed  bool
}

// Option configures an Arena.
type Option func(*Arena)

// WithMemoryAcquirer charges every mapped chunk against acquirer.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithMaxChunks limits the number of chunks the arena may map.
func WithMaxChunks(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.maxChunks = n
		}
	}
}

// New creates an Arena whose regular chunks are chunkSize bytes, rounded up
// to the alignment. No memory is mapped until the first allocation.
func New(chunkSize int, opts ...Option) *Arena {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &Arena{
		chunkSize: alignUp(chunkSize),
		maxChunks: DefaultMaxChunks,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func alignUp(n int) int {
	const mask = DefaultAlignment - 1
	return (n + mask) &^ mask
}

// AllocBytes returns a zeroed, aligned byte slice of the given size.
// A zero or negative size yields nil.
func (a *Arena) AllocBytes(ctx context.Context, size int) ([]byte, error) {
	if size <= 0 {
		return nil, nil
	}
	aligned := alignUp(size)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrClosed
	}

	// Oversized requests get a dedicated chunk; the current chunk keeps
	// serving small allocations.
	if aligned > a.chunkSize {
		c, err := a.mapChunkLocked(ctx, aligned)
		if err != nil {
			return nil, err
		}
		return a.carveLocked(c, size, aligned), nil
	}

	if a.current == nil || a.current.offset+aligned > len(a.current.data) {
		if a.current != nil {
			a.stats.BytesWasted += uint64(len(a.current.data) - a.current.offset)
		}
		c, err := a.mapChunkLocked(ctx, a.chunkSize)
		if err != nil {
			return nil, err
		}
		a.current = c
	}
	return a.carveLocked(a.current, size, aligned), nil
}

func (a *Arena) carveLocked(c *chunk, size, aligned int) []byte {
	start := c.offset
	c.offset += aligned
	a.stats.BytesUsed += uint64(size)
	a.stats.BytesWasted += uint64(aligned - size)
	a.stats.TotalAllocs++
	return c.data[start : start+size : start+size]
}

func (a *Arena) mapChunkLocked(ctx context.Context, size int) (*chunk, error) {
	if len(a.chunks) >= a.maxChunks {
		return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, ErrMaxChunksExceeded)
	}

	if a.acquirer != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
			defer cancel()
		}
		if err := a.acquirer.AcquireMemory(ctx, int64(size)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
		}
	}

	m, err := mmap.MapAnon(size)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(size))
		}
		return nil, fmt.Errorf("%w: map %s: %w", ErrAllocationFailed, humanize.IBytes(uint64(size)), err)
	}

	c := &chunk{data: m.Bytes(), mapping: m}
	a.chunks = append(a.chunks, c)
	a.stats.ActiveChunks++
	a.stats.BytesReserved += uint64(size)
	return c, nil
}

// Alloc returns a zeroed slice of n elements carved from the arena.
func Alloc[E Scalar](a *Arena, n int) ([]E, error) {
	return AllocContext[E](context.Background(), a, n)
}

// AllocContext is Alloc with a context bounding the wait on the memory
// acquirer.
func AllocContext[E Scalar](ctx context.Context, a *Arena, n int) ([]E, error) {
	if n <= 0 {
		return nil, nil
	}
	var zero E
	b, err := a.AllocBytes(ctx, n*int(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*E)(unsafe.Pointer(&b[0])), n), nil //nolint:gosec // arena memory is aligned and pointer-free
}

// Stats returns a snapshot of the arena statistics.
func (a *Arena) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Usage returns used bytes as a percentage of reserved bytes.
func (a *Arena) Usage() float64 {
	s := a.Stats()
	if s.BytesReserved == 0 {
		return 0
	}
	return float64(s.BytesUsed) / float64(s.BytesReserved) * 100
}

// Free unmaps every chunk and returns the memory to the acquirer.
// The arena cannot be used afterwards; Free is idempotent.
func (a *Arena) Free() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for _, c := range a.chunks {
		if err := c.mapping.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.acquirer != nil && a.stats.BytesReserved > 0 {
		a.acquirer.ReleaseMemory(int64(a.stats.BytesReserved))
	}

	a.chunks = nil
	a.current = nil
	a.stats.ActiveChunks = 0
	a.stats.BytesReserved = 0
	a.stats.BytesUsed = 0
	a.stats.BytesWasted = 0
	return errors.Join(errs...)
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{chunks: %d, reserved: %s, used: %s, wasted: %s, usage: %.1f%%, allocs: %d}",
		s.ActiveChunks,
		humanize.IBytes(s.BytesReserved),
		humanize.IBytes(s.BytesUsed),
		humanize.IBytes(s.BytesWasted),
		a.Usage(),
		s.TotalAllocs,
	)
}
