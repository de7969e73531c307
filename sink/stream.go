package sink

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/resource"
)

// Compression selects the codec applied to the records of a stream.
type Compression uint8

const (
	// CompressionNone writes records as they are.
	CompressionNone Compression = 0
	// CompressionLZ4 uses the LZ4 frame format (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// Stream header layout (little endian, never compressed):
//
//	[0:4)   magic "NNR1"
//	[4]     format version
//	[5]     Compression
//	[6:8)   reserved
//	[8:12)  dimension uint32
const (
	headerSize    = 12
	formatVersion = 1
)

// MaxDimension is the largest record dimension a stream may carry.
const MaxDimension = 1 << 16

var magic = [4]byte{'N', 'N', 'R', '1'}

var (
	// ErrClosed is returned when appending to a closed writer.
	ErrClosed = errors.New("sink: writer closed")
	// ErrDimension is returned for a record whose coordinates do not match
	// the stream dimension.
	ErrDimension = errors.New("sink: record dimension mismatch")
	// ErrBadHeader is returned when a stream does not start with a valid
	// header.
	ErrBadHeader = errors.New("sink: bad stream header")
	// ErrUnknownCompression is returned for an unsupported codec.
	ErrUnknownCompression = errors.New("sink: unknown compression")
)

// DefaultBufferSize is the default write buffer of a StreamWriter.
const DefaultBufferSize = 64 * 1024

type streamOptions struct {
	compression Compression
	zstdLevel   zstd.EncoderLevel
	bufferSize  int
	io          *resource.Controller
}

// StreamOption configures a StreamWriter or Reader.
type StreamOption func(*streamOptions)

// WithCompression selects the record codec. Readers detect it from the
// header and ignore this option.
func WithCompression(c Compression) StreamOption {
	return func(o *streamOptions) { o.compression = c }
}

// WithZSTDLevel sets the zstd encoder level (1 = fastest, 22 = best).
func WithZSTDLevel(level int) StreamOption {
	return func(o *streamOptions) { o.zstdLevel = zstd.EncoderLevelFromZstd(level) }
}

// WithBufferSize sets the size of the write buffer.
func WithBufferSize(n int) StreamOption {
	return func(o *streamOptions) {
		if n > 0 {
			o.bufferSize = n
		}
	}
}

// WithIOController limits stream throughput with the controller's IO budget.
func WithIOController(c *resource.Controller) StreamOption {
	return func(o *streamOptions) { o.io = c }
}

func applyStreamOptions(opts []StreamOption) streamOptions {
	o := streamOptions{
		zstdLevel:  zstd.SpeedDefault,
		bufferSize: DefaultBufferSize,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// StreamWriter is a Sink that encodes records onto an io.Writer. It does not
// own the underlying writer; Close flushes but does not close it.
type StreamWriter[T distance.Float] struct {
	mu      sync.Mutex
	dim     int
	buf     *bufio.Writer
	codec   io.WriteCloser // nil without compression
	scratch []byte
	written uint64
	err     error // sticky
	closed  bool
}

var _ Sink[float64] = (*StreamWriter[float64])(nil)

// NewStreamWriter writes the stream header to w and returns a writer for
// records of dimension dim.
func NewStreamWriter[T distance.Float](ctx context.Context, w io.Writer, dim int, opts ...StreamOption) (*StreamWriter[T], error) {
	if dim <= 0 || dim > MaxDimension {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimension, dim)
	}
	o := applyStreamOptions(opts)
	if o.io != nil {
		w = resource.NewRateLimitedWriter(ctx, w, o.io)
	}

	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	hdr[4] = formatVersion
	hdr[5] = byte(o.compression)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(dim))

	var codec io.WriteCloser
	switch o.compression {
	case CompressionNone:
	case CompressionLZ4:
		codec = lz4.NewWriter(w)
	case CompressionZSTD:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(o.zstdLevel))
		if err != nil {
			return nil, err
		}
		codec = enc
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, o.compression)
	}

	if _, err := w.Write(hdr[:]); err != nil {
		if codec != nil {
			_ = codec.Close()
		}
		return nil, &WriteError{Cause: err}
	}

	sw := &StreamWriter[T]{
		dim:     dim,
		codec:   codec,
		scratch: make([]byte, 0, RecordSize(dim)),
	}
	if codec != nil {
		sw.buf = bufio.NewWriterSize(codec, o.bufferSize)
	} else {
		sw.buf = bufio.NewWriterSize(w, o.bufferSize)
	}
	return sw, nil
}

// Append implements Sink.
func (s *StreamWriter[T]) Append(ctx context.Context, rec Record[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rec.Coords) != s.dim {
		return fmt.Errorf("%w: expected %d, got %d", ErrDimension, s.dim, len(rec.Coords))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if s.closed {
		return ErrClosed
	}

	s.scratch = AppendRecord(s.scratch[:0], rec)
	if _, err := s.buf.Write(s.scratch); err != nil {
		return s.fail(err)
	}
	s.written++
	return nil
}

// fail records err as the sticky error. Caller must hold mu.
func (s *StreamWriter[T]) fail(err error) error {
	s.err = &WriteError{Written: s.written, Cause: err}
	return s.err
}

// Flush writes buffered records to the underlying writer. With compression
// the codec may still hold data until Close.
func (s *StreamWriter[T]) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	if err := s.buf.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

// Close flushes all records and finishes the compressed frame.
func (s *StreamWriter[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.err
	}
	s.closed = true

	if s.err != nil {
		if s.codec != nil {
			_ = s.codec.Close()
		}
		return s.err
	}
	if err := s.buf.Flush(); err != nil {
		return s.fail(err)
	}
	if s.codec != nil {
		if err := s.codec.Close(); err != nil {
			return s.fail(err)
		}
	}
	return nil
}

// Written returns the number of records accepted so far.
func (s *StreamWriter[T]) Written() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Dim returns the record dimension.
func (s *StreamWriter[T]) Dim() int { return s.dim }
