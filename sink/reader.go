package sink

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/dualtree/distance"
	"github.com/hupe1980/dualtree/resource"
)

// Reader decodes a record stream written by StreamWriter.
type Reader[T distance.Float] struct {
	r           io.Reader
	dim         int
	compression Compression
	buf         []byte
	zstd        *zstd.Decoder
}

// NewReader reads and validates the stream header. Only WithIOController and
// WithBufferSize apply to readers.
func NewReader[T distance.Float](ctx context.Context, r io.Reader, opts ...StreamOption) (*Reader[T], error) {
	o := applyStreamOptions(opts)
	if o.io != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.io)
	}

	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	if [4]byte(hdr[0:4]) != magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadHeader, hdr[0:4])
	}
	if hdr[4] != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrBadHeader, hdr[4])
	}
	d := binary.LittleEndian.Uint32(hdr[8:])
	if d == 0 || d > MaxDimension {
		return nil, fmt.Errorf("%w: dimension %d", ErrBadHeader, d)
	}
	dim := int(d)

	rd := &Reader[T]{
		dim:         dim,
		compression: Compression(hdr[5]),
		buf:         make([]byte, RecordSize(dim)),
	}
	switch rd.compression {
	case CompressionNone:
		rd.r = bufio.NewReaderSize(r, o.bufferSize)
	case CompressionLZ4:
		rd.r = bufio.NewReaderSize(lz4.NewReader(r), o.bufferSize)
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		rd.zstd = dec
		rd.r = bufio.NewReaderSize(dec, o.bufferSize)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, hdr[5])
	}
	return rd, nil
}

// Dim returns the record dimension from the header.
func (r *Reader[T]) Dim() int { return r.dim }

// Compression returns the codec recorded in the header.
func (r *Reader[T]) Compression() Compression { return r.compression }

// Next decodes the next record. It returns io.EOF after the last record and
// ErrShortRecord if the stream ends inside a record. Coordinates are freshly
// allocated for every record.
func (r *Reader[T]) Next() (Record[T], error) {
	n, err := io.ReadFull(r.r, r.buf)
	switch {
	case errors.Is(err, io.EOF):
		return Record[T]{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Record[T]{}, fmt.Errorf("%w: %d of %d bytes", ErrShortRecord, n, len(r.buf))
	case err != nil:
		return Record[T]{}, err
	}
	return DecodeRecord[T](r.buf, r.dim, nil)
}

// ReadAll decodes every remaining record.
func (r *Reader[T]) ReadAll() ([]Record[T], error) {
	var out []Record[T]
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Close releases the decoder. It does not close the underlying reader.
func (r *Reader[T]) Close() error {
	if r.zstd != nil {
		r.zstd.Close()
	}
	return nil
}
