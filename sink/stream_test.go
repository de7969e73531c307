package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dualtree/resource"
)

func records(n, dim int) []Record[float64] {
	out := make([]Record[float64], n)
	for i := range out {
		coords := make([]float64, dim)
		for j := range coords {
			coords[j] = float64(i*dim + j)
		}
		out[i] = Record[float64]{PointID: int64(i), NeighborID: int64(n - i), Distance: float64(i) / 2, Coords: coords}
	}
	return out
}

func TestStream_RoundTrip(t *testing.T) {
	ctx := context.Background()
	want := records(500, 3)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewStreamWriter[float64](ctx, &buf, 3, WithCompression(c), WithBufferSize(128))
			require.NoError(t, err)
			for _, rec := range want {
				require.NoError(t, w.Append(ctx, rec))
			}
			require.NoError(t, w.Close())
			assert.Equal(t, uint64(500), w.Written())

			r, err := NewReader[float64](ctx, &buf)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, 3, r.Dim())
			assert.Equal(t, c, r.Compression())

			got, err := r.ReadAll()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestStream_CompressionShrinks(t *testing.T) {
	ctx := context.Background()
	sizes := map[Compression]int{}
	for _, c := range []Compression{CompressionNone, CompressionZSTD} {
		var buf bytes.Buffer
		w, err := NewStreamWriter[float64](ctx, &buf, 2, WithCompression(c), WithZSTDLevel(3))
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			require.NoError(t, w.Append(ctx, Record[float64]{PointID: 1, NeighborID: 2, Coords: []float64{0, 0}}))
		}
		require.NoError(t, w.Close())
		sizes[c] = buf.Len()
	}

	assert.Equal(t, headerSize+1000*RecordSize(2), sizes[CompressionNone])
	assert.Less(t, sizes[CompressionZSTD], sizes[CompressionNone])
}

func TestStream_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w, err := NewStreamWriter[float64](ctx, &buf, 2, WithCompression(CompressionLZ4))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				_ = w.Append(ctx, Record[float64]{PointID: int64(g), NeighborID: int64(i), Distance: float64(i), Coords: []float64{float64(g), float64(i)}})
			}
		}(g)
	}
	wg.Wait()
	require.NoError(t, w.Close())

	r, err := NewReader[float64](ctx, &buf)
	require.NoError(t, err)
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2000)
	for _, rec := range got {
		// An interleaved write would tear the record apart.
		assert.Equal(t, float64(rec.PointID), rec.Coords[0])
		assert.Equal(t, float64(rec.NeighborID), rec.Coords[1])
		assert.Equal(t, rec.Distance, rec.Coords[1])
	}
}

type failingWriter struct {
	limit int
	n     int
}

var errDiskFull = errors.New("disk full")

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		return 0, errDiskFull
	}
	w.n += len(p)
	return len(p), nil
}

func TestStream_WriteFailureIsSticky(t *testing.T) {
	ctx := context.Background()
	fw := &failingWriter{limit: headerSize + 2*RecordSize(1)}
	w, err := NewStreamWriter[float64](ctx, fw, 1, WithBufferSize(16))
	require.NoError(t, err)

	var werr error
	for i := 0; i < 10 && werr == nil; i++ {
		werr = w.Append(ctx, Record[float64]{PointID: int64(i), Coords: []float64{1}})
	}

	var we *WriteError
	require.ErrorAs(t, werr, &we)
	assert.ErrorIs(t, werr, errDiskFull)
	assert.Equal(t, werr, w.Append(ctx, Record[float64]{Coords: []float64{1}}), "later appends report the same error")
	assert.Equal(t, werr, w.Close())
}

func TestStream_HeaderWriteFailure(t *testing.T) {
	_, err := NewStreamWriter[float64](context.Background(), &failingWriter{limit: 4}, 2)

	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Zero(t, we.Written)
}

func TestStream_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewStreamWriter[float64](ctx, io.Discard, 0)
	assert.ErrorIs(t, err, ErrDimension)

	_, err = NewStreamWriter[float64](ctx, io.Discard, MaxDimension+1)
	assert.ErrorIs(t, err, ErrDimension)

	_, err = NewStreamWriter[float64](ctx, io.Discard, 2, WithCompression(9))
	assert.ErrorIs(t, err, ErrUnknownCompression)

	w, err := NewStreamWriter[float64](ctx, io.Discard, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, w.Append(ctx, Record[float64]{Coords: []float64{1}}), ErrDimension)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, w.Append(cctx, Record[float64]{Coords: []float64{1, 2}}), context.Canceled)

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Append(ctx, Record[float64]{Coords: []float64{1, 2}}), ErrClosed)
	assert.NoError(t, w.Close())
}

func TestReader_BadStreams(t *testing.T) {
	ctx := context.Background()

	_, err := NewReader[float64](ctx, bytes.NewReader([]byte("NNR")))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = NewReader[float64](ctx, bytes.NewReader([]byte("XXXX\x01\x00\x00\x00\x02\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = NewReader[float64](ctx, bytes.NewReader([]byte("NNR1\x07\x00\x00\x00\x02\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = NewReader[float64](ctx, bytes.NewReader([]byte("NNR1\x01\x09\x00\x00\x02\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrUnknownCompression)

	_, err = NewReader[float64](ctx, bytes.NewReader([]byte("NNR1\x01\x00\x00\x00\x00\x00\x00\x00")))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = NewReader[float64](ctx, bytes.NewReader([]byte("NNR1\x01\x00\x00\x00\xff\xff\xff\xff")))
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestReader_TruncatedRecord(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	w, err := NewStreamWriter[float64](ctx, &buf, 2)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, Record[float64]{PointID: 1, Coords: []float64{1, 2}}))
	require.NoError(t, w.Close())

	data := buf.Bytes()[:buf.Len()-3]
	r, err := NewReader[float64](ctx, bytes.NewReader(data))
	require.NoError(t, err)

	_, err = r.Next()
	assert.ErrorIs(t, err, ErrShortRecord)
}

func TestStream_IOController(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	var buf bytes.Buffer

	w, err := NewStreamWriter[float64](ctx, &buf, 2, WithIOController(rc))
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, Record[float64]{PointID: 4, Coords: []float64{1, 2}}))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	r, err := NewReader[float64](ctx, &buf, WithIOController(rc))
	require.NoError(t, err)
	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].PointID)
}
