package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/dualtree/blobstore"
)

func TestBlobSink_Commit(t *testing.T) {
	ctx := context.Background()
	stores := map[string]blobstore.BlobStore{
		"memory": blobstore.NewMemoryStore(),
		"local":  blobstore.NewLocalStore(t.TempDir()),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			s, err := NewBlobSink[float64](ctx, store, "runs/range.nnr", 3, WithCompression(CompressionZSTD))
			require.NoError(t, err)
			assert.Equal(t, "runs/range.nnr", s.Name())

			want := records(50, 3)
			for _, rec := range want {
				require.NoError(t, s.Append(ctx, rec))
			}
			require.NoError(t, s.Commit(ctx))

			got, err := ReadBlob[float64](ctx, store, "runs/range.nnr")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestBlobSink_Abort(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	s, err := NewBlobSink[float64](ctx, store, "partial.nnr", 2)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, Record[float64]{Coords: []float64{1, 2}}))

	require.NoError(t, s.Abort(ctx))

	_, err = ReadBlob[float64](ctx, store, "partial.nnr")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestBlobSink_Empty(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	s, err := NewBlobSink[float32](ctx, store, "empty.nnr", 4, WithCompression(CompressionLZ4))
	require.NoError(t, err)
	require.NoError(t, s.Commit(ctx))

	got, err := ReadBlob[float32](ctx, store, "empty.nnr")
	require.NoError(t, err)
	assert.Empty(t, got)
}
