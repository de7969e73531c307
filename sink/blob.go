package sink

import (
	"context"
	"errors"

	"github.com/hupe1980/dualtree/blobstore"
	"github.com/hupe1980/dualtree/distance"
)

// BlobSink streams records into a blob. The blob only becomes visible after
// a successful Commit; Abort discards everything written so far.
type BlobSink[T distance.Float] struct {
	*StreamWriter[T]
	blob blobstore.WritableBlob
	name string
}

// NewBlobSink creates name in store and writes the stream header to it.
func NewBlobSink[T distance.Float](ctx context.Context, store blobstore.BlobStore, name string, dim int, opts ...StreamOption) (*BlobSink[T], error) {
	blob, err := store.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	sw, err := NewStreamWriter[T](ctx, blob, dim, opts...)
	if err != nil {
		_ = blobstore.Abort(ctx, blob)
		return nil, err
	}
	return &BlobSink[T]{StreamWriter: sw, blob: blob, name: name}, nil
}

// Name returns the blob name.
func (s *BlobSink[T]) Name() string { return s.name }

// Commit flushes the stream and publishes the blob.
func (s *BlobSink[T]) Commit(ctx context.Context) error {
	if err := s.StreamWriter.Close(); err != nil {
		return errors.Join(err, blobstore.Abort(ctx, s.blob))
	}
	if err := s.blob.Close(); err != nil {
		return &WriteError{Written: s.Written(), Cause: err}
	}
	return nil
}

// Abort discards the partial blob.
func (s *BlobSink[T]) Abort(ctx context.Context) error {
	_ = s.StreamWriter.Close()
	return blobstore.Abort(ctx, s.blob)
}

// ReadBlob decodes every record of a blob written through a BlobSink.
func ReadBlob[T distance.Float](ctx context.Context, store blobstore.BlobStore, name string, opts ...StreamOption) ([]Record[T], error) {
	rc, err := blobstore.OpenReader(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	r, err := NewReader[T](ctx, rc, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadAll()
}
