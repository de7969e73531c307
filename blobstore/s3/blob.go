package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/dualtree/blobstore"
)

// resultBlob reads one result stream object. Reads are pinned to the ETag
// seen by Open, so an object replaced mid-read fails with a precondition
// error instead of mixing two streams.
type resultBlob struct {
	client Client
	bucket string
	key    string
	size   int64
	etag   string
}

func openBlob(ctx context.Context, client Client, bucket, key string) (*resultBlob, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return &resultBlob{
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
		etag:   aws.ToString(head.ETag),
	}, nil
}

func (b *resultBlob) Size() int64  { return b.size }
func (b *resultBlob) Close() error { return nil }

// get fetches [off, end]. A request for the whole object, which is what a
// sequential stream reader makes, is sent without a Range header.
func (b *resultBlob) get(ctx context.Context, off, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	}
	if off > 0 || end < b.size-1 {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", off, end))
	}
	if b.etag != "" {
		in.IfMatch = aws.String(b.etag)
	}
	resp, err := b.client.GetObject(ctx, in)
	if err != nil {
		if isNotFound(err) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return resp.Body, nil
}

func (b *resultBlob) clip(off, length int64) (int64, error) {
	if off < 0 || off >= b.size || length <= 0 {
		return 0, io.EOF
	}
	return min(off+length, b.size) - 1, nil
}

func (b *resultBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	end, err := b.clip(off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	body, err := b.get(ctx, off, end)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:end-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (b *resultBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	end, err := b.clip(off, length)
	if err != nil {
		return nil, err
	}
	return b.get(ctx, off, end)
}

func listObjects(ctx context.Context, client Client, bucket, fullPrefix, rootPrefix string) ([]string, error) {
	var names []string
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(fullPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), rootPrefix)
			names = append(names, strings.TrimPrefix(name, "/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
}
