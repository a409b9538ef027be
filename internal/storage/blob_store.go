// Package storage provides the protected object store behind the edge,
// backed by gocloud.dev/blob so the bucket URL in configuration selects the
// provider.
package storage

import (
	"context"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	apperrors "github.com/opsportal/linkbroker/internal/errors"

	// Register blob provider drivers selected via BUCKET_URL.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// ObjectStore is the storage surface the edge and the issuer collaborate
// with. Keys are the capability's resource location with the leading slash
// stripped.
type ObjectStore interface {
	// Upload streams the reader into the object at key.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error

	// Download opens the object at key. The caller owns the returned reader.
	// Returns the content type alongside the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)

	// PreparePrefix creates an empty marker object for the prefix with the
	// given metadata attached (e.g. the original alert reference).
	PreparePrefix(ctx context.Context, prefix string, metadata map[string]string) error

	Close() error
}

// BlobStore implements ObjectStore on a gocloud.dev bucket.
type BlobStore struct {
	bucket *blob.Bucket
}

// Open opens the bucket identified by the gocloud URL (s3://, file://,
// gs://, mem://).
func Open(ctx context.Context, bucketURL string) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open bucket")
	}
	return &BlobStore{bucket: bucket}, nil
}

// NewBlobStore wraps an already-open bucket. Used by tests.
func NewBlobStore(bucket *blob.Bucket) *BlobStore {
	return &BlobStore{bucket: bucket}
}

// Upload streams the body into the object at key.
func (b *BlobStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	writer, err := b.bucket.NewWriter(ctx, normalizeKey(key), &blob.WriterOptions{
		ContentType: contentType,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to open object writer")
	}

	if _, err := io.Copy(writer, body); err != nil {
		_ = writer.Close()
		return apperrors.Wrap(err, "failed to write object")
	}
	if err := writer.Close(); err != nil {
		return apperrors.Wrap(err, "failed to finish object write")
	}
	return nil
}

// Download opens the object at key and reports its content type.
func (b *BlobStore) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key = normalizeKey(key)

	attrs, err := b.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", apperrors.Wrap(apperrors.ErrNotFound, "object not found")
		}
		return nil, "", apperrors.Wrap(err, "failed to read object attributes")
	}

	reader, err := b.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, "", apperrors.Wrap(apperrors.ErrNotFound, "object not found")
		}
		return nil, "", apperrors.Wrap(err, "failed to open object reader")
	}
	return reader, attrs.ContentType, nil
}

// PreparePrefix writes an empty marker object carrying the metadata, the way
// a folder placeholder carries the original alert reference.
func (b *BlobStore) PreparePrefix(ctx context.Context, prefix string, metadata map[string]string) error {
	err := b.bucket.WriteAll(ctx, normalizeKey(prefix), []byte{}, &blob.WriterOptions{
		Metadata: metadata,
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to prepare prefix")
	}
	return nil
}

// Close releases the underlying bucket.
func (b *BlobStore) Close() error {
	return b.bucket.Close()
}

// normalizeKey strips the leading slash: capability locations are absolute
// request paths, blob keys are not.
func normalizeKey(key string) string {
	return strings.TrimPrefix(key, "/")
}
