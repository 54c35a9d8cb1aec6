package storage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/underwritingcasedesk/backend/pkg/errors"
)

// BlobStore keeps case PDFs in a gocloud bucket (file:// or mem://)
type BlobStore struct {
	bucket  *blob.Bucket
	metrics *observability.Metrics
}

// OpenBlobStore opens the bucket behind bucketURL
func OpenBlobStore(ctx context.Context, bucketURL string, metrics *observability.Metrics) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}
	return NewBlobStore(bucket, metrics), nil
}

// NewBlobStore wraps an already opened bucket
func NewBlobStore(bucket *blob.Bucket, metrics *observability.Metrics) *BlobStore {
	return &BlobStore{bucket: bucket, metrics: metrics}
}

var _ providers.DocumentStore = (*BlobStore)(nil)

// Put writes data under key
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	ctx, span := observability.StartSpan(ctx, "storage.BlobStore.Put")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("blob.key", key), attribute.Int("blob.size", len(data)))
	defer s.observe(ctx, "put", time.Now())

	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		observability.RecordError(span, err)
		return apperrors.NewInternalError("failed to store document", err)
	}
	return nil
}

// Get reads the object under key
func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := observability.StartSpan(ctx, "storage.BlobStore.Get")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("blob.key", key))
	defer s.observe(ctx, "get", time.Now())

	data, err := s.bucket.ReadAll(ctx, key)
	if gcerrors.Code(err) == gcerrors.NotFound {
		return nil, apperrors.NewNotFoundError("PDF not found")
	}
	if err != nil {
		observability.RecordError(span, err)
		return nil, apperrors.NewInternalError("failed to read document", err)
	}
	return data, nil
}

// Delete removes the object under key; a missing object is not an error
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	defer s.observe(ctx, "delete", time.Now())

	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return apperrors.NewInternalError("failed to delete document", err)
	}
	return nil
}

// Exists reports whether key is present
func (s *BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.bucket.Exists(ctx, key)
	if err != nil {
		return false, apperrors.NewInternalError("failed to check document", err)
	}
	return ok, nil
}

// Close releases the bucket
func (s *BlobStore) Close() error {
	return s.bucket.Close()
}

func (s *BlobStore) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordBlobMetric(ctx, s.metrics, operation, time.Since(start))
}
