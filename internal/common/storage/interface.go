package storage

import (
	"context"
	"io"
)

// ObjectStorage defines minimal object storage operations required by the
// submission source archive. It is intentionally small so we can swap
// MinIO/AWS-S3 implementations without touching business logic.
type ObjectStorage interface {
	// PutObject stores an object. sizeBytes must match the reader's length.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject opens a reader for an object.
	// Caller must close the returned reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)

	// StatObject returns size and ETag for an object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)
}

// ObjectStat contains object metadata used for validation.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
