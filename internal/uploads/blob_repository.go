package uploads

import (
	"context"
	"io"

	"github.com/reelstream/media-service/internal/models"
)

// BlobRepository is the durable object store contract. Raw uploads live
// under one prefix, processed artifacts under another, both scoped by
// upload ID.
type BlobRepository interface {
	GetPresignedPutURL(ctx context.Context, input *models.PresignInput) (string, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, input *models.BlobUploadInput) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	RemoveObject(ctx context.Context, bucket, key string) error
	RemovePrefix(ctx context.Context, bucket, prefix string) error
}
