package uploads

import (
	"context"

	"github.com/google/uuid"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/pkg/utils"
)

// Repository persists upload jobs and their renditions. Lifecycle
// transitions are guarded in the store itself so the one-way state
// machine holds under concurrent writers.
type Repository interface {
	CreateUpload(ctx context.Context, upload *models.UploadJob) (*models.UploadJob, error)
	GetByUploadID(ctx context.Context, uploadID uuid.UUID) (*models.UploadJob, error)
	GetUploads(ctx context.Context, userID uuid.UUID, state models.UploadState, pq *utils.Pagination) (*models.UploadList, error)
	GetRenditions(ctx context.Context, uploadID uuid.UUID) ([]*models.Rendition, error)

	MarkProcessing(ctx context.Context, uploadID uuid.UUID) error
	MarkCompleted(ctx context.Context, uploadID uuid.UUID, outputs *models.UploadOutputs) error
	MarkFailed(ctx context.Context, uploadID uuid.UUID, reason string) error
}
