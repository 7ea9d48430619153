package uploads

import (
	"context"

	"github.com/google/uuid"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/pkg/utils"
)

type UseCase interface {
	InitUpload(ctx context.Context, input *models.InitUploadInput) (*models.InitUploadResult, error)
	CompleteUpload(ctx context.Context, uploadID uuid.UUID) (string, error)
	CancelUpload(ctx context.Context, uploadID uuid.UUID) error
	GetStatus(ctx context.Context, uploadID uuid.UUID) (*models.UploadStatus, error)
	ListUploads(ctx context.Context, state models.UploadState, pagination *utils.Pagination) (*models.UploadList, error)
}
