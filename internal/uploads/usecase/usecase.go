package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
	"github.com/reelstream/media-service/pkg/logger"
	"github.com/reelstream/media-service/pkg/utils"
)

type uploadsUC struct {
	cfg        *config.Config
	uploadRepo uploads.Repository
	queue      uploads.JobQueue
	blobRepo   uploads.BlobRepository
	logger     logger.Logger
}

func NewUploadsUseCase(
	cfg *config.Config,
	uploadRepo uploads.Repository,
	queue uploads.JobQueue,
	blobRepo uploads.BlobRepository,
	log logger.Logger,
) uploads.UseCase {
	return &uploadsUC{
		cfg:        cfg,
		uploadRepo: uploadRepo,
		queue:      queue,
		blobRepo:   blobRepo,
		logger:     log,
	}
}

// InitUpload validates the declared file, creates the job in state
// uploading and hands back a time-limited presigned PUT target. The key
// is derived from the fresh upload ID so concurrent uploads never collide.
func (u *uploadsUC) InitUpload(ctx context.Context, input *models.InitUploadInput) (*models.InitUploadResult, error) {
	user, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if err = utils.ValidateStruct(ctx, input); err != nil {
		return nil, apperrors.NewValidationError("invalid input: %v", err)
	}
	if !u.allowedMime(input.ContentType) {
		return nil, apperrors.NewValidationError("unsupported content type %q", input.ContentType)
	}
	if input.FileSize > u.cfg.Upload.MaxFileSizeBytes {
		return nil, apperrors.NewValidationError("file size %d exceeds limit of %d bytes", input.FileSize, u.cfg.Upload.MaxFileSizeBytes)
	}

	uploadID := uuid.New()
	upload := &models.UploadJob{
		UploadID:     uploadID,
		UserID:       user.UserID,
		FileName:     input.FileName,
		FileSize:     input.FileSize,
		SourceBucket: u.cfg.S3.InputBucket,
		SourceKey:    uploads.SourceKey(user.UserID, uploadID, input.FileName),
		SeriesID:     nullUUID(input.SeriesID),
		EpisodeID:    nullUUID(input.EpisodeID),
	}
	if _, err = u.uploadRepo.CreateUpload(ctx, upload); err != nil {
		u.logger.Errorf("InitUpload - CreateUpload: %v", err)
		return nil, err
	}

	url, err := u.blobRepo.GetPresignedPutURL(ctx, &models.PresignInput{
		Bucket:      upload.SourceBucket,
		Key:         upload.SourceKey,
		ContentType: input.ContentType,
		Size:        input.FileSize,
		Expiry:      u.cfg.Upload.PresignExpiry,
	})
	if err != nil {
		u.logger.Errorf("InitUpload - GetPresignedPutURL: %v", err)
		return nil, err
	}

	u.logger.Infof("upload session %s created for user %s", uploadID, user.UserID)
	return &models.InitUploadResult{
		UploadID:  uploadID,
		UploadURL: url,
		ExpiresAt: time.Now().UTC().Add(u.cfg.Upload.PresignExpiry),
	}, nil
}

// CompleteUpload is the client's signal that the bytes landed in the blob
// store. It enqueues the transcode job and moves the upload to processing.
func (u *uploadsUC) CompleteUpload(ctx context.Context, uploadID uuid.UUID) (string, error) {
	upload, err := u.ownedUpload(ctx, uploadID)
	if err != nil {
		return "", err
	}
	if upload.State != models.StateUploading {
		return "", apperrors.NewInvalidStateError("upload %s is %s", uploadID, upload.State)
	}

	if err = u.uploadRepo.MarkProcessing(ctx, uploadID); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	payload := &models.JobPayload{
		JobID:            jobID,
		UploadID:         uploadID.String(),
		SourceBucket:     upload.SourceBucket,
		SourceKey:        upload.SourceKey,
		OriginalFilename: upload.FileName,
	}
	if _, err = u.queue.Enqueue(ctx, payload, models.EnqueueOptions{
		Priority:    u.cfg.Queue.DefaultPriority,
		MaxAttempts: u.cfg.Queue.MaxAttempts,
	}); err != nil {
		u.logger.Errorf("CompleteUpload - Enqueue: %v", err)
		// The record is already processing; fail it so the client is not
		// left polling a job no worker will ever see.
		if failErr := u.uploadRepo.MarkFailed(ctx, uploadID, "failed to enqueue transcode job"); failErr != nil {
			u.logger.Errorf("CompleteUpload - MarkFailed after enqueue error: %v", failErr)
		}
		return "", err
	}

	u.logger.Infof("upload %s queued for transcoding, job %s", uploadID, jobID)
	return jobID, nil
}

// CancelUpload is allowed while uploading or processing. The queue entry
// is removed best-effort; a worker that already claimed it aborts at the
// next stage boundary.
func (u *uploadsUC) CancelUpload(ctx context.Context, uploadID uuid.UUID) error {
	upload, err := u.ownedUpload(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload.State.Terminal() {
		return apperrors.NewInvalidStateError("upload %s is %s", uploadID, upload.State)
	}

	if err = u.uploadRepo.MarkFailed(ctx, uploadID, models.CancelReason); err != nil {
		return err
	}
	if upload.State == models.StateProcessing {
		if err = u.queue.Remove(ctx, uploadID.String()); err != nil {
			u.logger.Warnf("CancelUpload - queue remove for %s: %v", uploadID, err)
		}
	}
	u.logger.Infof("upload %s cancelled by user", uploadID)
	return nil
}

func (u *uploadsUC) GetStatus(ctx context.Context, uploadID uuid.UUID) (*models.UploadStatus, error) {
	upload, err := u.ownedUpload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	status := &models.UploadStatus{
		UploadID: upload.UploadID,
		State:    upload.State,
	}
	switch upload.State {
	case models.StateCompleted:
		status.Progress = 100
		status.MasterKey = upload.MasterKey.String
		status.ThumbnailKey = upload.ThumbnailKey.String
		renditions, err := u.uploadRepo.GetRenditions(ctx, uploadID)
		if err != nil {
			return nil, err
		}
		status.Renditions = renditions
	case models.StateFailed:
		status.Progress = 0
		status.Error = upload.ErrorMessage.String
	case models.StateProcessing:
		entry, err := u.queue.GetEntry(ctx, uploadID.String())
		if err == nil {
			status.Progress = entry.Progress
		} else if !apperrors.IsNotFound(err) {
			u.logger.Warnf("GetStatus - queue entry for %s: %v", uploadID, err)
		}
	}
	return status, nil
}

func (u *uploadsUC) ListUploads(ctx context.Context, state models.UploadState, pagination *utils.Pagination) (*models.UploadList, error) {
	user, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	if state != "" && !state.Valid() {
		return nil, apperrors.NewValidationError("unknown status filter %q", state)
	}
	if pagination == nil {
		pagination = &utils.Pagination{Page: 1, Size: 10}
	}
	return u.uploadRepo.GetUploads(ctx, user.UserID, state, pagination)
}

func (u *uploadsUC) ownedUpload(ctx context.Context, uploadID uuid.UUID) (*models.UploadJob, error) {
	user, err := utils.GetUserFromCtx(ctx)
	if err != nil {
		return nil, err
	}
	upload, err := u.uploadRepo.GetByUploadID(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	// Ownership failures read as not-found so upload IDs are not probeable.
	if upload.UserID != user.UserID {
		return nil, apperrors.NewNotFoundError("upload %s not found", uploadID)
	}
	return upload, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (u *uploadsUC) allowedMime(contentType string) bool {
	for _, allowed := range u.cfg.Upload.AllowedMimeTypes {
		if contentType == allowed {
			return true
		}
	}
	return false
}
