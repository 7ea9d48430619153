package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
	"github.com/reelstream/media-service/pkg/utils"
)

type uploadsRepo struct {
	db *sqlx.DB
}

func NewUploadsRepo(db *sqlx.DB) uploads.Repository {
	return &uploadsRepo{db: db}
}

func (r *uploadsRepo) CreateUpload(ctx context.Context, upload *models.UploadJob) (*models.UploadJob, error) {
	created := &models.UploadJob{}
	if err := r.db.QueryRowxContext(
		ctx,
		createUploadQuery,
		upload.UploadID,
		upload.UserID,
		upload.FileName,
		upload.FileSize,
		upload.SourceBucket,
		upload.SourceKey,
		upload.SeriesID,
		upload.EpisodeID,
	).StructScan(created); err != nil {
		return nil, errors.Wrap(err, "uploadsRepo.CreateUpload")
	}
	return created, nil
}

func (r *uploadsRepo) GetByUploadID(ctx context.Context, uploadID uuid.UUID) (*models.UploadJob, error) {
	upload := &models.UploadJob{}
	if err := r.db.QueryRowxContext(ctx, getUploadByIDQuery, uploadID).StructScan(upload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("upload %s not found", uploadID)
		}
		return nil, errors.Wrap(err, "uploadsRepo.GetByUploadID")
	}
	return upload, nil
}

func (r *uploadsRepo) GetUploads(ctx context.Context, userID uuid.UUID, state models.UploadState, pq *utils.Pagination) (*models.UploadList, error) {
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, getTotalUploadsByUserQuery, userID, string(state)); err != nil {
		return nil, errors.Wrap(err, "uploadsRepo.GetUploads.count")
	}
	if totalCount == 0 {
		return &models.UploadList{
			Uploads:    make([]*models.UploadJob, 0),
			TotalCount: 0,
			Page:       pq.GetPage(),
			PageSize:   pq.GetSize(),
			HasMore:    false,
		}, nil
	}

	rows, err := r.db.QueryxContext(ctx, getUploadsByUserQuery, userID, string(state), pq.GetOffset(), pq.GetLimit())
	if err != nil {
		return nil, errors.Wrap(err, "uploadsRepo.GetUploads.query")
	}
	defer rows.Close()

	list := make([]*models.UploadJob, 0, pq.GetSize())
	for rows.Next() {
		var upload models.UploadJob
		if err = rows.StructScan(&upload); err != nil {
			return nil, errors.Wrap(err, "uploadsRepo.GetUploads.scan")
		}
		list = append(list, &upload)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "uploadsRepo.GetUploads.rows")
	}
	return &models.UploadList{
		Uploads:    list,
		TotalCount: totalCount,
		Page:       pq.GetPage(),
		PageSize:   pq.GetSize(),
		HasMore:    utils.GetHasMore(pq.GetPage(), totalCount, pq.GetSize()),
	}, nil
}

func (r *uploadsRepo) GetRenditions(ctx context.Context, uploadID uuid.UUID) ([]*models.Rendition, error) {
	rows, err := r.db.QueryxContext(ctx, getRenditionsQuery, uploadID)
	if err != nil {
		return nil, errors.Wrap(err, "uploadsRepo.GetRenditions")
	}
	defer rows.Close()

	renditions := make([]*models.Rendition, 0)
	for rows.Next() {
		var rendition models.Rendition
		if err = rows.StructScan(&rendition); err != nil {
			return nil, errors.Wrap(err, "uploadsRepo.GetRenditions.scan")
		}
		renditions = append(renditions, &rendition)
	}
	return renditions, rows.Err()
}

// MarkProcessing transitions uploading -> processing. The state guard in
// the UPDATE enforces the one-way lifecycle.
func (r *uploadsRepo) MarkProcessing(ctx context.Context, uploadID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, markProcessingQuery, uploadID)
	if err != nil {
		return errors.Wrap(err, "uploadsRepo.MarkProcessing")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return r.staleTransitionError(ctx, uploadID, models.StateProcessing)
	}
	return nil
}

// MarkCompleted publishes the final artifact set. Calling it again after
// the upload is already completed is a no-op.
func (r *uploadsRepo) MarkCompleted(ctx context.Context, uploadID uuid.UUID, outputs *models.UploadOutputs) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "uploadsRepo.MarkCompleted.begin")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(
		ctx,
		markCompletedQuery,
		uploadID,
		outputs.DurationSeconds,
		outputs.Width,
		outputs.Height,
		outputs.AspectRatio,
		outputs.MasterKey,
		outputs.ThumbnailKey,
	)
	if err != nil {
		return errors.Wrap(err, "uploadsRepo.MarkCompleted")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return r.staleTransitionError(ctx, uploadID, models.StateCompleted)
	}

	for _, rendition := range outputs.Renditions {
		if _, err = tx.ExecContext(
			ctx,
			insertRenditionQuery,
			uploadID,
			rendition.Label,
			rendition.Width,
			rendition.Height,
			rendition.VideoBitrate,
			rendition.AudioBitrate,
			rendition.ManifestKey,
			rendition.ByteSize,
		); err != nil {
			return errors.Wrap(err, "uploadsRepo.MarkCompleted.rendition")
		}
	}
	return tx.Commit()
}

// MarkFailed is terminal for both system failures and user cancellation.
// Re-failing an already failed upload is a no-op.
func (r *uploadsRepo) MarkFailed(ctx context.Context, uploadID uuid.UUID, reason string) error {
	res, err := r.db.ExecContext(ctx, markFailedQuery, uploadID, reason)
	if err != nil {
		return errors.Wrap(err, "uploadsRepo.MarkFailed")
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return r.staleTransitionError(ctx, uploadID, models.StateFailed)
	}
	return nil
}

// staleTransitionError resolves a zero-row transition: reaching the same
// terminal state twice is idempotent success, anything else is reported
// against the current state.
func (r *uploadsRepo) staleTransitionError(ctx context.Context, uploadID uuid.UUID, target models.UploadState) error {
	var current models.UploadState
	if err := r.db.GetContext(ctx, &current, getUploadStateQuery, uploadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("upload %s not found", uploadID)
		}
		return errors.Wrap(err, "uploadsRepo.staleTransitionError")
	}
	if current == target && target.Terminal() {
		return nil
	}
	return apperrors.NewInvalidStateError("upload %s is %s", uploadID, current)
}
