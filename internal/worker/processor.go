package worker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
	"github.com/reelstream/media-service/pkg/logger"
)

// Processor runs one claimed queue entry through the full pipeline:
// download -> probe -> plan -> per-rendition encode -> manifest ->
// thumbnail -> publish. Stages execute strictly in sequence; the upload
// record is re-checked at stage boundaries so a cancelled job aborts
// cleanly instead of publishing.
type Processor struct {
	cfg        *config.Config
	uploadRepo uploads.Repository
	queue      uploads.JobQueue
	blobRepo   uploads.BlobRepository
	prober     Prober
	encoder    Encoder
	logger     logger.Logger
}

func NewProcessor(
	cfg *config.Config,
	uploadRepo uploads.Repository,
	queue uploads.JobQueue,
	blobRepo uploads.BlobRepository,
	prober Prober,
	encoder Encoder,
	log logger.Logger,
) *Processor {
	return &Processor{
		cfg:        cfg,
		uploadRepo: uploadRepo,
		queue:      queue,
		blobRepo:   blobRepo,
		prober:     prober,
		encoder:    encoder,
		logger:     log,
	}
}

func (p *Processor) Process(ctx context.Context, entry *models.QueueEntry) error {
	uploadID, err := uuid.Parse(entry.Payload.UploadID)
	if err != nil {
		return apperrors.NewValidationError("malformed upload id in payload: %v", err)
	}
	if err = p.ensureActive(ctx, uploadID); err != nil {
		return err
	}

	workspace, err := os.MkdirTemp("", "transcode_"+entry.Payload.JobID+"_")
	if err != nil {
		return errors.Wrap(err, "failed to create workspace")
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			p.logger.Warnf("workspace cleanup for job %s: %v", entry.Payload.JobID, err)
		}
	}()

	sourcePath, err := p.downloadSource(ctx, entry, workspace)
	if err != nil {
		return err
	}

	info, err := p.prober.Probe(ctx, sourcePath)
	if err != nil {
		return err
	}

	plan := PlanRenditions(info.Width, info.Height)
	tracker := newProgressTracker(ProgressFunc(func(percent float64) {
		if err := p.queue.ReportProgress(ctx, entry.EntryID, percent); err != nil {
			p.logger.Warnf("progress report for job %s: %v", entry.Payload.JobID, err)
		}
	}), len(plan))
	tracker.ProbeDone()

	renditions := make([]*models.Rendition, 0, len(plan))
	for i, planned := range plan {
		if err = p.ensureActive(ctx, uploadID); err != nil {
			return err
		}
		rendition, err := p.encodeRendition(ctx, sourcePath, workspace, uploadID, planned, info.DurationSeconds, tracker, i)
		if err != nil {
			return err
		}
		renditions = append(renditions, rendition)
	}
	tracker.RenditionsDone()

	if err = p.ensureActive(ctx, uploadID); err != nil {
		return err
	}
	if err = p.publishManifest(ctx, uploadID, renditions); err != nil {
		return err
	}
	thumbnailKey, err := p.publishThumbnail(ctx, sourcePath, workspace, uploadID, info.DurationSeconds)
	if err != nil {
		return err
	}

	outputs := &models.UploadOutputs{
		DurationSeconds: info.DurationSeconds,
		Width:           info.Width,
		Height:          info.Height,
		AspectRatio:     AspectRatio(info.Width, info.Height),
		MasterKey:       uploads.MasterManifestKey(uploadID),
		ThumbnailKey:    thumbnailKey,
		Renditions:      renditions,
	}
	if err = p.uploadRepo.MarkCompleted(ctx, uploadID, outputs); err != nil {
		return err
	}
	tracker.Done()

	p.logger.Infof("job %s completed: %d renditions, %.1fs source", entry.Payload.JobID, len(renditions), info.DurationSeconds)
	return nil
}

// CleanupOutputs discards partial artifacts after a failed or cancelled
// attempt. Best-effort: a retry overwrites the same keys anyway.
func (p *Processor) CleanupOutputs(ctx context.Context, uploadID string) {
	id, err := uuid.Parse(uploadID)
	if err != nil {
		return
	}
	if err := p.blobRepo.RemovePrefix(ctx, p.cfg.S3.OutputBucket, uploads.ProcessedPrefix(id)); err != nil {
		p.logger.Warnf("output cleanup for upload %s: %v", uploadID, err)
	}
}

// ensureActive aborts the pipeline when the upload left the processing
// state, which happens on user cancellation. The resulting error is not
// retryable.
func (p *Processor) ensureActive(ctx context.Context, uploadID uuid.UUID) error {
	upload, err := p.uploadRepo.GetByUploadID(ctx, uploadID)
	if err != nil {
		return err
	}
	if upload.State != models.StateProcessing {
		return apperrors.NewInvalidStateError("upload %s is %s, aborting job", uploadID, upload.State)
	}
	return nil
}

func (p *Processor) downloadSource(ctx context.Context, entry *models.QueueEntry, workspace string) (string, error) {
	body, err := p.blobRepo.GetObject(ctx, entry.Payload.SourceBucket, entry.Payload.SourceKey)
	if err != nil {
		return "", apperrors.NewTransientIOError(err, "failed to fetch source object")
	}
	defer body.Close()

	localPath := filepath.Join(workspace, "source"+filepath.Ext(entry.Payload.SourceKey))
	outFile, err := os.Create(localPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to create local source file")
	}
	defer outFile.Close()

	if _, err = io.Copy(outFile, body); err != nil {
		return "", apperrors.NewTransientIOError(err, "failed to download source object")
	}
	return localPath, nil
}

func (p *Processor) encodeRendition(
	ctx context.Context,
	sourcePath, workspace string,
	uploadID uuid.UUID,
	planned PlannedRendition,
	durationSeconds float64,
	tracker *progressTracker,
	index int,
) (*models.Rendition, error) {
	sink := ProgressFunc(func(percent float64) {
		tracker.RenditionProgress(index, percent)
	})
	result, err := p.encoder.Encode(ctx, sourcePath, workspace, planned, durationSeconds, sink)
	if err != nil {
		return nil, err
	}

	manifestKey := uploads.RenditionManifestKey(uploadID, planned.Label)
	if err = p.uploadFile(ctx, result.ManifestPath, manifestKey, "application/vnd.apple.mpegurl"); err != nil {
		return nil, err
	}
	for _, segmentPath := range result.SegmentPaths {
		segmentKey := uploads.RenditionSegmentKey(uploadID, planned.Label, filepath.Base(segmentPath))
		if err = p.uploadFile(ctx, segmentPath, segmentKey, "video/mp2t"); err != nil {
			return nil, err
		}
	}

	return &models.Rendition{
		UploadID:     uploadID,
		Label:        planned.Label,
		Width:        planned.Width,
		Height:       planned.Height,
		VideoBitrate: planned.VideoBitrate,
		AudioBitrate: planned.AudioBitrate,
		ManifestKey:  manifestKey,
		ByteSize:     result.ByteSize,
	}, nil
}

func (p *Processor) publishManifest(ctx context.Context, uploadID uuid.UUID, renditions []*models.Rendition) error {
	master := AssembleMaster(renditions)
	err := p.blobRepo.PutObject(ctx, &models.BlobUploadInput{
		File:        strings.NewReader(master),
		Key:         uploads.MasterManifestKey(uploadID),
		ContentType: "application/vnd.apple.mpegurl",
		Bucket:      p.cfg.S3.OutputBucket,
	})
	if err != nil {
		return apperrors.NewTransientIOError(err, "failed to upload master manifest")
	}
	return nil
}

func (p *Processor) publishThumbnail(ctx context.Context, sourcePath, workspace string, uploadID uuid.UUID, durationSeconds float64) (string, error) {
	thumbPath := filepath.Join(workspace, "thumb.jpg")
	if err := p.encoder.Thumbnail(ctx, sourcePath, thumbPath, durationSeconds*0.1); err != nil {
		return "", err
	}
	key := uploads.ThumbnailKey(uploadID)
	if err := p.uploadFile(ctx, thumbPath, key, "image/jpeg"); err != nil {
		return "", err
	}
	return key, nil
}

func (p *Processor) uploadFile(ctx context.Context, localPath, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return errors.Wrap(err, "failed to open artifact")
	}
	defer f.Close()

	if err = p.blobRepo.PutObject(ctx, &models.BlobUploadInput{
		File:        f,
		Key:         key,
		ContentType: contentType,
		Bucket:      p.cfg.S3.OutputBucket,
	}); err != nil {
		return apperrors.NewTransientIOError(err, "failed to upload artifact %s", key)
	}
	return nil
}
