package worker

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
	"github.com/reelstream/media-service/pkg/logger"
	"github.com/reelstream/media-service/pkg/utils"
)

type fakeRepo struct {
	states    map[uuid.UUID]models.UploadState
	completed map[uuid.UUID]*models.UploadOutputs
	failed    map[uuid.UUID]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		states:    make(map[uuid.UUID]models.UploadState),
		completed: make(map[uuid.UUID]*models.UploadOutputs),
		failed:    make(map[uuid.UUID]string),
	}
}

func (r *fakeRepo) CreateUpload(ctx context.Context, upload *models.UploadJob) (*models.UploadJob, error) {
	return upload, nil
}

func (r *fakeRepo) GetByUploadID(ctx context.Context, uploadID uuid.UUID) (*models.UploadJob, error) {
	state, ok := r.states[uploadID]
	if !ok {
		return nil, apperrors.NewNotFoundError("upload %s not found", uploadID)
	}
	return &models.UploadJob{UploadID: uploadID, State: state}, nil
}

func (r *fakeRepo) GetUploads(ctx context.Context, userID uuid.UUID, state models.UploadState, pq *utils.Pagination) (*models.UploadList, error) {
	return &models.UploadList{}, nil
}

func (r *fakeRepo) GetRenditions(ctx context.Context, uploadID uuid.UUID) ([]*models.Rendition, error) {
	return nil, nil
}

func (r *fakeRepo) MarkProcessing(ctx context.Context, uploadID uuid.UUID) error {
	r.states[uploadID] = models.StateProcessing
	return nil
}

func (r *fakeRepo) MarkCompleted(ctx context.Context, uploadID uuid.UUID, outputs *models.UploadOutputs) error {
	r.states[uploadID] = models.StateCompleted
	r.completed[uploadID] = outputs
	return nil
}

func (r *fakeRepo) MarkFailed(ctx context.Context, uploadID uuid.UUID, reason string) error {
	r.states[uploadID] = models.StateFailed
	r.failed[uploadID] = reason
	return nil
}

type fakeBlobStore struct {
	putKeys    []string
	getObjects map[string][]byte
	removed    []string
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{getObjects: make(map[string][]byte)}
}

func (b *fakeBlobStore) GetPresignedPutURL(ctx context.Context, input *models.PresignInput) (string, error) {
	return "", errors.New("not implemented")
}

func (b *fakeBlobStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	data, ok := b.getObjects[key]
	if !ok {
		return nil, errors.Errorf("no such key %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlobStore) PutObject(ctx context.Context, input *models.BlobUploadInput) error {
	b.putKeys = append(b.putKeys, input.Key)
	return nil
}

func (b *fakeBlobStore) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	return nil, nil
}

func (b *fakeBlobStore) RemoveObject(ctx context.Context, bucket, key string) error { return nil }

func (b *fakeBlobStore) RemovePrefix(ctx context.Context, bucket, prefix string) error {
	b.removed = append(b.removed, prefix)
	return nil
}

type fakeProgressQueue struct {
	progress []float64
}

func (q *fakeProgressQueue) Enqueue(ctx context.Context, payload *models.JobPayload, opts models.EnqueueOptions) (string, error) {
	return "", nil
}

func (q *fakeProgressQueue) Dequeue(ctx context.Context) (*models.QueueEntry, error) {
	return nil, nil
}

func (q *fakeProgressQueue) ReportProgress(ctx context.Context, entryID string, percent float64) error {
	q.progress = append(q.progress, percent)
	return nil
}

func (q *fakeProgressQueue) Complete(ctx context.Context, entryID string) error { return nil }

func (q *fakeProgressQueue) Fail(ctx context.Context, entryID string, errMsg string, retryable bool) (int, error) {
	return 0, nil
}

func (q *fakeProgressQueue) Remove(ctx context.Context, entryID string) error { return nil }

func (q *fakeProgressQueue) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	return nil, apperrors.NewNotFoundError("entry %s not found", entryID)
}

type fakeProber struct {
	info *MediaInfo
	err  error
}

func (p *fakeProber) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.info, nil
}

// fakeEncoder writes real files so the upload path has something to read.
type fakeEncoder struct {
	encoded []string
	err     error

	// repo lets the encoder flip the upload state mid-job to exercise
	// the cancellation boundary checks.
	cancelAfter string
	repo        *fakeRepo
	uploadID    uuid.UUID
}

func (e *fakeEncoder) Encode(ctx context.Context, inputPath, outDir string, rendition PlannedRendition, durationSeconds float64, sink ProgressSink) (*EncodeResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	dir := filepath.Join(outDir, rendition.Label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	manifest := filepath.Join(dir, rendition.Label+".m3u8")
	segment := filepath.Join(dir, "segment_000.ts")
	for _, path := range []string{manifest, segment} {
		if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
			return nil, err
		}
	}
	sink.Report(100)
	e.encoded = append(e.encoded, rendition.Label)
	if rendition.Label == e.cancelAfter {
		e.repo.states[e.uploadID] = models.StateFailed
	}
	return &EncodeResult{ManifestPath: manifest, SegmentPaths: []string{segment}, ByteSize: 8}, nil
}

func (e *fakeEncoder) Thumbnail(ctx context.Context, inputPath, outPath string, atSeconds float64) error {
	return os.WriteFile(outPath, []byte("jpeg"), 0o644)
}

type processorFixture struct {
	processor *Processor
	repo      *fakeRepo
	blobStore *fakeBlobStore
	queue     *fakeProgressQueue
	prober    *fakeProber
	encoder   *fakeEncoder
	uploadID  uuid.UUID
	entry     *models.QueueEntry
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	cfg := &config.Config{
		S3:     config.S3Config{InputBucket: "in", OutputBucket: "out"},
		Logger: config.Logger{Development: true, Encoding: "console", Level: "error"},
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()

	uploadID := uuid.New()
	repo := newFakeRepo()
	repo.states[uploadID] = models.StateProcessing

	blobStore := newFakeBlobStore()
	blobStore.getObjects["uploads/u/source.mp4"] = []byte("fake video bytes")

	f := &processorFixture{
		repo:      repo,
		blobStore: blobStore,
		queue:     &fakeProgressQueue{},
		prober:    &fakeProber{info: &MediaInfo{DurationSeconds: 60, Width: 1080, Height: 1920, Codec: "h264"}},
		encoder:   &fakeEncoder{repo: repo, uploadID: uploadID},
		uploadID:  uploadID,
	}
	f.processor = NewProcessor(cfg, repo, f.queue, blobStore, f.prober, f.encoder, appLogger)
	f.entry = &models.QueueEntry{
		EntryID: uploadID.String(),
		Payload: models.JobPayload{
			JobID:        uuid.New().String(),
			UploadID:     uploadID.String(),
			SourceBucket: "in",
			SourceKey:    "uploads/u/source.mp4",
		},
		Attempts:    1,
		MaxAttempts: 3,
	}
	return f
}

func TestProcessHappyPath(t *testing.T) {
	f := newProcessorFixture(t)

	require.NoError(t, f.processor.Process(context.Background(), f.entry))

	require.Equal(t, models.StateCompleted, f.repo.states[f.uploadID])
	outputs := f.repo.completed[f.uploadID]
	require.NotNil(t, outputs)
	require.Equal(t, 60.0, outputs.DurationSeconds)
	require.Equal(t, "9:16", outputs.AspectRatio)
	require.Len(t, outputs.Renditions, 4)
	require.Equal(t, uploads.MasterManifestKey(f.uploadID), outputs.MasterKey)
	require.Equal(t, uploads.ThumbnailKey(f.uploadID), outputs.ThumbnailKey)

	require.Contains(t, f.blobStore.putKeys, uploads.MasterManifestKey(f.uploadID))
	require.Contains(t, f.blobStore.putKeys, uploads.ThumbnailKey(f.uploadID))
	require.Contains(t, f.blobStore.putKeys, uploads.RenditionManifestKey(f.uploadID, "1080p"))
	require.Contains(t, f.blobStore.putKeys, uploads.RenditionSegmentKey(f.uploadID, "360p", "segment_000.ts"))

	require.NotEmpty(t, f.queue.progress)
	require.Equal(t, 100.0, f.queue.progress[len(f.queue.progress)-1])
	last := -1.0
	for _, p := range f.queue.progress {
		require.GreaterOrEqual(t, p, last)
		last = p
	}
}

func TestProcessUnsupportedSource(t *testing.T) {
	f := newProcessorFixture(t)
	f.prober.err = apperrors.NewUnsupportedMediaError(nil, "no video stream found")

	err := f.processor.Process(context.Background(), f.entry)
	require.Error(t, err)
	require.False(t, apperrors.Retryable(err))
	require.Empty(t, f.encoder.encoded)
}

func TestProcessEncodeFailureIsRetryable(t *testing.T) {
	f := newProcessorFixture(t)
	f.encoder.err = apperrors.NewEncodingError(errors.New("exit status 1"), "encoder crashed")

	err := f.processor.Process(context.Background(), f.entry)
	require.Error(t, err)
	require.True(t, apperrors.Retryable(err))
	require.Equal(t, models.StateProcessing, f.repo.states[f.uploadID], "publisher must not run")
}

func TestProcessMissingSource(t *testing.T) {
	f := newProcessorFixture(t)
	f.entry.Payload.SourceKey = "uploads/u/missing.mp4"

	err := f.processor.Process(context.Background(), f.entry)
	require.Error(t, err)
	require.True(t, apperrors.Retryable(err))
}

func TestProcessAbortsOnCancellation(t *testing.T) {
	f := newProcessorFixture(t)
	f.encoder.cancelAfter = "360p"

	err := f.processor.Process(context.Background(), f.entry)
	require.Error(t, err)
	require.False(t, apperrors.Retryable(err))
	require.Equal(t, []string{"360p"}, f.encoder.encoded)
	require.NotContains(t, f.blobStore.putKeys, uploads.MasterManifestKey(f.uploadID))
	require.Nil(t, f.repo.completed[f.uploadID])
}

func TestProcessRejectsNonProcessingState(t *testing.T) {
	f := newProcessorFixture(t)
	f.repo.states[f.uploadID] = models.StateFailed

	err := f.processor.Process(context.Background(), f.entry)
	require.Error(t, err)
	require.True(t, apperrors.IsInvalidState(err))
}

func TestCleanupOutputs(t *testing.T) {
	f := newProcessorFixture(t)

	f.processor.CleanupOutputs(context.Background(), f.uploadID.String())
	require.Equal(t, []string{uploads.ProcessedPrefix(f.uploadID)}, f.blobStore.removed)
}
