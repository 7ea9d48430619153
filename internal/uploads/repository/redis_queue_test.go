package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
)

// The visibility TTL is deliberately tiny: lock expiry is driven by the
// miniredis clock (FastForward) while zset dueness is driven by the wall
// clock, so redelivery tests advance both.
const testVisibilityTTL = 50 * time.Millisecond

func newQueueFixture(t *testing.T) (*miniredis.Miniredis, uploads.JobQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		Queue: config.QueueConfig{
			Name:          "test_jobs",
			MaxAttempts:   3,
			BackoffBase:   time.Hour,
			VisibilityTTL: testVisibilityTTL,
			RetentionTTL:  time.Hour,
		},
	}
	return mr, NewJobQueue(client, cfg)
}

func enqueueJob(t *testing.T, q uploads.JobQueue, opts models.EnqueueOptions) string {
	t.Helper()
	uploadID := uuid.New().String()
	entryID, err := q.Enqueue(context.Background(), &models.JobPayload{
		JobID:        uuid.New().String(),
		UploadID:     uploadID,
		SourceBucket: "in",
		SourceKey:    "uploads/u/" + uploadID + "/source.mp4",
	}, opts)
	require.NoError(t, err)
	require.Equal(t, uploadID, entryID)
	return entryID
}

func expireVisibility(mr *miniredis.Miniredis) {
	mr.FastForward(time.Second)
	time.Sleep(testVisibilityTTL + 30*time.Millisecond)
}

func TestQueueEnqueueDequeue(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, entryID, entry.EntryID)
	require.Equal(t, 1, entry.Attempts)
	require.Equal(t, 3, entry.MaxAttempts)
	require.Equal(t, models.EntryProcessing, entry.Status)

	// The claim is invisible while the lock is live.
	next, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, next)
}

func TestQueueRedeliversAfterWorkerCrash(t *testing.T) {
	mr, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NoError(t, q.ReportProgress(ctx, entryID, 60))

	// The worker dies here: no Complete, no Fail. Once the visibility
	// window lapses the entry must come due again as a full re-attempt.
	expireVisibility(mr)

	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, second, "crashed worker's entry was never redelivered")
	require.Equal(t, entryID, second.EntryID)
	require.Equal(t, 2, second.Attempts)
	require.Equal(t, first.Payload, second.Payload)
	require.Zero(t, second.Progress, "re-attempt starts from zero progress")

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Zero(t, stored.Progress)
}

func TestQueueRetryableFailureSchedulesBackoff(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	remaining, err := q.Fail(ctx, entryID, "encoder crashed", true)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)

	// First retry waits a full BackoffBase, far beyond this test.
	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, entry, "entry must not be due before its backoff elapses")

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryQueued, stored.Status)
	require.Equal(t, "encoder crashed", stored.LastError)
	require.Zero(t, stored.Progress)
}

func TestQueueNonRetryableFailureIsTerminal(t *testing.T) {
	mr, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	remaining, err := q.Fail(ctx, entryID, "no video stream found", false)
	require.NoError(t, err)
	require.Zero(t, remaining)

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryFailed, stored.Status)
	require.Equal(t, 1, stored.Attempts, "fatal failure must not consume further attempts")

	// Terminal entries leave the ready set for good and age out.
	expireVisibility(mr)
	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, entry)
	require.Greater(t, mr.TTL("q:test_jobs:entry:"+entryID), time.Duration(0))
}

func TestQueueExhaustedAttemptsAreTerminal(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{MaxAttempts: 1})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	remaining, err := q.Fail(ctx, entryID, "encoder crashed", true)
	require.NoError(t, err)
	require.Zero(t, remaining, "a single-attempt entry has no retries left")

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryFailed, stored.Status)
}

func TestQueueCompleteRemovesEntryFromReadySet(t *testing.T) {
	mr, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Complete(ctx, entryID))

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryCompleted, stored.Status)
	require.Equal(t, 100.0, stored.Progress)

	// A completed entry must never be redelivered, even after the
	// visibility window it was claimed under has lapsed.
	expireVisibility(mr)
	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestQueuePrioritySelection(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	enqueueJob(t, q, models.EnqueueOptions{Priority: 0})
	urgent := enqueueJob(t, q, models.EnqueueOptions{Priority: 5})

	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, urgent, entry.EntryID, "highest-priority due entry wins")
}

func TestQueueProgressIsMonotonic(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.ReportProgress(ctx, entryID, 40))
	require.NoError(t, q.ReportProgress(ctx, entryID, 25))
	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, 40.0, stored.Progress, "regressions are dropped")

	require.NoError(t, q.ReportProgress(ctx, entryID, 250))
	stored, err = q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, 100.0, stored.Progress, "reports clamp to 100")
}

func TestQueueRemoveUnclaimedEntry(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	require.NoError(t, q.Remove(ctx, entryID))

	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryFailed, stored.Status)
	require.Equal(t, models.CancelReason, stored.LastError)

	entry, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestQueueRemoveIsNoOpWhileClaimed(t *testing.T) {
	_, q := newQueueFixture(t)
	ctx := context.Background()
	entryID := enqueueJob(t, q, models.EnqueueOptions{})

	_, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Remove(ctx, entryID))
	stored, err := q.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Equal(t, models.EntryProcessing, stored.Status, "the claiming worker owns the entry's fate")
}

func TestQueueRemoveMissingEntry(t *testing.T) {
	_, q := newQueueFixture(t)
	require.NoError(t, q.Remove(context.Background(), uuid.New().String()))
}

func TestQueueGetEntryMissing(t *testing.T) {
	_, q := newQueueFixture(t)
	_, err := q.GetEntry(context.Background(), uuid.New().String())
	require.True(t, apperrors.IsNotFound(err))
}
