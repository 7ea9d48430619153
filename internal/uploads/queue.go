package uploads

import (
	"context"

	"github.com/reelstream/media-service/internal/models"
)

// JobQueue is the durable work queue feeding the transcode workers.
// Delivery is at-least-once: a claimed entry whose visibility lock
// expires becomes claimable again, so workers must treat every attempt
// as a full re-run. One entry exists per upload; the entry ID is the
// upload ID.
type JobQueue interface {
	Enqueue(ctx context.Context, payload *models.JobPayload, opts models.EnqueueOptions) (string, error)

	// Dequeue claims the highest-priority due entry, or returns nil when
	// none is available.
	Dequeue(ctx context.Context) (*models.QueueEntry, error)

	// ReportProgress records percent (0-100) for the current attempt.
	// Regressions are ignored so observed progress stays monotonic.
	ReportProgress(ctx context.Context, entryID string, percent float64) error

	Complete(ctx context.Context, entryID string) error

	// Fail records a failed attempt. When retryable and attempts remain,
	// the entry is rescheduled with exponential backoff and its progress
	// reset; otherwise it turns terminal. Returns retries remaining.
	Fail(ctx context.Context, entryID string, errMsg string, retryable bool) (int, error)

	// Remove drops an unclaimed entry (best-effort cancellation).
	Remove(ctx context.Context, entryID string) error

	GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error)
}
