package worker

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

// Worker polls the queue and processes one job at a time. Concurrency
// comes from running more worker processes, not from goroutines per
// job; an encode already saturates the host.
type Worker struct {
	cfg        *config.Config
	queue      uploads.JobQueue
	uploadRepo uploads.Repository
	processor  *Processor
	logger     logger.Logger
}

func NewWorker(cfg *config.Config, queue uploads.JobQueue, uploadRepo uploads.Repository, processor *Processor, log logger.Logger) *Worker {
	return &Worker{
		cfg:        cfg,
		queue:      queue,
		uploadRepo: uploadRepo,
		processor:  processor,
		logger:     log,
	}
}

// Run blocks until ctx is cancelled. Between jobs it sleeps for the
// configured poll interval and skips claiming while the host CPU is
// above the configured ceiling.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Infof("worker started, polling queue %q every %s", w.cfg.Queue.Name, w.cfg.Worker.PollInterval)

	ticker := time.NewTicker(w.cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return ctx.Err()
		case <-ticker.C:
		}

		if ok, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage); !ok {
			w.logger.Debugf("cpu at %.0f%%, above %.0f%% ceiling, deferring claim", usage, w.cfg.Worker.MaxCPUUsage)
			continue
		}

		entry, err := w.queue.Dequeue(ctx)
		if err != nil {
			w.logger.Errorf("dequeue: %v", err)
			continue
		}
		if entry == nil {
			continue
		}
		w.handleEntry(ctx, entry)
	}
}

func (w *Worker) handleEntry(ctx context.Context, entry *models.QueueEntry) {
	w.logger.Infof("claimed job %s (upload %s, attempt %d/%d)",
		entry.Payload.JobID, entry.Payload.UploadID, entry.Attempts, entry.MaxAttempts)

	err := w.processor.Process(ctx, entry)
	if err == nil {
		if err := w.queue.Complete(ctx, entry.EntryID); err != nil {
			w.logger.Errorf("complete entry %s: %v", entry.EntryID, err)
		}
		return
	}

	retryable := apperrors.Retryable(err)
	w.logger.Errorf("job %s failed (retryable=%t): %v", entry.Payload.JobID, retryable, err)

	remaining, failErr := w.queue.Fail(ctx, entry.EntryID, err.Error(), retryable)

	// Partial artifacts from the aborted attempt are discarded either
	// way; a later attempt regenerates them from scratch.
	w.processor.CleanupOutputs(ctx, entry.Payload.UploadID)

	if failErr != nil {
		// The attempt could not be recorded, so the entry is still live
		// and will be redelivered once its lock lapses. The upload must
		// not turn terminal while a retry is pending.
		w.logger.Errorf("fail entry %s: %v", entry.EntryID, failErr)
		return
	}
	if !retryable || remaining <= 0 {
		w.markUploadFailed(ctx, entry, err)
	}
}

func (w *Worker) markUploadFailed(ctx context.Context, entry *models.QueueEntry, cause error) {
	uploadID, parseErr := uuid.Parse(entry.Payload.UploadID)
	if parseErr != nil {
		w.logger.Errorf("malformed upload id %q on failed job %s", entry.Payload.UploadID, entry.Payload.JobID)
		return
	}
	if err := w.uploadRepo.MarkFailed(ctx, uploadID, cause.Error()); err != nil {
		w.logger.Errorf("mark upload %s failed: %v", uploadID, err)
	}
}
