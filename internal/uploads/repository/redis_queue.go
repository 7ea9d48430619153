package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
)

const (
	entryDataField = "job_data"
	progressField  = "progress"
	statusField    = "status"

	// dequeueCandidates bounds how many due entries are inspected when
	// selecting by priority.
	dequeueCandidates = 16
)

// jobQueue is a durable redis-backed queue. Entries sit in a ready zset
// scored by ready-time (retry backoff pushes the score forward); entry
// state lives in a hash per entry; a SetNX lock gives claimed entries
// their visibility window. A claim does not remove the entry from the
// zset: it is rescored to the lock's expiry, so a worker that crashes
// mid-job leaves an entry that becomes due again the moment its lock
// lapses. Only Complete and a terminal Fail remove entries; terminal
// entries then expire after the retention TTL instead of being pruned
// explicitly.
type jobQueue struct {
	redisClient *redis.Client
	cfg         *config.Config
}

func NewJobQueue(redisClient *redis.Client, cfg *config.Config) uploads.JobQueue {
	return &jobQueue{
		redisClient: redisClient,
		cfg:         cfg,
	}
}

func (q *jobQueue) readyKey() string {
	return fmt.Sprintf("q:%s:ready", q.cfg.Queue.Name)
}

func (q *jobQueue) entryKey(entryID string) string {
	return fmt.Sprintf("q:%s:entry:%s", q.cfg.Queue.Name, entryID)
}

func (q *jobQueue) lockKey(entryID string) string {
	return fmt.Sprintf("q:%s:lock:%s", q.cfg.Queue.Name, entryID)
}

func (q *jobQueue) Enqueue(ctx context.Context, payload *models.JobPayload, opts models.EnqueueOptions) (string, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = q.cfg.Queue.MaxAttempts
	}
	entry := &models.QueueEntry{
		EntryID:     payload.UploadID,
		Payload:     *payload,
		Priority:    opts.Priority,
		Attempts:    0,
		MaxAttempts: opts.MaxAttempts,
		Progress:    0,
		Status:      models.EntryQueued,
		EnqueuedAt:  time.Now().UTC(),
	}
	if err := q.saveEntry(ctx, entry); err != nil {
		return "", err
	}
	if err := q.redisClient.ZAdd(ctx, q.readyKey(), &redis.Z{
		Score:  float64(entry.EnqueuedAt.UnixMilli()),
		Member: entry.EntryID,
	}).Err(); err != nil {
		return "", errors.Wrap(err, "jobQueue.Enqueue.zadd")
	}
	return entry.EntryID, nil
}

func (q *jobQueue) Dequeue(ctx context.Context) (*models.QueueEntry, error) {
	now := time.Now().UTC()
	ids, err := q.redisClient.ZRangeByScore(ctx, q.readyKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.UnixMilli()),
		Count: dequeueCandidates,
	}).Result()
	if err != nil {
		return nil, errors.Wrap(err, "jobQueue.Dequeue.zrangebyscore")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// Among due entries, take the highest priority; ties fall back to
	// arrival order, which the zset already gives us. A due in_progress
	// entry is a crashed worker's claim whose lock has lapsed, so it is
	// claimable again.
	var best *models.QueueEntry
	for _, id := range ids {
		entry, err := q.GetEntry(ctx, id)
		if err != nil {
			continue
		}
		if entry.Status == models.EntryCompleted || entry.Status == models.EntryFailed {
			continue
		}
		if best == nil || entry.Priority > best.Priority {
			best = entry
		}
	}
	if best == nil {
		return nil, nil
	}

	locked, err := q.redisClient.SetNX(ctx, q.lockKey(best.EntryID), 1, q.cfg.Queue.VisibilityTTL).Result()
	if err != nil {
		return nil, errors.Wrap(err, "jobQueue.Dequeue.lock")
	}
	if !locked {
		return nil, nil
	}

	best.Attempts++
	best.Status = models.EntryProcessing
	best.StartedAt = now
	best.Progress = 0
	if err = q.saveEntry(ctx, best); err != nil {
		q.redisClient.Del(ctx, q.lockKey(best.EntryID))
		return nil, err
	}

	// The entry stays in the zset, rescored to the lock's expiry: if this
	// worker dies without calling Complete or Fail, the entry comes due
	// again exactly when the lock lapses.
	pipe := q.redisClient.Pipeline()
	pipe.HSet(ctx, q.entryKey(best.EntryID), progressField, 0)
	pipe.ZAdd(ctx, q.readyKey(), &redis.Z{
		Score:  float64(now.Add(q.cfg.Queue.VisibilityTTL).UnixMilli()),
		Member: best.EntryID,
	})
	if _, err = pipe.Exec(ctx); err != nil {
		q.redisClient.Del(ctx, q.lockKey(best.EntryID))
		return nil, errors.Wrap(err, "jobQueue.Dequeue.reschedule")
	}
	return best, nil
}

// ReportProgress keeps the stored percentage monotone within an attempt:
// a report below the current value is dropped. The single-writer
// discipline (only the lock holder reports) makes read-then-set safe.
func (q *jobQueue) ReportProgress(ctx context.Context, entryID string, percent float64) error {
	percent = math.Max(0, math.Min(100, percent))
	current, err := q.redisClient.HGet(ctx, q.entryKey(entryID), progressField).Float64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return errors.Wrap(err, "jobQueue.ReportProgress.get")
	}
	if percent <= current {
		return nil
	}
	if err = q.redisClient.HSet(ctx, q.entryKey(entryID), progressField, percent).Err(); err != nil {
		return errors.Wrap(err, "jobQueue.ReportProgress.set")
	}
	return nil
}

func (q *jobQueue) Complete(ctx context.Context, entryID string) error {
	entry, err := q.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	entry.Status = models.EntryCompleted
	entry.Progress = 100
	entry.CompletedAt = time.Now().UTC()
	if err = q.saveEntry(ctx, entry); err != nil {
		return err
	}

	pipe := q.redisClient.Pipeline()
	pipe.HSet(ctx, q.entryKey(entryID), progressField, 100)
	pipe.ZRem(ctx, q.readyKey(), entryID)
	pipe.Del(ctx, q.lockKey(entryID))
	pipe.Expire(ctx, q.entryKey(entryID), q.cfg.Queue.RetentionTTL)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "jobQueue.Complete")
}

func (q *jobQueue) Fail(ctx context.Context, entryID string, errMsg string, retryable bool) (int, error) {
	entry, err := q.GetEntry(ctx, entryID)
	if err != nil {
		return 0, err
	}
	entry.LastError = errMsg
	retriesRemaining := entry.MaxAttempts - entry.Attempts

	if !retryable || retriesRemaining <= 0 {
		entry.Status = models.EntryFailed
		entry.CompletedAt = time.Now().UTC()
		if err = q.saveEntry(ctx, entry); err != nil {
			return 0, err
		}
		pipe := q.redisClient.Pipeline()
		pipe.ZRem(ctx, q.readyKey(), entryID)
		pipe.Del(ctx, q.lockKey(entryID))
		pipe.Expire(ctx, q.entryKey(entryID), q.cfg.Queue.RetentionTTL)
		if _, err = pipe.Exec(ctx); err != nil {
			return 0, errors.Wrap(err, "jobQueue.Fail.terminal")
		}
		return 0, nil
	}

	// Requeue with exponential backoff; the next attempt starts from zero
	// progress.
	entry.Status = models.EntryQueued
	entry.Progress = 0
	if err = q.saveEntry(ctx, entry); err != nil {
		return 0, err
	}
	backoff := q.cfg.Queue.BackoffBase * time.Duration(1<<(entry.Attempts-1))
	readyAt := time.Now().UTC().Add(backoff)

	pipe := q.redisClient.Pipeline()
	pipe.HSet(ctx, q.entryKey(entryID), progressField, 0)
	pipe.ZAdd(ctx, q.readyKey(), &redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: entryID,
	})
	pipe.Del(ctx, q.lockKey(entryID))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, errors.Wrap(err, "jobQueue.Fail.requeue")
	}
	return retriesRemaining, nil
}

// Remove drops an unclaimed entry. If a worker already holds the lock the
// call is a no-op: the worker observes the cancelled upload state at its
// next stage boundary.
func (q *jobQueue) Remove(ctx context.Context, entryID string) error {
	locked, err := q.redisClient.Exists(ctx, q.lockKey(entryID)).Result()
	if err != nil {
		return errors.Wrap(err, "jobQueue.Remove.exists")
	}
	if locked > 0 {
		return nil
	}

	entry, err := q.GetEntry(ctx, entryID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if entry.Status != models.EntryQueued {
		return nil
	}
	entry.Status = models.EntryFailed
	entry.LastError = models.CancelReason
	entry.CompletedAt = time.Now().UTC()
	if err = q.saveEntry(ctx, entry); err != nil {
		return err
	}

	pipe := q.redisClient.Pipeline()
	pipe.ZRem(ctx, q.readyKey(), entryID)
	pipe.Expire(ctx, q.entryKey(entryID), q.cfg.Queue.RetentionTTL)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "jobQueue.Remove")
}

func (q *jobQueue) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	fields, err := q.redisClient.HGetAll(ctx, q.entryKey(entryID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "jobQueue.GetEntry")
	}
	data, ok := fields[entryDataField]
	if !ok {
		return nil, apperrors.NewNotFoundError("queue entry %s not found", entryID)
	}
	entry := &models.QueueEntry{}
	if err = json.Unmarshal([]byte(data), entry); err != nil {
		return nil, errors.Wrap(err, "jobQueue.GetEntry.unmarshal")
	}
	if raw, ok := fields[progressField]; ok {
		fmt.Sscanf(raw, "%f", &entry.Progress)
	}
	return entry, nil
}

func (q *jobQueue) saveEntry(ctx context.Context, entry *models.QueueEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "jobQueue.saveEntry.marshal")
	}
	pipe := q.redisClient.Pipeline()
	pipe.HSet(ctx, q.entryKey(entry.EntryID), entryDataField, string(data))
	pipe.HSet(ctx, q.entryKey(entry.EntryID), statusField, string(entry.Status))
	if _, err = pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "jobQueue.saveEntry")
	}
	return nil
}
