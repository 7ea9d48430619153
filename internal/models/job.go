package models

import "time"

type EntryStatus string

const (
	EntryQueued     EntryStatus = "queued"
	EntryProcessing EntryStatus = "in_progress"
	EntryCompleted  EntryStatus = "completed"
	EntryFailed     EntryStatus = "failed"
)

// JobPayload is the wire format between the upload session manager and
// the transcode workers.
type JobPayload struct {
	JobID            string `json:"job_id" validate:"required"`
	UploadID         string `json:"upload_id" validate:"required"`
	SourceBucket     string `json:"source_bucket" validate:"required"`
	SourceKey        string `json:"source_key" validate:"required"`
	OriginalFilename string `json:"original_filename"`
}

// QueueEntry is the durable unit of work tracked by the job queue.
// Progress is monotone within an attempt; a retried attempt starts at 0.
type QueueEntry struct {
	EntryID     string      `json:"entry_id" redis:"entry_id"`
	Payload     JobPayload  `json:"payload" redis:"payload"`
	Priority    int         `json:"priority" redis:"priority"`
	Attempts    int         `json:"attempts" redis:"attempts"`
	MaxAttempts int         `json:"max_attempts" redis:"max_attempts"`
	Progress    float64     `json:"progress" redis:"progress"`
	Status      EntryStatus `json:"status" redis:"status"`
	LastError   string      `json:"last_error,omitempty" redis:"last_error"`
	EnqueuedAt  time.Time   `json:"enqueued_at" redis:"enqueued_at"`
	StartedAt   time.Time   `json:"started_at,omitempty" redis:"started_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty" redis:"completed_at"`
}

type EnqueueOptions struct {
	Priority    int
	MaxAttempts int
}
