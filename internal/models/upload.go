package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type UploadState string

const (
	StateUploading  UploadState = "uploading"
	StateProcessing UploadState = "processing"
	StateCompleted  UploadState = "completed"
	StateFailed     UploadState = "failed"
)

// Terminal reports whether no further state transitions are allowed.
func (s UploadState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

func (s UploadState) Valid() bool {
	switch s {
	case StateUploading, StateProcessing, StateCompleted, StateFailed:
		return true
	}
	return false
}

// CancelReason is the failure message recorded for a client-initiated cancel.
const CancelReason = "cancelled by user"

// UploadJob is one user-submitted video moving through the pipeline.
// UploadID is the client-visible handle, distinct from the row's serial key.
type UploadJob struct {
	ID              int64          `json:"-" db:"id"`
	UploadID        uuid.UUID      `json:"upload_id" db:"upload_id"`
	UserID          uuid.UUID      `json:"user_id" db:"user_id"`
	FileName        string         `json:"file_name" db:"file_name" validate:"required,lte=255"`
	FileSize        int64          `json:"file_size" db:"file_size"`
	SourceBucket    string         `json:"-" db:"source_bucket"`
	SourceKey       string         `json:"-" db:"source_key"`
	State           UploadState    `json:"state" db:"state"`
	SeriesID        uuid.NullUUID  `json:"series_id,omitempty" db:"series_id"`
	EpisodeID       uuid.NullUUID  `json:"episode_id,omitempty" db:"episode_id"`
	ErrorMessage    sql.NullString `json:"error,omitempty" db:"error_message"`
	DurationSeconds float64        `json:"duration_seconds" db:"duration_seconds"`
	Width           int            `json:"width" db:"width"`
	Height          int            `json:"height" db:"height"`
	AspectRatio     string         `json:"aspect_ratio" db:"aspect_ratio"`
	MasterKey       sql.NullString `json:"master_key,omitempty" db:"master_key"`
	ThumbnailKey    sql.NullString `json:"thumbnail_key,omitempty" db:"thumbnail_key"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	ProcessingStart sql.NullTime   `json:"processing_started_at,omitempty" db:"processing_started_at"`
	ProcessingEnd   sql.NullTime   `json:"processing_ended_at,omitempty" db:"processing_ended_at"`

	Renditions []*Rendition `json:"renditions,omitempty" db:"-"`
}

// Rendition is one encoded quality variant owned by its UploadJob.
// Immutable once written.
type Rendition struct {
	ID           int64     `json:"-" db:"id"`
	UploadID     uuid.UUID `json:"-" db:"upload_id"`
	Label        string    `json:"label" db:"label"`
	Width        int       `json:"width" db:"width"`
	Height       int       `json:"height" db:"height"`
	VideoBitrate int       `json:"video_bitrate" db:"video_bitrate"`
	AudioBitrate int       `json:"audio_bitrate" db:"audio_bitrate"`
	ManifestKey  string    `json:"manifest_key" db:"manifest_key"`
	ByteSize     int64     `json:"byte_size" db:"byte_size"`
}

// UploadOutputs is the artifact set handed to the completion publisher.
type UploadOutputs struct {
	DurationSeconds float64
	Width           int
	Height          int
	AspectRatio     string
	MasterKey       string
	ThumbnailKey    string
	Renditions      []*Rendition
}

type UploadList struct {
	Uploads    []*UploadJob `json:"uploads"`
	TotalCount int          `json:"total_count"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	HasMore    bool         `json:"has_more"`
}

type InitUploadInput struct {
	FileName    string     `json:"file_name" validate:"required,lte=255"`
	ContentType string     `json:"content_type" validate:"required,lte=100"`
	FileSize    int64      `json:"file_size" validate:"required,gt=0"`
	SeriesID    *uuid.UUID `json:"series_id,omitempty"`
	EpisodeID   *uuid.UUID `json:"episode_id,omitempty"`
}

type InitUploadResult struct {
	UploadID  uuid.UUID `json:"upload_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UploadStatus is the polling view of a job. Progress is read from the
// queue entry while processing and pinned to 100/0 once terminal.
type UploadStatus struct {
	UploadID     uuid.UUID    `json:"upload_id"`
	State        UploadState  `json:"state"`
	Progress     float64      `json:"progress"`
	Error        string       `json:"error,omitempty"`
	MasterKey    string       `json:"master_key,omitempty"`
	ThumbnailKey string       `json:"thumbnail_key,omitempty"`
	Renditions   []*Rendition `json:"renditions,omitempty"`
}
