package models

import (
	"io"
	"time"
)

type PresignInput struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
	Expiry      time.Duration
}

type BlobUploadInput struct {
	File        io.Reader
	Key         string
	ContentType string
	Bucket      string
}
