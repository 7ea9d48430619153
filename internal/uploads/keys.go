package uploads

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// Blob key layout. Raw sources and processed artifacts are kept under
// separate prefixes so lifecycle rules and CDN exposure differ per stage.

func SourceKey(userID, uploadID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("uploads/%s/%s/source%s", userID, uploadID, ext)
}

func ProcessedPrefix(uploadID uuid.UUID) string {
	return fmt.Sprintf("processed/%s/", uploadID)
}

func MasterManifestKey(uploadID uuid.UUID) string {
	return fmt.Sprintf("processed/%s/master.m3u8", uploadID)
}

func RenditionManifestKey(uploadID uuid.UUID, label string) string {
	return fmt.Sprintf("processed/%s/%s/%s.m3u8", uploadID, label, label)
}

func RenditionSegmentKey(uploadID uuid.UUID, label, segment string) string {
	return fmt.Sprintf("processed/%s/%s/%s", uploadID, label, segment)
}

func ThumbnailKey(uploadID uuid.UUID) string {
	return fmt.Sprintf("processed/%s/thumb.jpg", uploadID)
}
