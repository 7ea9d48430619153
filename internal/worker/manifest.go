package worker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reelstream/media-service/internal/models"
)

const masterCodecs = `avc1.4d401f,mp4a.40.2`

// AssembleMaster builds the top-level adaptive-streaming playlist. Output
// is byte-deterministic for a given rendition list: entries are sorted by
// ascending bandwidth so re-assembly and golden-file comparison both hold.
func AssembleMaster(renditions []*models.Rendition) string {
	sorted := make([]*models.Rendition, len(renditions))
	copy(sorted, renditions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bandwidth(sorted[i]) < bandwidth(sorted[j])
	})

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,CODECS=\"%s\"\n", bandwidth(r), r.Width, r.Height, masterCodecs)
		fmt.Fprintf(&b, "%s/%s.m3u8\n", r.Label, r.Label)
	}
	return b.String()
}

// bandwidth derives the STREAM-INF attribute from the preset bitrates,
// in bits per second.
func bandwidth(r *models.Rendition) int {
	return (r.VideoBitrate + r.AudioBitrate) * 1000
}
