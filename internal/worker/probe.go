package worker

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/reelstream/media-service/pkg/apperrors"
)

// MediaInfo is the source metadata that drives encoding decisions.
type MediaInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
	Codec           string
}

type Prober interface {
	Probe(ctx context.Context, inputPath string) (*MediaInfo, error)
}

type ffprobeProber struct {
	binPath string
}

func NewFFprobeProber(binPath string) Prober {
	return &ffprobeProber{binPath: binPath}
}

func (p *ffprobeProber) Probe(ctx context.Context, inputPath string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, p.binPath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,codec_name",
		"-of", "csv=p=0",
		inputPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, apperrors.NewUnsupportedMediaError(err, "source could not be inspected: %s", strings.TrimSpace(string(output)))
	}

	info, err := parseStreamInfo(string(output))
	if err != nil {
		return nil, err
	}

	cmd = exec.CommandContext(ctx, p.binPath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		inputPath,
	)
	durationOutput, err := cmd.CombinedOutput()
	if err != nil {
		return nil, apperrors.NewUnsupportedMediaError(err, "source duration could not be read")
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(durationOutput)), 64)
	if err != nil || duration <= 0 {
		return nil, apperrors.NewUnsupportedMediaError(err, "source has zero or unreadable duration")
	}
	info.DurationSeconds = duration
	return info, nil
}

// parseStreamInfo parses the csv ffprobe stream line "width,height,codec".
// An empty result means the container has no video stream, which is fatal
// for the job.
func parseStreamInfo(output string) (*MediaInfo, error) {
	trimmed := strings.TrimSpace(output)
	trimmed = strings.TrimRight(trimmed, ",")
	if trimmed == "" {
		return nil, apperrors.NewUnsupportedMediaError(nil, "no video stream found")
	}
	// Multi-stream files report one line per stream; the first is v:0.
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	parts := strings.Split(trimmed, ",")
	if len(parts) < 2 {
		return nil, apperrors.NewUnsupportedMediaError(nil, "unexpected probe output: %s", trimmed)
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, apperrors.NewUnsupportedMediaError(err, "invalid source width")
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperrors.NewUnsupportedMediaError(err, "invalid source height")
	}
	if width <= 0 || height <= 0 {
		return nil, apperrors.NewUnsupportedMediaError(nil, "invalid source dimensions %dx%d", width, height)
	}
	info := &MediaInfo{Width: width, Height: height}
	if len(parts) >= 3 {
		info.Codec = strings.TrimSpace(parts[2])
	}
	return info, nil
}
