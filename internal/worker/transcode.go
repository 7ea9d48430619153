package worker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/reelstream/media-service/pkg/apperrors"
)

// ProgressSink receives encode progress for a single rendition (0-100).
// Implementations must be cheap: the encoder calls it synchronously.
type ProgressSink interface {
	Report(percent float64)
}

type ProgressFunc func(percent float64)

func (f ProgressFunc) Report(percent float64) { f(percent) }

type EncodeResult struct {
	ManifestPath string
	SegmentPaths []string
	ByteSize     int64
}

type Encoder interface {
	// Encode produces one segmented VOD rendition under outDir/label.
	Encode(ctx context.Context, inputPath, outDir string, rendition PlannedRendition, durationSeconds float64, sink ProgressSink) (*EncodeResult, error)

	// Thumbnail extracts a single poster frame.
	Thumbnail(ctx context.Context, inputPath, outPath string, atSeconds float64) error
}

type ffmpegEncoder struct {
	binPath        string
	segmentSeconds int
}

func NewFFmpegEncoder(binPath string, segmentSeconds int) Encoder {
	return &ffmpegEncoder{
		binPath:        binPath,
		segmentSeconds: segmentSeconds,
	}
}

func (e *ffmpegEncoder) Encode(ctx context.Context, inputPath, outDir string, rendition PlannedRendition, durationSeconds float64, sink ProgressSink) (*EncodeResult, error) {
	renditionDir := filepath.Join(outDir, rendition.Label)
	if err := os.MkdirAll(renditionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create rendition dir: %w", err)
	}

	manifestPath := filepath.Join(renditionDir, rendition.Label+".m3u8")
	segmentPattern := filepath.Join(renditionDir, rendition.Label+"_%03d.ts")

	cmd := exec.CommandContext(ctx, e.binPath,
		"-y",
		"-nostats",
		"-loglevel", "error",
		"-progress", "pipe:1",
		"-i", inputPath,
		"-vf", fmt.Sprintf("scale=%d:%d", rendition.Width, rendition.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-b:v", fmt.Sprintf("%dk", rendition.VideoBitrate),
		"-maxrate", fmt.Sprintf("%dk", rendition.VideoBitrate*107/100),
		"-bufsize", fmt.Sprintf("%dk", rendition.VideoBitrate*3/2),
		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", rendition.AudioBitrate),
		"-ac", "2",
		"-f", "hls",
		"-hls_time", strconv.Itoa(e.segmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", segmentPattern,
		manifestPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open encoder pipe: %w", err)
	}
	if err = cmd.Start(); err != nil {
		return nil, apperrors.NewEncodingError(err, "encoder failed to start")
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if percent, ok := parseProgressLine(scanner.Text(), durationSeconds); ok && sink != nil {
			sink.Report(percent)
		}
	}

	if err = cmd.Wait(); err != nil {
		return nil, apperrors.NewEncodingError(err, "encoding %s failed: %s", rendition.Label, tailOf(stderr.String()))
	}
	if sink != nil {
		sink.Report(100)
	}

	segments, err := filepath.Glob(filepath.Join(renditionDir, rendition.Label+"_*.ts"))
	if err != nil {
		return nil, err
	}
	sort.Strings(segments)

	var byteSize int64
	for _, path := range append([]string{manifestPath}, segments...) {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat encoder output: %w", err)
		}
		byteSize += fi.Size()
	}

	return &EncodeResult{
		ManifestPath: manifestPath,
		SegmentPaths: segments,
		ByteSize:     byteSize,
	}, nil
}

func (e *ffmpegEncoder) Thumbnail(ctx context.Context, inputPath, outPath string, atSeconds float64) error {
	cmd := exec.CommandContext(ctx, e.binPath,
		"-y",
		"-loglevel", "error",
		"-ss", fmt.Sprintf("%.2f", atSeconds),
		"-i", inputPath,
		"-vframes", "1",
		"-vf", "scale=640:-2",
		outPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return apperrors.NewEncodingError(err, "thumbnail extraction failed: %s", tailOf(string(output)))
	}
	return nil
}

// parseProgressLine converts an ffmpeg -progress key=value line into a
// completion percentage. out_time_ms reports microseconds.
func parseProgressLine(line string, durationSeconds float64) (float64, bool) {
	if durationSeconds <= 0 {
		return 0, false
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "out_time_ms=") {
		return 0, false
	}
	raw := strings.TrimPrefix(line, "out_time_ms=")
	us, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	percent := float64(us) / 1e6 / durationSeconds * 100
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

// tailOf keeps error text readable: the interesting encoder message is at
// the end of its output.
func tailOf(s string) string {
	s = strings.TrimSpace(s)
	const maxLen = 512
	if len(s) > maxLen {
		s = s[len(s)-maxLen:]
	}
	return s
}
