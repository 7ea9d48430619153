package worker

import (
	"fmt"
	"math"
)

// Preset is one target of the fixed rendition ladder. The table is
// ordered by ascending bitrate and never mutated at runtime.
type Preset struct {
	Label        string
	Height       int
	VideoBitrate int // kbit/s
	AudioBitrate int // kbit/s
}

var renditionLadder = []Preset{
	{Label: "360p", Height: 360, VideoBitrate: 500, AudioBitrate: 64},
	{Label: "540p", Height: 540, VideoBitrate: 1000, AudioBitrate: 96},
	{Label: "720p", Height: 720, VideoBitrate: 2500, AudioBitrate: 128},
	{Label: "1080p", Height: 1080, VideoBitrate: 5000, AudioBitrate: 160},
}

// PlannedRendition is a ladder entry resolved against a concrete source:
// the output width preserves the source aspect ratio.
type PlannedRendition struct {
	Preset
	Width int
}

// PlanRenditions selects the ladder entries to produce for a source.
// Presets taller than the source are skipped so nothing is ever
// upscaled. A source shorter than the smallest preset still gets exactly
// one rendition at its native height.
func PlanRenditions(sourceWidth, sourceHeight int) []PlannedRendition {
	plan := make([]PlannedRendition, 0, len(renditionLadder))
	for _, preset := range renditionLadder {
		if preset.Height > sourceHeight {
			continue
		}
		plan = append(plan, PlannedRendition{
			Preset: preset,
			Width:  scaledWidth(sourceWidth, sourceHeight, preset.Height),
		})
	}
	if len(plan) == 0 {
		native := renditionLadder[0]
		native.Height = evenDown(sourceHeight)
		native.Label = fmt.Sprintf("%dp", native.Height)
		plan = append(plan, PlannedRendition{
			Preset: native,
			Width:  scaledWidth(sourceWidth, sourceHeight, native.Height),
		})
	}
	return plan
}

// scaledWidth preserves aspect ratio and rounds to an even integer, which
// most encoders require for chroma subsampling.
func scaledWidth(sourceWidth, sourceHeight, targetHeight int) int {
	w := float64(sourceWidth) * float64(targetHeight) / float64(sourceHeight)
	return evenDown(int(math.Round(w)))
}

func evenDown(v int) int {
	if v%2 != 0 {
		v--
	}
	if v < 2 {
		v = 2
	}
	return v
}

// AspectRatio reduces width:height to lowest terms, e.g. 1080x1920 -> "9:16".
func AspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	d := gcd(width, height)
	return fmt.Sprintf("%d:%d", width/d, height/d)
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
