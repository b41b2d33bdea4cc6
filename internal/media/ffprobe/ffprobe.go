package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe is the subset of `ffprobe -of json` output the renderer reads.
type Probe struct {
	Streams []Stream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
		Name     string `json:"format_name"`
	} `json:"format"`
}

// Stream holds per-stream fields. Numeric fields ffprobe reports as
// strings are left as strings and parsed on demand.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Inspect runs ffprobe against path. An empty binary means "ffprobe" on PATH.
func Inspect(ctx context.Context, binary, path string) (Probe, error) {
	if strings.TrimSpace(path) == "" {
		return Probe{}, errors.New("ffprobe: empty path")
	}
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return Probe{}, fmt.Errorf("ffprobe %s: %w: %s", path, err, msg)
		}
		return Probe{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe Probe
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return Probe{}, fmt.Errorf("ffprobe %s: decode output: %w", path, err)
	}
	return probe, nil
}

// Duration returns the playable length of path in seconds.
func Duration(ctx context.Context, binary, path string) (float64, error) {
	probe, err := Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	seconds, ok := probe.Seconds()
	if !ok {
		return 0, fmt.Errorf("ffprobe %s: no usable duration (%q)", path, probe.Format.Duration)
	}
	return seconds, nil
}

// Audio returns the first audio stream.
func (p Probe) Audio() (Stream, bool) {
	for _, s := range p.Streams {
		if strings.EqualFold(s.CodecType, "audio") {
			return s, true
		}
	}
	return Stream{}, false
}

// Seconds prefers the container duration and falls back to the first audio
// stream. Zero, negative and unparsable values are rejected.
func (p Probe) Seconds() (float64, bool) {
	if v, ok := positive(p.Format.Duration); ok {
		return v, true
	}
	if s, ok := p.Audio(); ok {
		return positive(s.Duration)
	}
	return 0, false
}

func positive(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
