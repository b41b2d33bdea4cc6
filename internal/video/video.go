// Package video assembles the final vertical video: each shot's still image
// held for its duration, letterboxed to the output frame, concatenated, with
// the episode subtitles burned in and the voice tracks laid underneath.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/ffmpeg"
	"reelforge/internal/logging"
	"reelforge/internal/services"
)

// Runner executes ffmpeg commands.
type Runner interface {
	Run(ctx context.Context, cmd ffmpeg.Command) error
}

// Segment is one shot of the video.
type Segment struct {
	ShotID   int
	Image    string
	Duration float64
}

// Request describes one assembly.
type Request struct {
	Segments []Segment
	// Subtitles is the SRT file burned into the frames. Empty disables the
	// overlay.
	Subtitles string
	// Audio lists voice tracks. They are concatenated in order; with
	// pad_silent_shots enabled entry i belongs to segment i and an empty or
	// missing entry becomes silence.
	Audio  []string
	Output string
}

// Plan is the resolved assembly: the command plus what happened to audio.
type Plan struct {
	Command ffmpeg.Command
	// Audio lists the tracks actually mixed in, in order.
	Audio []string
	// Dropped counts tracks beyond the segment count.
	Dropped int
	// Missing lists track paths skipped because they do not exist.
	Missing []string
	// Padded counts segments given generated silence.
	Padded int
}

// Assembler builds and runs video assembly commands.
type Assembler struct {
	runner Runner
	cfg    config.Video
	logger *slog.Logger
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) { a.logger = logging.NewComponentLogger(logger, "video") }
}

// NewAssembler constructs an assembler for the given output settings.
func NewAssembler(runner Runner, cfg config.Video, opts ...Option) *Assembler {
	a := &Assembler{runner: runner, cfg: cfg, logger: logging.NewComponentLogger(nil, "video")}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildCommand resolves req into an ffmpeg invocation without running it.
func (a *Assembler) BuildCommand(req Request) (Plan, error) {
	if len(req.Segments) == 0 {
		return Plan{}, services.Wrap(services.ErrAssembly, "video", "build", "no segments", nil)
	}
	if strings.TrimSpace(req.Output) == "" {
		return Plan{}, services.Wrap(services.ErrAssembly, "video", "build", "no output path", nil)
	}
	for i, seg := range req.Segments {
		if seg.Duration <= 0 {
			return Plan{}, services.Wrap(services.ErrAssembly, "video", "build",
				fmt.Sprintf("segment %d has non-positive duration %g", i+1, seg.Duration), nil)
		}
		if strings.TrimSpace(seg.Image) == "" {
			return Plan{}, services.Wrap(services.ErrAssembly, "video", "build",
				fmt.Sprintf("segment %d has no image", i+1), nil)
		}
	}

	var plan Plan
	var graph ffmpeg.Graph
	cmd := ffmpeg.Command{Output: req.Output}
	w, h := a.cfg.Width, a.cfg.Height

	videoLabels := make([]string, len(req.Segments))
	for i, seg := range req.Segments {
		cmd.Inputs = append(cmd.Inputs, ffmpeg.Input{Path: seg.Image, Loop: true, Duration: seg.Duration})
		videoLabels[i] = fmt.Sprintf("v%d", i)
		graph.Chain([]string{fmt.Sprintf("%d:v", i)}, []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h),
			"setsar=1",
		}, videoLabels[i])
	}
	graph.Chain(videoLabels, []string{fmt.Sprintf("concat=n=%d:v=1:a=0", len(req.Segments))}, "outv")

	videoOut := "outv"
	if strings.TrimSpace(req.Subtitles) != "" {
		graph.Chain([]string{"outv"}, []string{a.subtitleFilter(req.Subtitles)}, "vsub")
		videoOut = "vsub"
	}

	audioLabels := a.audioInputs(&cmd, &plan, req)
	if len(audioLabels) > 0 {
		graph.Chain(audioLabels, []string{fmt.Sprintf("concat=n=%d:v=0:a=1", len(audioLabels))}, "outa")
	}

	cmd.FilterComplex = graph.String()
	cmd.Maps = []string{"[" + videoOut + "]"}
	if len(audioLabels) > 0 {
		cmd.Maps = append(cmd.Maps, "[outa]")
	}
	cmd.OutputOptions = []string{
		"-r", strconv.Itoa(a.cfg.FrameRate),
		"-pix_fmt", a.cfg.PixelFormat,
	}
	if a.cfg.VideoCodec != "" {
		cmd.OutputOptions = append(cmd.OutputOptions, "-c:v", a.cfg.VideoCodec)
	}
	if len(audioLabels) > 0 {
		cmd.OutputOptions = append(cmd.OutputOptions,
			"-c:a", a.cfg.AudioCodec,
			"-b:a", a.cfg.AudioBitrate,
			"-ar", strconv.Itoa(a.cfg.AudioSampleRate),
		)
	}
	plan.Command = cmd
	return plan, nil
}

// audioInputs appends audio inputs to cmd and returns their stream labels.
func (a *Assembler) audioInputs(cmd *ffmpeg.Command, plan *Plan, req Request) []string {
	tracks := req.Audio
	if len(tracks) > len(req.Segments) {
		plan.Dropped = len(tracks) - len(req.Segments)
		tracks = tracks[:len(req.Segments)]
	}
	if len(tracks) == 0 {
		return nil
	}

	var labels []string
	add := func(input ffmpeg.Input) {
		labels = append(labels, fmt.Sprintf("%d:a", len(cmd.Inputs)))
		cmd.Inputs = append(cmd.Inputs, input)
	}
	exists := func(path string) bool {
		if strings.TrimSpace(path) == "" {
			return false
		}
		_, err := os.Stat(path)
		return err == nil
	}

	if a.cfg.PadSilentShots {
		for i, seg := range req.Segments {
			if i < len(tracks) && exists(tracks[i]) {
				add(ffmpeg.Input{Path: tracks[i]})
				plan.Audio = append(plan.Audio, tracks[i])
				continue
			}
			if i < len(tracks) && strings.TrimSpace(tracks[i]) != "" {
				plan.Missing = append(plan.Missing, tracks[i])
			}
			add(ffmpeg.Input{
				Path:     fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", a.cfg.AudioSampleRate),
				Format:   "lavfi",
				Duration: seg.Duration,
			})
			plan.Padded++
		}
		if len(plan.Audio) == 0 {
			// Nothing but silence; leave the video without an audio stream.
			cmd.Inputs = cmd.Inputs[:len(req.Segments)]
			plan.Padded = 0
			return nil
		}
		return labels
	}

	for _, track := range tracks {
		if !exists(track) {
			plan.Missing = append(plan.Missing, track)
			continue
		}
		add(ffmpeg.Input{Path: track})
		plan.Audio = append(plan.Audio, track)
	}
	return labels
}

func (a *Assembler) subtitleFilter(path string) string {
	style := strings.Join([]string{
		"FontName=" + a.cfg.FontName,
		"FontSize=" + strconv.Itoa(a.cfg.FontSize),
		"PrimaryColour=" + a.cfg.PrimaryColour,
		"OutlineColour=" + a.cfg.OutlineColour,
		"Outline=" + strconv.Itoa(a.cfg.Outline),
		"Shadow=" + strconv.Itoa(a.cfg.Shadow),
	}, ",")
	return fmt.Sprintf("subtitles='%s':force_style='%s'", ffmpeg.EscapeFilterValue(path), style)
}

// Assemble builds and runs the command for req.
func (a *Assembler) Assemble(ctx context.Context, req Request) (Plan, error) {
	plan, err := a.BuildCommand(req)
	if err != nil {
		return Plan{}, err
	}
	logger := logging.WithContext(ctx, a.logger)
	if plan.Dropped > 0 {
		logging.WarnWithContext(logger, "extra audio tracks dropped", "audio_tracks_dropped",
			logging.Int("dropped", plan.Dropped),
			logging.String(logging.FieldErrorHint, "remove stale tracks from the audio directory"),
			logging.String(logging.FieldImpact, "tracks beyond the shot count are not heard"),
		)
	}
	for _, missing := range plan.Missing {
		logging.WarnWithContext(logger, "audio track missing", "audio_track_missing",
			logging.String("path", missing),
			logging.String(logging.FieldErrorHint, "rerun the audio stage"),
			logging.String(logging.FieldImpact, "track is skipped"),
		)
	}

	if err := a.runner.Run(ctx, plan.Command); err != nil {
		return plan, services.Wrap(services.ErrAssembly, "video", "assemble", req.Output, err)
	}
	logger.Info("video assembled",
		logging.String(logging.FieldEventType, "video_assembled"),
		logging.String("path", req.Output),
		logging.Int("segments", len(req.Segments)),
		logging.Int("audio_tracks", len(plan.Audio)),
	)
	return plan, nil
}
