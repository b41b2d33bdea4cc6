package speech

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"reelforge/internal/config"
	"reelforge/internal/episode"
	"reelforge/internal/ffmpeg"
	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/media/ffprobe"
	"reelforge/internal/services"
	"reelforge/internal/timing"
	"reelforge/internal/tts"
)

// Tolerance is the largest duration mismatch, in seconds, left uncorrected.
const Tolerance = 0.1

// Warning kinds recorded on a Result.
const (
	WarningSynthesis          = "synthesis"
	WarningDurationCorrection = "duration_correction"
)

// Runner executes ffmpeg commands.
type Runner interface {
	Run(ctx context.Context, cmd ffmpeg.Command) error
}

// ProbeFunc returns the duration of an audio file in seconds.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

// FFprobe returns a ProbeFunc backed by the given ffprobe binary.
func FFprobe(binary string) ProbeFunc {
	return func(ctx context.Context, path string) (float64, error) {
		return ffprobe.Duration(ctx, binary, path)
	}
}

// Track is a finished voice track for one shot.
type Track struct {
	ShotID   int
	Path     string
	Duration float64
}

// Warning records a degraded line or track.
type Warning struct {
	ShotID int
	// Line is the 1-based subtitle line, or 0 for whole-track problems.
	Line    int
	Kind    string
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("shot %d line %d: %s: %s", w.ShotID, w.Line, w.Kind, w.Message)
	}
	return fmt.Sprintf("shot %d: %s: %s", w.ShotID, w.Kind, w.Message)
}

// Result lists the produced tracks in shot order.
type Result struct {
	Tracks   []Track
	Warnings []Warning
}

// Paths returns the track paths in shot order.
func (r Result) Paths() []string {
	paths := make([]string, len(r.Tracks))
	for i, track := range r.Tracks {
		paths[i] = track.Path
	}
	return paths
}

// Synthesizer renders voice tracks.
type Synthesizer struct {
	engine      tts.Engine
	runner      Runner
	probe       ProbeFunc
	profiles    Profiles
	layout      episode.Layout
	workDir     string
	concurrency int
	logger      *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLineConcurrency bounds how many lines of a shot synthesize at once.
func WithLineConcurrency(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = logging.NewComponentLogger(logger, "speech") }
}

// New constructs a synthesizer. Work files are created below workDir.
func New(engine tts.Engine, runner Runner, probe ProbeFunc, profiles Profiles, layout episode.Layout, workDir string, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		engine:      engine,
		runner:      runner,
		probe:       probe,
		profiles:    profiles,
		layout:      layout,
		workDir:     workDir,
		concurrency: 1,
		logger:      logging.NewComponentLogger(nil, "speech"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize renders a track for every shot that has at least one
// non-blank line. Recoverable problems are returned as warnings; the error
// is reserved for failures that leave a shot without any track.
func (s *Synthesizer) Synthesize(ctx context.Context, ep *episode.Episode) (Result, error) {
	var result Result
	for _, shot := range ep.Shots {
		if !hasLines(shot) {
			continue
		}
		shotCtx := services.WithShotID(ctx, shot.ID)
		track, warnings, err := s.synthesizeShot(shotCtx, ep, shot)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return result, services.Wrap(services.ErrAudioStage, "speech", "synthesize",
				fmt.Sprintf("shot %d", shot.ID), err)
		}
		result.Tracks = append(result.Tracks, track)
	}
	return result, nil
}

func hasLines(shot episode.Shot) bool {
	for _, line := range shot.Subtitles {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

type shotWork struct {
	dir      string
	profile  config.VoiceProfile
	mu       sync.Mutex
	warnings []Warning
}

func (w *shotWork) warn(warning Warning) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings = append(w.warnings, warning)
}

func (s *Synthesizer) synthesizeShot(ctx context.Context, ep *episode.Episode, shot episode.Shot) (Track, []Warning, error) {
	logger := logging.WithContext(ctx, s.logger)
	dir := filepath.Join(s.workDir, fmt.Sprintf("%s_shot_%d_%s", episode.FileName(ep.ID), shot.ID, uuid.NewString()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Track{}, nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	work := &shotWork{dir: dir, profile: s.profiles.Resolve(ep.Character, shot)}
	windows := timing.Partition(shot.Duration, len(shot.Subtitles))
	segments := make([]string, len(windows))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, window := range windows {
		group.Go(func() error {
			segment, err := s.renderLine(gctx, work, shot, i, shot.Subtitles[i], window)
			if err != nil {
				return err
			}
			segments[i] = segment
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Track{}, work.warnings, err
	}

	output := s.layout.AudioPath(ep.ID, shot.ID)
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Track{}, work.warnings, fmt.Errorf("create audio dir: %w", err)
	}
	joined := filepath.Join(dir, "track.mp3")
	if err := s.concat(ctx, dir, segments, joined); err != nil {
		return Track{}, work.warnings, err
	}

	final, duration, err := s.correct(ctx, joined, filepath.Join(dir, "track_tempo.mp3"), shot.Duration)
	if err != nil {
		work.warn(Warning{ShotID: shot.ID, Kind: WarningDurationCorrection, Message: err.Error()})
		logging.WarnWithContext(logger, "track duration correction failed", "duration_correction_failed",
			logging.String(logging.FieldErrorHint, "check ffmpeg atempo support"),
			logging.String(logging.FieldImpact, "track length may drift from the shot"),
			logging.Error(err),
		)
	}
	if err := fileutil.CopyFile(final, output); err != nil {
		return Track{}, work.warnings, fmt.Errorf("write track: %w", err)
	}

	logger.Info("voice track written",
		logging.String(logging.FieldEventType, "voice_track_written"),
		logging.String("path", output),
		logging.Int("lines", len(windows)),
		logging.Float64("duration_seconds", duration),
	)
	return Track{ShotID: shot.ID, Path: output, Duration: duration}, work.warnings, nil
}

// renderLine produces the padded segment for one line and returns its path.
func (s *Synthesizer) renderLine(ctx context.Context, work *shotWork, shot episode.Shot, index int, text string, window timing.Window) (string, error) {
	logger := logging.WithContext(ctx, s.logger).With(logging.Int("line", index+1))
	base := filepath.Join(work.dir, fmt.Sprintf("line_%03d", index+1))
	segment := base + ".mp3"

	if IsSilence(text) {
		return segment, s.silence(ctx, window.Slice(), segment)
	}

	encoded, err := s.speak(ctx, work, base, text)
	if err != nil {
		work.warn(Warning{ShotID: shot.ID, Line: index + 1, Kind: WarningSynthesis, Message: err.Error()})
		logging.WarnWithContext(logger, "speech synthesis failed; using silence", "synthesis_failed",
			logging.String(logging.FieldErrorHint, "check the voice engine and profile"),
			logging.String(logging.FieldImpact, "line is silent"),
			logging.Error(err),
		)
		return segment, s.silence(ctx, window.Slice(), segment)
	}

	corrected, _, err := s.correct(ctx, encoded, base+"_tempo.mp3", window.Dwell())
	if err != nil {
		work.warn(Warning{ShotID: shot.ID, Line: index + 1, Kind: WarningDurationCorrection, Message: err.Error()})
		logging.WarnWithContext(logger, "line duration correction failed; keeping natural length", "duration_correction_failed",
			logging.String(logging.FieldErrorHint, "shorten the line or lengthen the shot"),
			logging.String(logging.FieldImpact, "line may overrun its subtitle"),
			logging.Error(err),
		)
	}

	if err := s.runner.Run(ctx, ffmpeg.PadTo(corrected, segment, window.Slice())); err != nil {
		err = services.Wrap(services.ErrDurationCorrection, "speech", "pad", fmt.Sprintf("line %d", index+1), err)
		work.warn(Warning{ShotID: shot.ID, Line: index + 1, Kind: WarningDurationCorrection, Message: err.Error()})
		logging.WarnWithContext(logger, "line padding failed; keeping unpadded clip", "duration_correction_failed",
			logging.String(logging.FieldErrorHint, "check ffmpeg apad support"),
			logging.String(logging.FieldImpact, "later lines start early within the shot"),
			logging.Error(err),
		)
		return corrected, nil
	}
	return segment, nil
}

func (s *Synthesizer) speak(ctx context.Context, work *shotWork, base, text string) (string, error) {
	raw := base + "_raw" + s.engine.Extension()
	if err := s.engine.Synthesize(ctx, tts.Request{Text: text, Profile: work.profile}, raw); err != nil {
		return "", err
	}
	encoded := base + "_enc.mp3"
	if err := s.runner.Run(ctx, ffmpeg.Transcode(raw, encoded)); err != nil {
		return "", services.Wrap(services.ErrSynthesis, "speech", "transcode", filepath.Base(raw), err)
	}
	return encoded, nil
}

func (s *Synthesizer) silence(ctx context.Context, duration float64, output string) error {
	if err := s.runner.Run(ctx, ffmpeg.Silence(duration, output)); err != nil {
		return fmt.Errorf("generate silence: %w", err)
	}
	return nil
}

// correct stretches input to target seconds when it deviates by more than
// Tolerance and returns the file to use with its measured duration. On
// failure input is returned unchanged along with the error. A stretched
// output that cannot be measured is kept with a zero duration.
func (s *Synthesizer) correct(ctx context.Context, input, output string, target float64) (string, float64, error) {
	actual, err := s.probe(ctx, input)
	if err != nil {
		return input, 0, services.Wrap(services.ErrDurationCorrection, "speech", "probe", filepath.Base(input), err)
	}
	if target <= 0 || math.Abs(actual-target) < Tolerance {
		return input, actual, nil
	}
	stages, err := PlanTempo(actual / target)
	if err != nil {
		return input, actual, err
	}
	if err := s.runner.Run(ctx, ffmpeg.Tempo(input, output, stages)); err != nil {
		return input, actual, services.Wrap(services.ErrDurationCorrection, "speech", "tempo", filepath.Base(input), err)
	}
	measured, err := s.probe(ctx, output)
	if err != nil {
		return output, 0, nil
	}
	return output, measured, nil
}

func (s *Synthesizer) concat(ctx context.Context, dir string, segments []string, output string) error {
	if len(segments) == 1 {
		if err := fileutil.CopyFile(segments[0], output); err != nil {
			return fmt.Errorf("copy segment: %w", err)
		}
		return nil
	}
	list := filepath.Join(dir, "segments.txt")
	if err := fileutil.WriteFileAtomic(list, ffmpeg.ConcatList(segments), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := s.runner.Run(ctx, ffmpeg.Concat(list, output)); err != nil {
		return fmt.Errorf("concat segments: %w", err)
	}
	return nil
}
