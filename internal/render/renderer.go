package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"reelforge/internal/comfy"
	"reelforge/internal/config"
	"reelforge/internal/episode"
	"reelforge/internal/ffmpeg"
	"reelforge/internal/imagegen"
	"reelforge/internal/logging"
	"reelforge/internal/prompt"
	"reelforge/internal/runstore"
	"reelforge/internal/services"
	"reelforge/internal/speech"
	"reelforge/internal/tts"
	"reelforge/internal/video"
)

// Operation names recorded in the run ledger.
const (
	OperationRender    = "render"
	OperationImages    = "images"
	OperationSubtitles = "subtitles"
	OperationAudio     = "audio"
	OperationVideo     = "video"
)

// ImageStage generates one image per shot.
type ImageStage interface {
	Generate(ctx context.Context, ep *episode.Episode) ([]imagegen.Result, error)
}

// SpeechStage synthesizes voice tracks.
type SpeechStage interface {
	Synthesize(ctx context.Context, ep *episode.Episode) (speech.Result, error)
}

// VideoStage assembles the final video.
type VideoStage interface {
	Assemble(ctx context.Context, req video.Request) (video.Plan, error)
}

// Ledger records render runs. *runstore.Store satisfies it.
type Ledger interface {
	Begin(ctx context.Context, runID string, episodeID int, operation string) (*runstore.Run, error)
	Update(ctx context.Context, run *runstore.Run) error
	Finish(ctx context.Context, run *runstore.Run, runErr error) error
}

// Stages bundles the stage implementations. Speech may be nil, in which case
// every render is silent.
type Stages struct {
	Images ImageStage
	Speech SpeechStage
	Video  VideoStage
}

// Result summarizes the artifacts a run produced.
type Result struct {
	RunID     string
	EpisodeID int
	Images    []string
	Subtitles string
	Audio     []string
	Video     string
	Warnings  []string

	tracks     map[int]string
	discovered bool
}

// Renderer drives episodes through the stages.
type Renderer struct {
	layout    episode.Layout
	lockDir   string
	padSilent bool
	stages    Stages
	ledger    Ledger
	logger    *slog.Logger
}

// Option customizes a Renderer.
type Option func(*Renderer)

// WithLedger records every run in ledger.
func WithLedger(ledger Ledger) Option {
	return func(r *Renderer) {
		r.ledger = ledger
	}
}

// WithLogger sets the renderer logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logging.NewComponentLogger(logger, "render")
	}
}

// New builds a renderer over explicit stages.
func New(cfg *config.Config, stages Stages, opts ...Option) *Renderer {
	r := &Renderer{
		layout:    episode.NewLayout(cfg),
		lockDir:   cfg.LockDir(),
		padSilent: cfg.Video.PadSilentShots,
		stages:    stages,
		logger:    logging.NewComponentLogger(nil, "render"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromConfig wires the production stages: the ComfyUI client for images,
// the configured speech engine with ffmpeg for audio, and the ffmpeg
// assembler for video. ledger may be nil.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, ledger Ledger) (*Renderer, error) {
	layout := episode.NewLayout(cfg)
	client := comfy.NewFromConfig(cfg, logger)
	images := &workflowImages{path: cfg.Comfy.WorkflowPath, build: func(template comfy.Graph) ImageStage {
		return imagegen.NewService(client, template, layout,
			imagegen.WithConcurrency(cfg.Workflow.ImageConcurrency),
			imagegen.WithLogger(logger),
		)
	}}

	transcoder := ffmpeg.New(cfg.FFmpegBinary())
	engine, err := tts.New(cfg.Voice)
	if err != nil {
		return nil, err
	}
	synth := speech.New(engine, transcoder, speech.FFprobe(cfg.FFprobeBinary()),
		speech.ProfilesFromConfig(cfg.Voice), layout, cfg.Paths.WorkDir,
		speech.WithLineConcurrency(cfg.Workflow.LineConcurrency),
		speech.WithLogger(logger),
	)
	assembler := video.NewAssembler(transcoder, cfg.Video, video.WithLogger(logger))

	opts := []Option{WithLogger(logger)}
	if ledger != nil {
		opts = append(opts, WithLedger(ledger))
	}
	return New(cfg, Stages{Images: images, Speech: synth, Video: assembler}, opts...), nil
}

// workflowImages reads the workflow template when the image stage runs, so
// operations that never submit jobs work without one.
type workflowImages struct {
	path  string
	build func(comfy.Graph) ImageStage
}

func (w *workflowImages) Generate(ctx context.Context, ep *episode.Episode) ([]imagegen.Result, error) {
	template, err := comfy.LoadGraph(w.path)
	if err != nil {
		return nil, err
	}
	return w.build(template).Generate(ctx, ep)
}

// Render runs every stage for episodeID.
func (r *Renderer) Render(ctx context.Context, episodeID int) (*Result, error) {
	return r.run(ctx, episodeID, OperationRender, func(ctx context.Context, rec *record) error {
		if err := r.stage(ctx, rec, StageImages, r.images); err != nil {
			return err
		}
		if err := r.stage(ctx, rec, StageSubtitles, r.subtitles); err != nil {
			return err
		}
		if err := r.stage(ctx, rec, StageAudio, r.audio); err != nil {
			if !services.Recoverable(err) {
				return err
			}
			logging.WarnWithContext(logging.WithContext(ctx, r.logger), "audio stage failed; continuing without voice", "audio_stage_skipped",
				logging.Error(err),
				logging.String("error_kind", services.Kind(err)),
				logging.String(logging.FieldErrorHint, "check the speech engine with reelforge doctor"),
				logging.String(logging.FieldImpact, "video is rendered silent"),
			)
			rec.warn(fmt.Sprintf("audio stage: %v", err))
			rec.result.Audio = nil
			rec.result.tracks = nil
		}
		return r.stage(ctx, rec, StageVideo, r.video)
	})
}

// RenderImages runs the image stage only.
func (r *Renderer) RenderImages(ctx context.Context, episodeID int) (*Result, error) {
	return r.run(ctx, episodeID, OperationImages, func(ctx context.Context, rec *record) error {
		return r.stage(ctx, rec, StageImages, r.images)
	})
}

// RenderSubtitles writes the subtitle file only.
func (r *Renderer) RenderSubtitles(ctx context.Context, episodeID int) (*Result, error) {
	return r.run(ctx, episodeID, OperationSubtitles, func(ctx context.Context, rec *record) error {
		return r.stage(ctx, rec, StageSubtitles, r.subtitles)
	})
}

// RenderAudio synthesizes voice tracks only. Unlike a full render, an audio
// failure fails the run.
func (r *Renderer) RenderAudio(ctx context.Context, episodeID int) (*Result, error) {
	return r.run(ctx, episodeID, OperationAudio, func(ctx context.Context, rec *record) error {
		return r.stage(ctx, rec, StageAudio, r.audio)
	})
}

// RenderVideo assembles the video from artifacts already on disk. An
// existing subtitle file is reused; otherwise one is composed. Voice tracks
// are discovered by file name.
func (r *Renderer) RenderVideo(ctx context.Context, episodeID int) (*Result, error) {
	return r.run(ctx, episodeID, OperationVideo, func(ctx context.Context, rec *record) error {
		if err := r.stage(ctx, rec, StageSubtitles, r.reuseSubtitles); err != nil {
			return err
		}
		if err := r.discoverTracks(ctx, rec); err != nil {
			return err
		}
		return r.stage(ctx, rec, StageVideo, r.video)
	})
}

type record struct {
	ep     *episode.Episode
	run    *runstore.Run
	result *Result
}

func (rec *record) warn(message string) {
	rec.result.Warnings = append(rec.result.Warnings, message)
}

// run loads and validates the episode, takes the episode lock, records the
// run, and executes body.
func (r *Renderer) run(ctx context.Context, episodeID int, operation string, body func(context.Context, *record) error) (*Result, error) {
	ep, path, err := episode.Load(r.layout.EpisodesDir, episodeID)
	if err != nil {
		return nil, err
	}
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	if needsPrompts(operation) {
		if err := prompt.Validate(ep); err != nil {
			return nil, err
		}
	}

	lock, err := acquireLock(r.lockDir, ep.ID)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	runID := uuid.NewString()
	ctx = services.WithEpisodeID(ctx, ep.ID)
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	rec := &record{ep: ep, result: &Result{RunID: runID, EpisodeID: ep.ID}}
	if r.ledger != nil {
		run, err := r.ledger.Begin(ctx, runID, ep.ID, operation)
		if err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
		rec.run = run
	}

	logger.Info("render started",
		logging.String(logging.FieldEventType, "render_start"),
		logging.String("operation", operation),
		logging.String("episode_file", path),
		logging.Int("shots", len(ep.Shots)),
	)

	runErr := body(ctx, rec)
	r.finish(ctx, rec, runErr)
	if runErr != nil {
		logger.Error("render failed",
			logging.String(logging.FieldEventType, "render_failure"),
			logging.String("operation", operation),
			logging.String("error_kind", services.Kind(runErr)),
			logging.Error(runErr),
		)
		return rec.result, runErr
	}
	logger.Info("render completed",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.String("operation", operation),
		logging.Int("images", len(rec.result.Images)),
		logging.Int("audio_tracks", len(rec.result.Audio)),
		logging.Int("warnings", len(rec.result.Warnings)),
		logging.String("video", rec.result.Video),
	)
	return rec.result, nil
}

func needsPrompts(operation string) bool {
	return operation == OperationRender || operation == OperationImages
}

func (r *Renderer) persist(ctx context.Context, rec *record) {
	if r.ledger == nil || rec.run == nil {
		return
	}
	syncRun(rec.run, rec.result)
	if err := r.ledger.Update(ctx, rec.run); err != nil {
		logging.WithContext(ctx, r.logger).Error("failed to persist run", logging.Error(err))
	}
}

func (r *Renderer) finish(ctx context.Context, rec *record, runErr error) {
	if r.ledger == nil || rec.run == nil {
		return
	}
	syncRun(rec.run, rec.result)
	// The caller's context may already be cancelled; the terminal status is
	// still written.
	if err := r.ledger.Finish(context.WithoutCancel(ctx), rec.run, runErr); err != nil {
		logging.WithContext(ctx, r.logger).Error("failed to persist run result", logging.Error(err))
	}
}

func syncRun(run *runstore.Run, result *Result) {
	run.Images = result.Images
	run.SubtitlePath = result.Subtitles
	run.Audio = result.Audio
	run.VideoPath = result.Video
	run.Warnings = result.Warnings
}

// ErrBusy reports that another process holds the episode lock.
var ErrBusy = errors.New("episode render already in progress")
