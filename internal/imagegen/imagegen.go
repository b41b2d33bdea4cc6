// Package imagegen turns the shots of an episode into ComfyUI jobs and
// collects one image per shot into the images directory.
package imagegen

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"reelforge/internal/comfy"
	"reelforge/internal/episode"
	"reelforge/internal/logging"
	"reelforge/internal/prompt"
	"reelforge/internal/services"
)

// Backend submits workflow graphs and collects their artifacts.
type Backend interface {
	Submit(ctx context.Context, graph comfy.Graph) (string, error)
	Collect(ctx context.Context, job comfy.Job) ([]string, error)
}

// Result describes the image generated for one shot.
type Result struct {
	ShotID int
	JobID  string
	Seed   int64
	Prompt string
	Path   string
}

// Service generates shot images.
type Service struct {
	backend     Backend
	template    comfy.Graph
	layout      episode.Layout
	concurrency int
	rnd         comfy.Rand
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds the number of jobs in flight.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRand sets the random source used for episodes seeded with -1.
func WithRand(rnd comfy.Rand) Option {
	return func(s *Service) { s.rnd = rnd }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.NewComponentLogger(logger, "imagegen") }
}

// NewService constructs an image stage around backend and a loaded workflow
// template.
func NewService(backend Backend, template comfy.Graph, layout episode.Layout, opts ...Option) *Service {
	s := &Service{
		backend:     backend,
		template:    template,
		layout:      layout,
		concurrency: 1,
		logger:      logging.NewComponentLogger(nil, "imagegen"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type plan struct {
	shot   episode.Shot
	prompt string
	seed   int64
	output string
}

// Generate runs one job per shot and returns results in shot order. The
// first failing job cancels the rest.
func (s *Service) Generate(ctx context.Context, ep *episode.Episode) ([]Result, error) {
	if err := prompt.Validate(ep); err != nil {
		return nil, err
	}
	if counts := s.template.Placeholders(); counts[comfy.PlaceholderPrompt] == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "imagegen", "check workflow",
			fmt.Sprintf("workflow has no %s placeholder", comfy.PlaceholderPrompt.Sentinel()), nil)
	}

	// Seeds are drawn up front so a shared random source is never used
	// concurrently.
	plans := make([]plan, len(ep.Shots))
	base := ep.BaseSeed()
	for i, shot := range ep.Shots {
		text, err := prompt.Build(ep.Character, shot)
		if err != nil {
			return nil, err
		}
		plans[i] = plan{
			shot:   shot,
			prompt: text,
			seed:   comfy.ShotSeed(base, shot.ID, s.rnd),
			output: s.layout.OutputHint(ep.ID, shot),
		}
	}

	results := make([]Result, len(plans))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)
	for i, p := range plans {
		group.Go(func() error {
			shotCtx := services.WithShotID(gctx, p.shot.ID)
			result, err := s.generateShot(shotCtx, ep.ID, p)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) generateShot(ctx context.Context, episodeID int, p plan) (Result, error) {
	logger := logging.WithContext(ctx, s.logger)
	graph := s.template.Substitute(comfy.Values{Prompt: p.prompt, Seed: p.seed, Output: p.output})

	jobID, err := s.backend.Submit(ctx, graph)
	if err != nil {
		return Result{}, fmt.Errorf("shot %d: %w", p.shot.ID, err)
	}
	logger.Info("image job submitted",
		logging.String(logging.FieldEventType, "image_job_submitted"),
		logging.String("job_id", jobID),
		logging.Int64("seed", p.seed),
	)

	paths, err := s.backend.Collect(ctx, comfy.Job{
		ID:               jobID,
		TargetDir:        s.layout.ImagesDir,
		ExpectedFilename: filepath.Base(p.output),
	})
	if err != nil {
		return Result{}, fmt.Errorf("shot %d: %w", p.shot.ID, err)
	}
	want := s.layout.ImagePath(episodeID, p.shot)
	if len(paths) != 1 || filepath.Clean(paths[0]) != filepath.Clean(want) {
		return Result{}, services.Wrap(services.ErrCollection, "imagegen", "collect",
			fmt.Sprintf("shot %d: expected %s, collected %v", p.shot.ID, want, paths), nil)
	}

	logger.Info("image collected",
		logging.String(logging.FieldEventType, "image_collected"),
		logging.String("path", want),
	)
	return Result{ShotID: p.shot.ID, JobID: jobID, Seed: p.seed, Prompt: p.prompt, Path: want}, nil
}
