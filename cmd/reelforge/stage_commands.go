package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reelforge/internal/comfy"
	"reelforge/internal/preflight"
	"reelforge/internal/render"
)

type stageRunner func(r *render.Renderer, ctx context.Context, episodeID int) (*render.Result, error)

type stageSpec struct {
	use       string
	short     string
	run       stageRunner
	preflight bool
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	specs := []stageSpec{
		{use: "render", short: "Render an episode end to end", run: (*render.Renderer).Render, preflight: true},
		{use: "images", short: "Generate shot images only", run: (*render.Renderer).RenderImages, preflight: true},
		{use: "subtitles", short: "Write the subtitle file only", run: (*render.Renderer).RenderSubtitles},
		{use: "audio", short: "Synthesize voice tracks only", run: (*render.Renderer).RenderAudio},
		{use: "video", short: "Assemble the video from existing images, tracks and subtitles", run: (*render.Renderer).RenderVideo},
	}
	cmds := make([]*cobra.Command, 0, len(specs))
	for _, spec := range specs {
		cmds = append(cmds, newStageCommand(ctx, spec))
	}
	return cmds
}

func newStageCommand(ctx *commandContext, spec stageSpec) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   spec.use + " <episode-id>",
		Short: spec.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			episodeID, err := parseEpisodeID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if spec.preflight && !skipPreflight {
				results := preflight.RunAll(cmd.Context(), cfg, comfy.NewFromConfig(cfg, logger))
				if failed := preflight.Failed(results); len(failed) > 0 {
					colorize := shouldColorize(out)
					for _, result := range failed {
						fmt.Fprintln(out, renderStatusLine(result.Name, statusError, result.Detail, colorize))
					}
					return errors.New("preflight checks failed; run `reelforge doctor` for details")
				}
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			renderer, err := render.NewFromConfig(cfg, logger, store)
			if err != nil {
				return err
			}
			result, err := spec.run(renderer, cmd.Context(), episodeID)
			if result != nil {
				printResult(out, result, shouldColorize(out))
			}
			return err
		},
	}
	if spec.preflight {
		cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory, workflow and ComfyUI checks")
	}
	return cmd
}

func printResult(out io.Writer, result *render.Result, colorize bool) {
	for _, line := range renderSectionHeader(fmt.Sprintf("Episode %d", result.EpisodeID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Run", statusInfo, result.RunID, colorize))
	if len(result.Images) > 0 {
		fmt.Fprintln(out, renderStatusLine("Images", statusOK, fmt.Sprintf("%d generated", len(result.Images)), colorize))
	}
	if result.Subtitles != "" {
		fmt.Fprintln(out, renderStatusLine("Subtitles", statusOK, result.Subtitles, colorize))
	}
	if len(result.Audio) > 0 {
		fmt.Fprintln(out, renderStatusLine("Voice tracks", statusOK, fmt.Sprintf("%d", len(result.Audio)), colorize))
	}
	if result.Video != "" {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, result.Video, colorize))
	}
	for _, warning := range result.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
}
