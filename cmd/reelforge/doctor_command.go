package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reelforge/internal/comfy"
	"reelforge/internal/deps"
	"reelforge/internal/preflight"
	"reelforge/internal/tts"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, directories and the ComfyUI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			engine, engineErr := tts.New(cfg.Voice)
			if engineErr != nil {
				engine = nil
			}
			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg, engine)

			var pinger preflight.Pinger
			if !offline {
				pinger = comfy.NewFromConfig(cfg, logger)
			}
			results := preflight.RunAll(cmd.Context(), cfg, pinger)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			if engineErr != nil {
				fmt.Fprintln(out, renderStatusLine("Voice config", statusError, engineErr.Error(), colorize))
			}
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out)
			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range checkLines(results, colorize) {
				fmt.Fprintln(out, line)
			}

			missing := deps.Missing(statuses)
			failed := preflight.Failed(results)
			if len(missing) > 0 || len(failed) > 0 || engineErr != nil {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the ComfyUI reachability check")
	return cmd
}
