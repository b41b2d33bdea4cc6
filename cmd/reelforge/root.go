package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "reelforge",
		Short:         "Render story episodes into vertical short videos",
		Long: "reelforge turns an episode document into a captioned, narrated 9:16 video.\n" +
			"Run `render` for the whole pipeline, or one of the stage commands to redo a single step.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(newStageCommands(ctx)...)
	rootCmd.AddCommand(newRunsCommand(ctx), newDoctorCommand(ctx), newConfigCommand(ctx))

	return rootCmd
}
