package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"reelforge/internal/render"
	"reelforge/internal/runstore"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the render run ledger",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var episodeFlag int
	var statusFlags []string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), runstore.ListOptions{
				EpisodeID: episodeFlag,
				Statuses:  statuses,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, runsTable(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&episodeFlag, "episode", "e", 0, "Only show runs for this episode")
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (running, succeeded, failed)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its artifacts and warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %d not found", id)
			}
			out := cmd.OutOrStdout()
			printRun(out, run, shouldColorize(out))
			return nil
		},
	}
}

func parseStatuses(values []string) ([]runstore.Status, error) {
	var statuses []runstore.Status
	for _, value := range values {
		status := runstore.Status(strings.ToLower(strings.TrimSpace(value)))
		switch status {
		case runstore.StatusRunning, runstore.StatusSucceeded, runstore.StatusFailed:
			statuses = append(statuses, status)
		default:
			return nil, fmt.Errorf("unknown status %q", value)
		}
	}
	return statuses, nil
}

func runsTable(runs []*runstore.Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Episode", "Operation", "Status", "Stage", "Started", "Elapsed", "Warnings", "Error"})
	for _, run := range runs {
		tw.AppendRow(table.Row{
			run.ID,
			run.EpisodeID,
			run.Operation,
			string(run.Status),
			render.StageLabel(run.Stage),
			formatTime(run.StartedAt),
			formatElapsed(run),
			len(run.Warnings),
			run.ErrorKind,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	return tw.Render()
}

func printRun(out io.Writer, run *runstore.Run, colorize bool) {
	title := fmt.Sprintf("Run %d (episode %d, %s)", run.ID, run.EpisodeID, run.Operation)
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
	kind := statusInfo
	switch run.Status {
	case runstore.StatusSucceeded:
		kind = statusOK
	case runstore.StatusFailed:
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Status", kind, string(run.Status), colorize))
	fmt.Fprintln(out, renderStatusLine("Correlation", statusInfo, run.RunID, colorize))
	if run.Stage != "" {
		fmt.Fprintln(out, renderStatusLine("Stage", statusInfo, render.StageLabel(run.Stage), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatTime(run.StartedAt), colorize))
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, formatElapsed(run), colorize))
	if run.ErrorMessage != "" {
		fmt.Fprintln(out, renderStatusLine("Error", statusError, fmt.Sprintf("%s: %s", run.ErrorKind, run.ErrorMessage), colorize))
	}
	for _, image := range run.Images {
		fmt.Fprintln(out, renderStatusLine("Image", statusOK, image, colorize))
	}
	if run.SubtitlePath != "" {
		fmt.Fprintln(out, renderStatusLine("Subtitles", statusOK, run.SubtitlePath, colorize))
	}
	for _, track := range run.Audio {
		fmt.Fprintln(out, renderStatusLine("Voice track", statusOK, track, colorize))
	}
	if run.VideoPath != "" {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, run.VideoPath, colorize))
	}
	for _, warning := range run.Warnings {
		fmt.Fprintln(out, renderStatusLine("Warning", statusWarn, warning, colorize))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatElapsed(run *runstore.Run) string {
	elapsed := run.Elapsed()
	if elapsed <= 0 {
		return "-"
	}
	return elapsed.Round(100 * time.Millisecond).String()
}
