package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"reelforge/internal/fileutil"
	"reelforge/internal/services"
)

type commandRunner func(ctx context.Context, name string, args ...string) error

// Transcoder executes Commands with a configured ffmpeg binary.
type Transcoder struct {
	binary string
	run    commandRunner
}

// Option configures a Transcoder.
type Option func(*Transcoder)

// WithCommandRunner overrides command execution (primarily for tests).
func WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) Option {
	return func(t *Transcoder) {
		if r != nil {
			t.run = r
		}
	}
}

// New constructs a Transcoder for binary (default "ffmpeg").
func New(binary string, opts ...Option) *Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	t := &Transcoder{binary: binary, run: defaultCommandRunner}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Binary returns the ffmpeg executable in use.
func (t *Transcoder) Binary() string { return t.binary }

// Run executes cmd. The output appears at cmd.Output only when ffmpeg exits
// cleanly and produced a non-empty file.
func (t *Transcoder) Run(ctx context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Output) == "" {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "run", "command has no output path", nil)
	}
	if len(cmd.Inputs) == 0 {
		return services.Wrap(services.ErrConfiguration, "ffmpeg", "run", "command has no inputs", nil)
	}
	dir := filepath.Dir(cmd.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "prepare output", dir, err)
	}

	ext := filepath.Ext(cmd.Output)
	tmp := filepath.Join(dir, "."+strings.TrimSuffix(filepath.Base(cmd.Output), ext)+"."+uuid.NewString()+ext)
	defer os.Remove(tmp)

	if err := t.run(ctx, t.binary, cmd.Args(tmp)...); err != nil {
		if ctx.Err() != nil {
			return services.Wrap(services.ErrTimeout, "ffmpeg", "run", filepath.Base(cmd.Output), ctx.Err())
		}
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "run", filepath.Base(cmd.Output), err)
	}
	if err := fileutil.NonEmpty(tmp); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "verify output", filepath.Base(cmd.Output), err)
	}
	if err := os.Rename(tmp, cmd.Output); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "finalize output", cmd.Output, err)
	}
	return nil
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), tail(string(output), 800))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
