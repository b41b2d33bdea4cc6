package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

const (
	EngineAuto    = "auto"
	EngineSay     = "say"
	EngineEspeak  = "espeak"
	EngineCommand = "command"

	// baseRate is the words-per-minute value profiles are calibrated against.
	baseRate = 150
)

// Request is a single line to speak.
type Request struct {
	Text    string
	Profile config.VoiceProfile
}

// Engine synthesizes speech into a raw audio file.
type Engine interface {
	// Name identifies the backend in logs.
	Name() string
	// Binary returns the executable the backend invokes.
	Binary() string
	// Extension is the file extension of clips the backend writes.
	Extension() string
	Synthesize(ctx context.Context, req Request, output string) error
}

type commandRunner func(ctx context.Context, name string, args ...string) error

// Option configures an engine.
type Option func(*options)

type options struct {
	run    commandRunner
	goos   string
	binary string
}

// WithCommandRunner overrides command execution (primarily for tests).
func WithCommandRunner(r func(ctx context.Context, name string, args ...string) error) Option {
	return func(o *options) {
		if r != nil {
			o.run = r
		}
	}
}

// WithBinary overrides the executable of the say or espeak backends.
func WithBinary(binary string) Option {
	return func(o *options) { o.binary = strings.TrimSpace(binary) }
}

func withGOOS(goos string) Option {
	return func(o *options) { o.goos = goos }
}

// New returns the engine selected by cfg. The auto engine picks say on
// macOS and espeak-ng elsewhere.
func New(cfg config.Voice, opts ...Option) (Engine, error) {
	o := options{run: defaultCommandRunner, goos: runtime.GOOS}
	for _, opt := range opts {
		opt(&o)
	}
	engine := strings.ToLower(strings.TrimSpace(cfg.Engine))
	if engine == "" || engine == EngineAuto {
		engine = EngineEspeak
		if o.goos == "darwin" {
			engine = EngineSay
		}
	}
	switch engine {
	case EngineSay:
		return &sayEngine{binary: orDefault(o.binary, "say"), run: o.run}, nil
	case EngineEspeak:
		return &espeakEngine{binary: orDefault(o.binary, "espeak-ng"), run: o.run}, nil
	case EngineCommand:
		return newCommandEngine(cfg.Command, o.run)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "tts", "select engine",
			fmt.Sprintf("unsupported engine %q", cfg.Engine), nil)
	}
}

type sayEngine struct {
	binary string
	run    commandRunner
}

func (e *sayEngine) Name() string      { return EngineSay }
func (e *sayEngine) Binary() string    { return e.binary }
func (e *sayEngine) Extension() string { return ".aiff" }

func (e *sayEngine) Synthesize(ctx context.Context, req Request, output string) error {
	textFile, cleanup, err := writeText(output, req.Text)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{}
	if voice := strings.TrimSpace(req.Profile.Voice); voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args, "-r", strconv.Itoa(scaleRate(req.Profile.Rate)), "-o", output, "-f", textFile)
	return runEngine(ctx, e.run, e.Name(), e.binary, args, output)
}

type espeakEngine struct {
	binary string
	run    commandRunner
}

func (e *espeakEngine) Name() string      { return EngineEspeak }
func (e *espeakEngine) Binary() string    { return e.binary }
func (e *espeakEngine) Extension() string { return ".wav" }

func (e *espeakEngine) Synthesize(ctx context.Context, req Request, output string) error {
	textFile, cleanup, err := writeText(output, req.Text)
	if err != nil {
		return err
	}
	defer cleanup()

	args := []string{}
	if voice := strings.TrimSpace(req.Profile.Voice); voice != "" {
		args = append(args, "-v", voice)
	}
	args = append(args,
		"-s", strconv.Itoa(req.Profile.Rate),
		"-a", strconv.Itoa(espeakAmplitude(req.Profile.Volume)),
		"-w", output,
		"-f", textFile,
	)
	return runEngine(ctx, e.run, e.Name(), e.binary, args, output)
}

type commandEngine struct {
	template []string
	run      commandRunner
}

func newCommandEngine(template string, run commandRunner) (*commandEngine, error) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "select engine", "command template is empty", nil)
	}
	if !strings.Contains(template, "{output}") {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "select engine", "command template lacks {output}", nil)
	}
	return &commandEngine{template: fields, run: run}, nil
}

func (e *commandEngine) Name() string      { return EngineCommand }
func (e *commandEngine) Binary() string    { return e.template[0] }
func (e *commandEngine) Extension() string { return ".wav" }

// Synthesize expands the template token by token so a line containing spaces
// stays a single argument.
func (e *commandEngine) Synthesize(ctx context.Context, req Request, output string) error {
	replacer := strings.NewReplacer(
		"{text}", req.Text,
		"{voice}", req.Profile.Voice,
		"{rate}", strconv.Itoa(req.Profile.Rate),
		"{volume}", strconv.FormatFloat(req.Profile.Volume, 'f', -1, 64),
		"{output}", output,
	)
	args := make([]string, len(e.template)-1)
	for i, token := range e.template[1:] {
		args[i] = replacer.Replace(token)
	}
	return runEngine(ctx, e.run, e.Name(), e.template[0], args, output)
}

func runEngine(ctx context.Context, run commandRunner, engine, binary string, args []string, output string) error {
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return services.Wrap(services.ErrSynthesis, "tts", engine, "prepare output", err)
	}
	if err := run(ctx, binary, args...); err != nil {
		return services.Wrap(services.ErrSynthesis, "tts", engine, filepath.Base(output), err)
	}
	info, err := os.Stat(output)
	if err != nil {
		return services.Wrap(services.ErrSynthesis, "tts", engine, "no audio written", err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrSynthesis, "tts", engine, "empty audio written", nil)
	}
	return nil
}

// writeText stores the line next to output so text beginning with a dash is
// never parsed as a flag.
func writeText(output, text string) (string, func(), error) {
	path := strings.TrimSuffix(output, filepath.Ext(output)) + ".txt"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, services.Wrap(services.ErrSynthesis, "tts", "write text", path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", nil, services.Wrap(services.ErrSynthesis, "tts", "write text", path, err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}

// scaleRate maps a profile rate onto say's words per minute. say speaks at
// roughly 200 wpm where the profiles assume 150.
func scaleRate(rate int) int {
	if rate <= 0 {
		rate = baseRate
	}
	return rate * 200 / baseRate
}

func espeakAmplitude(volume float64) int {
	if volume < 0 {
		volume = 0
	}
	if volume > 1 {
		volume = 1
	}
	return int(volume*200 + 0.5)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with %d: %s", name, exitErr.ExitCode(), strings.TrimSpace(string(output)))
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
