package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"reelforge/internal/config"
)

// DefaultWorkflow is a minimal workflow template carrying every placeholder.
const DefaultWorkflow = `{
  "3": {"class_type": "KSampler", "inputs": {"seed": "__SEED__", "steps": 20}},
  "6": {"class_type": "CLIPTextEncode", "inputs": {"text": "__PROMPT__"}},
  "9": {"class_type": "SaveImage", "inputs": {"filename_prefix": "__OUTPUT__"}}
}`

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories exist and the workflow template is written.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = base
	cfgVal.Paths.EpisodesDir = filepath.Join(base, "assets", "episodes")
	cfgVal.Paths.ImagesDir = filepath.Join(base, "assets", "images")
	cfgVal.Paths.AudioDir = filepath.Join(base, "assets", "audio")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Comfy.WorkflowPath = filepath.Join(base, "workflows", "image_gen.json")
	cfgVal.Comfy.PollIntervalMS = 5
	cfgVal.Comfy.CollectTimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	WriteText(t, cfgVal.Comfy.WorkflowPath, DefaultWorkflow)

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	if err := os.MkdirAll(builder.cfg.Paths.EpisodesDir, 0o755); err != nil {
		t.Fatalf("mkdir episodes dir: %v", err)
	}
	return builder.cfg
}

// WithComfyURL points the config at a test server.
func WithComfyURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Comfy.URL = url
	}
}

// WithWorkflow replaces the workflow template contents.
func WithWorkflow(contents string) ConfigOption {
	return func(b *configBuilder) {
		WriteText(b.t, b.cfg.Comfy.WorkflowPath, contents)
	}
}

// WithVoiceCommand selects the command speech engine with template.
func WithVoiceCommand(template string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Voice.Engine = "command"
		b.cfg.Voice.Command = template
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.ProjectDir
}
