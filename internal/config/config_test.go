package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"reelforge/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	project := t.TempDir()
	t.Setenv("REELFORGE_PROJECT_DIR", project)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Paths.ProjectDir != project {
		t.Fatalf("unexpected project dir: %q", cfg.Paths.ProjectDir)
	}
	if want := filepath.Join(project, "assets", "episodes"); cfg.Paths.EpisodesDir != want {
		t.Fatalf("unexpected episodes dir: got %q want %q", cfg.Paths.EpisodesDir, want)
	}
	if want := filepath.Join(project, "output"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "reelforge"); cfg.Paths.StateDir != want {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, want)
	}
	if want := filepath.Join(project, "workflows", "image_gen.json"); cfg.Comfy.WorkflowPath != want {
		t.Fatalf("unexpected workflow path: %q", cfg.Comfy.WorkflowPath)
	}
	if cfg.Comfy.URL != "http://127.0.0.1:8188" {
		t.Fatalf("unexpected comfy url: %q", cfg.Comfy.URL)
	}
	if cfg.Comfy.PollInterval() != time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.Comfy.PollInterval())
	}
	if cfg.Voice.Default.Voice != "Ting-Ting" || cfg.Voice.Default.Rate != 150 || cfg.Voice.Default.Volume != 0.9 {
		t.Fatalf("unexpected default voice: %+v", cfg.Voice.Default)
	}
	if cfg.Video.Width != 720 || cfg.Video.Height != 1280 || cfg.Video.FrameRate != 30 {
		t.Fatalf("unexpected video geometry: %+v", cfg.Video)
	}
	if cfg.Video.PadSilentShots {
		t.Fatal("expected silent shot padding disabled by default")
	}
	if cfg.RunDatabasePath() != filepath.Join(cfg.Paths.StateDir, "runs.db") {
		t.Fatalf("unexpected run database path: %q", cfg.RunDatabasePath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	project := t.TempDir()
	configPath := filepath.Join(tempHome, "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"project_dir": project,
			"images_dir":  "~/renders/images",
			"audio_dir":   "voice",
		},
		"comfy": map[string]any{
			"url":                     "http://gpu-box:8188/",
			"collect_timeout_seconds": 0,
		},
		"voice": map[string]any{
			"characters": map[string]any{
				"narrator": map[string]any{"voice": "Mei-Jia"},
			},
		},
		"video": map[string]any{
			"pad_silent_shots": true,
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config at %q to exist, got %q exists=%v", configPath, resolved, exists)
	}
	if want := filepath.Join(tempHome, "renders", "images"); cfg.Paths.ImagesDir != want {
		t.Fatalf("unexpected images dir: got %q want %q", cfg.Paths.ImagesDir, want)
	}
	if want := filepath.Join(project, "voice"); cfg.Paths.AudioDir != want {
		t.Fatalf("unexpected audio dir: got %q want %q", cfg.Paths.AudioDir, want)
	}
	if cfg.Comfy.URL != "http://gpu-box:8188" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Comfy.URL)
	}
	if cfg.Comfy.CollectTimeout() != 0 {
		t.Fatalf("expected unbounded collect timeout, got %s", cfg.Comfy.CollectTimeout())
	}
	narrator, ok := cfg.Voice.Characters["narrator"]
	if !ok {
		t.Fatal("expected narrator profile")
	}
	if narrator.Voice != "Mei-Jia" || narrator.Rate != 150 || narrator.Volume != 0.9 {
		t.Fatalf("expected partial profile to inherit defaults, got %+v", narrator)
	}
	if !cfg.Video.PadSilentShots {
		t.Fatal("expected pad_silent_shots override")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COMFY_URL", "https://comfy.example.com")
	t.Setenv("REELFORGE_TTS_COMMAND", "tts --text {text} --out {output}")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Comfy.URL != "https://comfy.example.com" {
		t.Fatalf("expected COMFY_URL override, got %q", cfg.Comfy.URL)
	}
	if cfg.Voice.Engine != "command" {
		t.Fatalf("expected command engine selected by REELFORGE_TTS_COMMAND, got %q", cfg.Voice.Engine)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"comfy scheme", func(c *config.Config) { c.Comfy.URL = "ftp://host" }, "comfy.url"},
		{"odd width", func(c *config.Config) { c.Video.Width = 721 }, "even"},
		{"voice engine", func(c *config.Config) { c.Voice.Engine = "festival" }, "voice.engine"},
		{"command without output", func(c *config.Config) {
			c.Voice.Engine = "command"
			c.Voice.Command = "tts {text}"
		}, "{output}"},
		{"volume", func(c *config.Config) { c.Voice.Default.Volume = 1.5 }, "volume"},
		{"concurrency", func(c *config.Config) { c.Workflow.LineConcurrency = 0 }, "line_concurrency"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Voice.Engine != "auto" {
		t.Fatalf("unexpected sample engine: %q", cfg.Voice.Engine)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ImagesDir = filepath.Join(base, "images")
	cfg.Paths.AudioDir = filepath.Join(base, "audio")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"images", "audio", "output", "work", "state", "logs"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
