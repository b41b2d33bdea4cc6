package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the project root and the asset directories derived from it.
// Relative directories are resolved against ProjectDir.
type Paths struct {
	ProjectDir  string `toml:"project_dir"`
	EpisodesDir string `toml:"episodes_dir"`
	ImagesDir   string `toml:"images_dir"`
	AudioDir    string `toml:"audio_dir"`
	OutputDir   string `toml:"output_dir"`
	WorkDir     string `toml:"work_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Comfy contains configuration for the ComfyUI image backend.
type Comfy struct {
	URL                   string `toml:"url"`
	WorkflowPath          string `toml:"workflow_path"`
	PollIntervalMS        int    `toml:"poll_interval_ms"`
	CollectTimeoutSeconds int    `toml:"collect_timeout_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// VoiceProfile describes how a speaker's lines are synthesized.
type VoiceProfile struct {
	Rate   int     `toml:"rate"`
	Volume float64 `toml:"volume"`
	Voice  string  `toml:"voice"`
}

// Voice contains text-to-speech configuration.
type Voice struct {
	// Engine selects the speech backend: auto, say, espeak, or command.
	Engine string `toml:"engine"`
	// Command is the template used by the command engine. Supported
	// placeholders: {text} {voice} {rate} {volume} {output}.
	Command    string                  `toml:"command"`
	Default    VoiceProfile            `toml:"default"`
	Characters map[string]VoiceProfile `toml:"characters"`
}

// Video contains output encoding and subtitle styling settings.
type Video struct {
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	FrameRate       int    `toml:"frame_rate"`
	PixelFormat     string `toml:"pixel_format"`
	VideoCodec      string `toml:"video_codec"`
	AudioCodec      string `toml:"audio_codec"`
	AudioBitrate    string `toml:"audio_bitrate"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
	FontName        string `toml:"font_name"`
	FontSize        int    `toml:"font_size"`
	PrimaryColour   string `toml:"primary_colour"`
	OutlineColour   string `toml:"outline_colour"`
	Outline         int    `toml:"outline"`
	Shadow          int    `toml:"shadow"`
	// PadSilentShots fills shots without a voice track with generated
	// silence so audio stays aligned with the shot order.
	PadSilentShots bool `toml:"pad_silent_shots"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
}

// Workflow contains concurrency limits for the render stages.
type Workflow struct {
	ImageConcurrency int `toml:"image_concurrency"`
	LineConcurrency  int `toml:"line_concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reelforge.
//
// Configuration sections by subsystem:
//   - Paths: project root and asset directories
//   - Comfy: image backend address, workflow template, polling bounds
//   - Voice: speech engine and voice profiles
//   - Video: output geometry, codecs, subtitle style
//   - Tools: ffmpeg/ffprobe binaries
//   - Workflow: stage concurrency
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Comfy    Comfy    `toml:"comfy"`
	Voice    Voice    `toml:"voice"`
	Video    Video    `toml:"video"`
	Tools    Tools    `toml:"tools"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the renderer writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.ImagesDir,
		c.Paths.AudioDir,
		c.Paths.OutputDir,
		c.Paths.WorkDir,
		c.Paths.StateDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFmpeg) == "" {
		return defaultFFmpegBinary
	}
	return c.Tools.FFmpeg
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Tools.FFprobe) == "" {
		return defaultFFprobeBinary
	}
	return c.Tools.FFprobe
}

// PollInterval returns the ComfyUI history polling interval.
func (c *Comfy) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// CollectTimeout returns the upper bound on waiting for a job. Zero means the
// wait is bounded only by the caller's context.
func (c *Comfy) CollectTimeout() time.Duration {
	return time.Duration(c.CollectTimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Comfy) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// RunDatabasePath returns the location of the render run ledger.
func (c *Config) RunDatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

// LockDir returns the directory holding per-episode render locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// resolveUnder expands pathValue, anchoring relative values at base.
func resolveUnder(base, pathValue string) (string, error) {
	pathValue = strings.TrimSpace(pathValue)
	if pathValue == "" {
		return "", nil
	}
	if strings.HasPrefix(pathValue, "~") || filepath.IsAbs(pathValue) || base == "" {
		return expandPath(pathValue)
	}
	return filepath.Clean(filepath.Join(base, pathValue)), nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
