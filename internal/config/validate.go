package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateComfy(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateComfy() error {
	parsed, err := url.Parse(c.Comfy.URL)
	if err != nil {
		return fmt.Errorf("comfy.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("comfy.url must use http or https, got %q", c.Comfy.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("comfy.url must include a host, got %q", c.Comfy.URL)
	}
	if c.Comfy.PollIntervalMS < 0 {
		return errors.New("comfy.poll_interval_ms must be positive")
	}
	if c.Comfy.CollectTimeoutSeconds < 0 {
		return errors.New("comfy.collect_timeout_seconds must be zero (unbounded) or positive")
	}
	if c.Comfy.RequestTimeoutSeconds < 0 {
		return errors.New("comfy.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateVoice() error {
	switch c.Voice.Engine {
	case "auto", "say", "espeak":
	case "command":
		if c.Voice.Command == "" {
			return errors.New("voice.command must be set when voice.engine is \"command\"")
		}
		if !strings.Contains(c.Voice.Command, "{output}") {
			return errors.New("voice.command must contain the {output} placeholder")
		}
	default:
		return fmt.Errorf("voice.engine: unsupported value %q (want auto, say, espeak, or command)", c.Voice.Engine)
	}
	if err := validateProfile("voice.default", c.Voice.Default); err != nil {
		return err
	}
	for key, profile := range c.Voice.Characters {
		if err := validateProfile("voice.characters."+key, profile); err != nil {
			return err
		}
	}
	return nil
}

func validateProfile(key string, profile VoiceProfile) error {
	if profile.Rate <= 0 {
		return fmt.Errorf("%s.rate must be positive", key)
	}
	if profile.Volume < 0 || profile.Volume > 1 {
		return fmt.Errorf("%s.volume must be between 0 and 1", key)
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.New("video.width and video.height must be even for yuv420p output")
	}
	if c.Video.FrameRate <= 0 {
		return errors.New("video.frame_rate must be positive")
	}
	if c.Video.AudioSampleRate <= 0 {
		return errors.New("video.audio_sample_rate must be positive")
	}
	if c.Video.FontSize <= 0 {
		return errors.New("video.font_size must be positive")
	}
	if c.Video.Outline < 0 || c.Video.Shadow < 0 {
		return errors.New("video.outline and video.shadow must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ImageConcurrency < 1 {
		return errors.New("workflow.image_concurrency must be at least 1")
	}
	if c.Workflow.LineConcurrency < 1 {
		return errors.New("workflow.line_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
