package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeComfy()
	if err := c.normalizeVoice(); err != nil {
		return err
	}
	c.normalizeVideo()
	c.normalizeTools()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if value, ok := os.LookupEnv("REELFORGE_PROJECT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectDir = strings.TrimSpace(value)
	}
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}

	project := c.Paths.ProjectDir
	dirs := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.episodes_dir", &c.Paths.EpisodesDir, defaultEpisodesDir},
		{"paths.images_dir", &c.Paths.ImagesDir, defaultImagesDir},
		{"paths.audio_dir", &c.Paths.AudioDir, defaultAudioDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, dir := range dirs {
		if strings.TrimSpace(*dir.value) == "" {
			*dir.value = dir.fallback
		}
		if *dir.value, err = resolveUnder(project, *dir.value); err != nil {
			return fmt.Errorf("%s: %w", dir.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeComfy() {
	if value, ok := os.LookupEnv("COMFY_URL"); ok && strings.TrimSpace(value) != "" {
		c.Comfy.URL = value
	}
	c.Comfy.URL = strings.TrimRight(strings.TrimSpace(c.Comfy.URL), "/")
	if c.Comfy.URL == "" {
		c.Comfy.URL = defaultComfyURL
	}
	if strings.TrimSpace(c.Comfy.WorkflowPath) == "" {
		c.Comfy.WorkflowPath = defaultWorkflowPath
	}
	if resolved, err := resolveUnder(c.Paths.ProjectDir, c.Comfy.WorkflowPath); err == nil {
		c.Comfy.WorkflowPath = resolved
	}
	if c.Comfy.PollIntervalMS == 0 {
		c.Comfy.PollIntervalMS = defaultPollIntervalMS
	}
	if c.Comfy.RequestTimeoutSeconds == 0 {
		c.Comfy.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
}

func (c *Config) normalizeVoice() error {
	c.Voice.Engine = strings.ToLower(strings.TrimSpace(c.Voice.Engine))
	if c.Voice.Engine == "" {
		c.Voice.Engine = defaultVoiceEngine
	}
	if value, ok := os.LookupEnv("REELFORGE_TTS_COMMAND"); ok && strings.TrimSpace(value) != "" {
		c.Voice.Command = strings.TrimSpace(value)
		if c.Voice.Engine == defaultVoiceEngine {
			c.Voice.Engine = "command"
		}
	}
	c.Voice.Command = strings.TrimSpace(c.Voice.Command)
	c.Voice.Default = fillProfile(c.Voice.Default, VoiceProfile{
		Rate:   defaultVoiceRate,
		Volume: defaultVoiceVolume,
		Voice:  defaultVoiceName,
	})
	if c.Voice.Characters == nil {
		c.Voice.Characters = map[string]VoiceProfile{}
	}
	normalized := make(map[string]VoiceProfile, len(c.Voice.Characters))
	for key, profile := range c.Voice.Characters {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("voice.characters: profile key must not be blank")
		}
		normalized[trimmed] = fillProfile(profile, c.Voice.Default)
	}
	c.Voice.Characters = normalized
	return nil
}

// fillProfile copies unset fields from fallback so partial character
// profiles inherit the default voice settings.
func fillProfile(profile, fallback VoiceProfile) VoiceProfile {
	profile.Voice = strings.TrimSpace(profile.Voice)
	if profile.Rate == 0 {
		profile.Rate = fallback.Rate
	}
	if profile.Volume == 0 {
		profile.Volume = fallback.Volume
	}
	if profile.Voice == "" {
		profile.Voice = fallback.Voice
	}
	return profile
}

func (c *Config) normalizeVideo() {
	c.Video.PixelFormat = strings.TrimSpace(c.Video.PixelFormat)
	if c.Video.PixelFormat == "" {
		c.Video.PixelFormat = defaultPixelFormat
	}
	c.Video.VideoCodec = strings.TrimSpace(c.Video.VideoCodec)
	if c.Video.VideoCodec == "" {
		c.Video.VideoCodec = defaultVideoCodec
	}
	c.Video.AudioCodec = strings.TrimSpace(c.Video.AudioCodec)
	if c.Video.AudioCodec == "" {
		c.Video.AudioCodec = defaultAudioCodec
	}
	c.Video.AudioBitrate = strings.TrimSpace(c.Video.AudioBitrate)
	if c.Video.AudioBitrate == "" {
		c.Video.AudioBitrate = defaultAudioBitrate
	}
	c.Video.FontName = strings.TrimSpace(c.Video.FontName)
	if c.Video.FontName == "" {
		c.Video.FontName = defaultFontName
	}
	if strings.TrimSpace(c.Video.PrimaryColour) == "" {
		c.Video.PrimaryColour = defaultPrimaryColour
	}
	if strings.TrimSpace(c.Video.OutlineColour) == "" {
		c.Video.OutlineColour = defaultOutlineColour
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.ImageConcurrency == 0 {
		c.Workflow.ImageConcurrency = defaultImageConcurrency
	}
	if c.Workflow.LineConcurrency == 0 {
		c.Workflow.LineConcurrency = defaultLineConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
