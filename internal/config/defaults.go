package config

const (
	defaultProjectDir            = "."
	defaultEpisodesDir           = "assets/episodes"
	defaultImagesDir             = "assets/images"
	defaultAudioDir              = "assets/audio"
	defaultOutputDir             = "output"
	defaultWorkDir               = "work"
	defaultStateDir              = "~/.local/share/reelforge"
	defaultLogDir                = "~/.local/share/reelforge/logs"
	defaultComfyURL              = "http://127.0.0.1:8188"
	defaultWorkflowPath          = "workflows/image_gen.json"
	defaultPollIntervalMS        = 1000
	defaultCollectTimeoutSeconds = 600
	defaultRequestTimeoutSeconds = 30
	defaultVoiceEngine           = "auto"
	defaultVoiceRate             = 150
	defaultVoiceVolume           = 0.9
	defaultVoiceName             = "Ting-Ting"
	defaultVideoWidth            = 720
	defaultVideoHeight           = 1280
	defaultFrameRate             = 30
	defaultPixelFormat           = "yuv420p"
	defaultVideoCodec            = "libx264"
	defaultAudioCodec            = "aac"
	defaultAudioBitrate          = "128k"
	defaultAudioSampleRate       = 44100
	defaultFontName              = "PingFang SC"
	defaultFontSize              = 24
	defaultPrimaryColour         = "&Hffffff"
	defaultOutlineColour         = "&H000000"
	defaultOutline               = 2
	defaultShadow                = 1
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultImageConcurrency      = 1
	defaultLineConcurrency       = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir:  defaultProjectDir,
			EpisodesDir: defaultEpisodesDir,
			ImagesDir:   defaultImagesDir,
			AudioDir:    defaultAudioDir,
			OutputDir:   defaultOutputDir,
			WorkDir:     defaultWorkDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Comfy: Comfy{
			URL:                   defaultComfyURL,
			WorkflowPath:          defaultWorkflowPath,
			PollIntervalMS:        defaultPollIntervalMS,
			CollectTimeoutSeconds: defaultCollectTimeoutSeconds,
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Voice: Voice{
			Engine: defaultVoiceEngine,
			Default: VoiceProfile{
				Rate:   defaultVoiceRate,
				Volume: defaultVoiceVolume,
				Voice:  defaultVoiceName,
			},
			Characters: map[string]VoiceProfile{},
		},
		Video: Video{
			Width:           defaultVideoWidth,
			Height:          defaultVideoHeight,
			FrameRate:       defaultFrameRate,
			PixelFormat:     defaultPixelFormat,
			VideoCodec:      defaultVideoCodec,
			AudioCodec:      defaultAudioCodec,
			AudioBitrate:    defaultAudioBitrate,
			AudioSampleRate: defaultAudioSampleRate,
			FontName:        defaultFontName,
			FontSize:        defaultFontSize,
			PrimaryColour:   defaultPrimaryColour,
			OutlineColour:   defaultOutlineColour,
			Outline:         defaultOutline,
			Shadow:          defaultShadow,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpegBinary,
			FFprobe: defaultFFprobeBinary,
		},
		Workflow: Workflow{
			ImageConcurrency: defaultImageConcurrency,
			LineConcurrency:  defaultLineConcurrency,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
