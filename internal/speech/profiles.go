package speech

import (
	"strings"

	"reelforge/internal/config"
	"reelforge/internal/episode"
)

// Profiles holds the voice profiles available to a render.
type Profiles struct {
	Default    config.VoiceProfile
	Characters map[string]config.VoiceProfile
}

// ProfilesFromConfig copies the voice profiles out of cfg.
func ProfilesFromConfig(cfg config.Voice) Profiles {
	characters := make(map[string]config.VoiceProfile, len(cfg.Characters))
	for key, profile := range cfg.Characters {
		characters[key] = profile
	}
	return Profiles{Default: cfg.Default, Characters: characters}
}

// Resolve picks the profile for shot: the shot's speaker first, then the
// character's voice, then the default.
func (p Profiles) Resolve(character episode.Character, shot episode.Shot) config.VoiceProfile {
	for _, key := range []string{shot.Speaker, character.VoiceKey()} {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if profile, ok := p.Characters[key]; ok {
			return profile
		}
	}
	return p.Default
}
