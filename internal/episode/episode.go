package episode

import (
	"errors"
	"fmt"
	"strings"

	"reelforge/internal/services"
)

const (
	// DefaultSeed is the base seed used when an episode does not specify one.
	DefaultSeed int64 = 123456
	// RandomSeed requests an independent random seed for every shot.
	RandomSeed int64 = -1
)

// Character is the single protagonist of an episode.
type Character struct {
	Name        string `json:"name" yaml:"name"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	VoiceID     string `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
	VoiceName   string `json:"voice_name,omitempty" yaml:"voice_name,omitempty"`
}

// VoiceKey returns the voice profile reference, preferring voice_id.
func (c Character) VoiceKey() string {
	if key := strings.TrimSpace(c.VoiceID); key != "" {
		return key
	}
	return strings.TrimSpace(c.VoiceName)
}

// Shot is one still image held for Duration seconds while its subtitle lines
// are shown and spoken in order.
type Shot struct {
	ID        int      `json:"id" yaml:"id"`
	Scene     string   `json:"scene" yaml:"scene"`
	Emotion   string   `json:"emotion" yaml:"emotion"`
	Framing   string   `json:"framing" yaml:"framing"`
	Duration  float64  `json:"duration" yaml:"duration"`
	Subtitles []string `json:"subtitles" yaml:"subtitles"`
	// Output is the image output hint passed to the backend workflow.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	// Image points at a pre-existing image, relative to the project directory.
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
	// Speaker overrides the character's voice profile for this shot.
	Speaker string `json:"speaker,omitempty" yaml:"speaker,omitempty"`
}

// Episode is the unit of rendering.
type Episode struct {
	ID        int       `json:"episode_id" yaml:"episode_id"`
	Character Character `json:"character" yaml:"character"`
	Seed      *int64    `json:"seed,omitempty" yaml:"seed,omitempty"`
	Shots     []Shot    `json:"shots" yaml:"shots"`
}

// BaseSeed returns the configured seed or DefaultSeed when absent.
func (e *Episode) BaseSeed() int64 {
	if e == nil || e.Seed == nil {
		return DefaultSeed
	}
	return *e.Seed
}

// Durations returns the shot durations in shot order.
func (e *Episode) Durations() []float64 {
	out := make([]float64, len(e.Shots))
	for i, shot := range e.Shots {
		out[i] = shot.Duration
	}
	return out
}

// TotalDuration returns the sum of all shot durations.
func (e *Episode) TotalDuration() float64 {
	var total float64
	for _, shot := range e.Shots {
		total += shot.Duration
	}
	return total
}

// LineCount returns the number of subtitle lines across all shots.
func (e *Episode) LineCount() int {
	count := 0
	for _, shot := range e.Shots {
		count += len(shot.Subtitles)
	}
	return count
}

// normalize assigns positional ids to shots that lack one and defaults the
// episode id.
func (e *Episode) normalize(fallbackID int) {
	if e.ID == 0 {
		e.ID = fallbackID
	}
	for i := range e.Shots {
		if e.Shots[i].ID == 0 {
			e.Shots[i].ID = i + 1
		}
		e.Shots[i].Emotion = strings.ToLower(strings.TrimSpace(e.Shots[i].Emotion))
		e.Shots[i].Framing = strings.ToLower(strings.TrimSpace(e.Shots[i].Framing))
	}
}

// Validate checks the structural invariants of an episode and reports every
// problem found.
func (e *Episode) Validate() error {
	if e == nil {
		return services.Wrap(services.ErrInputValidation, "episode", "validate", "episode is nil", nil)
	}
	var problems []error
	if e.ID <= 0 {
		problems = append(problems, fmt.Errorf("episode_id must be positive, got %d", e.ID))
	}
	if strings.TrimSpace(e.Character.Fingerprint) == "" {
		problems = append(problems, errors.New("character.fingerprint is required"))
	}
	if e.Seed != nil && *e.Seed < RandomSeed {
		problems = append(problems, fmt.Errorf("seed must be -1 or non-negative, got %d", *e.Seed))
	}
	if len(e.Shots) == 0 {
		problems = append(problems, errors.New("episode has no shots"))
	}
	seen := make(map[int]int, len(e.Shots))
	for i, shot := range e.Shots {
		if prev, ok := seen[shot.ID]; ok {
			problems = append(problems, fmt.Errorf("shot %d: id duplicates shot at position %d", shot.ID, prev+1))
		}
		seen[shot.ID] = i
		if shot.ID < 0 {
			problems = append(problems, fmt.Errorf("shot at position %d: id must be positive", i+1))
		}
		if shot.Duration <= 0 {
			problems = append(problems, fmt.Errorf("shot %d: duration must be positive, got %g", shot.ID, shot.Duration))
		}
		if strings.TrimSpace(shot.Scene) == "" {
			problems = append(problems, fmt.Errorf("shot %d: scene is required", shot.ID))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrInputValidation, "episode", "validate", fmt.Sprintf("episode %d", e.ID), errors.Join(problems...))
}
