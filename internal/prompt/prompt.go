// Package prompt composes image generation prompts from a character and a
// shot using closed emotion and framing vocabularies.
package prompt

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"reelforge/internal/episode"
	"reelforge/internal/services"
)

const (
	stylePrefix = "2D anime style"
	styleSuffix = "vibrant colors"
)

var emotions = map[string]string{
	"suppressed": "calm expression, head slightly down",
	"cold":       "cold eyes, head raised",
	"confident":  "confident posture",
}

var framings = map[string]string{
	"medium": "medium shot",
	"close":  "close-up",
	"side":   "side view",
}

// Emotions returns the accepted emotion tags in sorted order.
func Emotions() []string { return sortedKeys(emotions) }

// Framings returns the accepted framing tags in sorted order.
func Framings() []string { return sortedKeys(framings) }

// Build returns the prompt for shot. Unknown emotion or framing tags are
// validation errors.
func Build(character episode.Character, shot episode.Shot) (string, error) {
	emotion, framing, err := phrases(shot)
	if err != nil {
		return "", services.Wrap(services.ErrInputValidation, "prompt", "build", fmt.Sprintf("shot %d", shot.ID), err)
	}
	parts := []string{
		stylePrefix,
		strings.TrimSpace(character.Fingerprint),
		strings.TrimSpace(shot.Scene),
		emotion,
		framing,
		styleSuffix,
	}
	return strings.Join(parts, ", "), nil
}

// Validate checks every shot's vocabulary up front so no backend job is
// submitted for an episode that would fail part way.
func Validate(ep *episode.Episode) error {
	var problems []error
	for _, shot := range ep.Shots {
		if _, _, err := phrases(shot); err != nil {
			problems = append(problems, fmt.Errorf("shot %d: %w", shot.ID, err))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return services.Wrap(services.ErrInputValidation, "prompt", "validate", fmt.Sprintf("episode %d", ep.ID), errors.Join(problems...))
}

func phrases(shot episode.Shot) (string, string, error) {
	emotion, ok := emotions[shot.Emotion]
	var problems []error
	if !ok {
		problems = append(problems, fmt.Errorf("unknown emotion %q (want one of %s)", shot.Emotion, strings.Join(Emotions(), ", ")))
	}
	framing, ok := framings[shot.Framing]
	if !ok {
		problems = append(problems, fmt.Errorf("unknown framing %q (want one of %s)", shot.Framing, strings.Join(Framings(), ", ")))
	}
	return emotion, framing, errors.Join(problems...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
