package subtitles

import (
	"strings"

	"reelforge/internal/episode"
	"reelforge/internal/timing"
)

// Cue is one timed subtitle entry. Times are absolute seconds from the start
// of the episode.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Document is the ordered cue list for an episode.
type Document struct {
	Cues []Cue
	// Duration is the total running time covered by the shots.
	Duration float64
}

// Compose builds the cue document for shots in order.
func Compose(shots []episode.Shot) Document {
	var (
		clock timing.Timeline
		doc   Document
	)
	for _, shot := range shots {
		offset := clock.Advance(shot.Duration)
		windows := timing.Partition(shot.Duration, len(shot.Subtitles))
		for i, window := range windows {
			text := strings.TrimSpace(shot.Subtitles[i])
			if text == "" {
				continue
			}
			doc.Cues = append(doc.Cues, Cue{
				Index: len(doc.Cues) + 1,
				Start: offset + window.Start,
				End:   offset + window.End,
				Text:  text,
			})
		}
	}
	doc.Duration = clock.Offset()
	return doc
}
