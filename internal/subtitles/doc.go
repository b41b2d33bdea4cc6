// Package subtitles composes timed cues for an episode and reads and writes
// them in SRT form.
//
// Compose walks every shot with one global clock: each shot's duration is
// partitioned across its lines and every non-blank line becomes a cue shown
// for the first 90% of its slice. Shots without lines emit nothing but still
// occupy their full duration, so later cues stay aligned with the video.
package subtitles
