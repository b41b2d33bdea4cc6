// Package speech renders the spoken audio of an episode: one voice track per
// shot, built from per-line segments that are each stretched to their cue's
// dwell window and padded to the cue slice, so line audio always plays while
// its subtitle is on screen.
//
// Failures that only cost quality are absorbed. A line whose synthesis fails
// becomes silence and a line whose tempo correction fails keeps its natural
// length; both are reported as Warnings on the Result rather than errors.
package speech
