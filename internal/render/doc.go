// Package render orchestrates an episode through the pipeline stages.
//
// A full render runs images, subtitles, audio, then video. Image and
// subtitle failures abort the run; an audio failure is logged and the video
// is assembled without voice. Each stage is also exposed on its own so an
// operator can redo one step against artifacts already on disk.
//
// Renders of the same episode are serialized through a lock file in the
// state directory, and every invocation is recorded in the run ledger when
// one is configured.
package render
