// Package ffmpeg models ffmpeg invocations declaratively and runs them with
// atomic output semantics.
//
// A Command lists inputs (with loop, duration, and demuxer options), an
// optional filter graph, stream maps, and output options. Transcoder.Run
// renders the argument list, writes to a temporary sibling of the output, and
// renames it into place only after ffmpeg succeeds and the file is non-empty,
// so a failed run never leaves a partial artifact under the final name.
package ffmpeg
