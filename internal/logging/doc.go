// Package logging builds the slog loggers reelforge components share.
//
// Console output uses a compact key=value handler; the JSON handler backs
// both --log-format json and the log file under paths.log_dir. WithContext
// tags records with the episode, shot, stage and correlation id carried on a
// context, and WarnWithContext guarantees every warning names its event type,
// a hint and its impact on the rendered video.
package logging
