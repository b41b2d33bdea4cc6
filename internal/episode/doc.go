// Package episode defines the episode document model and the on-disk layout
// of every artifact rendered from it.
//
// Episodes are loaded from episode_<3-digit-id>.json (or .yaml/.yml) under the
// configured episodes directory. Shots without an explicit id receive their
// 1-based position, and a missing seed falls back to DefaultSeed. Structural
// validation lives here; the prompt vocabulary check lives in package prompt.
package episode
