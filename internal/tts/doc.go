// Package tts wraps the text-to-speech backends the speech stage can drive:
// the macOS say command, espeak-ng, and an operator supplied command
// template. Every backend writes one raw clip per request; converting the
// clip into the segment format is left to the caller.
package tts
