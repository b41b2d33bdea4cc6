package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInputValidation    = errors.New("input validation error")
	ErrSubmission         = errors.New("job submission error")
	ErrCollection         = errors.New("job collection error")
	ErrTimeout            = errors.New("timeout")
	ErrSynthesis          = errors.New("speech synthesis error")
	ErrDurationCorrection = errors.New("duration correction error")
	ErrAudioStage         = errors.New("audio stage error")
	ErrAssembly           = errors.New("video assembly error")
	ErrConfiguration      = errors.New("configuration error")
	ErrExternalTool       = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Recoverable reports whether a failure is absorbed by the pipeline as a
// warning rather than aborting the render.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrSynthesis), errors.Is(err, ErrDurationCorrection), errors.Is(err, ErrAudioStage):
		return true
	default:
		return false
	}
}

// Kind returns a stable label for the marker carried by err. The label is
// persisted with run records.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInputValidation):
		return "input_validation"
	case errors.Is(err, ErrSubmission):
		return "submission"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCollection):
		return "collection"
	case errors.Is(err, ErrSynthesis):
		return "synthesis"
	case errors.Is(err, ErrDurationCorrection):
		return "duration_correction"
	case errors.Is(err, ErrAudioStage):
		return "audio_stage"
	case errors.Is(err, ErrAssembly):
		return "assembly"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
