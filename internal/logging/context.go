package logging

import (
	"context"
	"log/slog"

	"reelforge/internal/services"
)

// Structured keys shared by every component.
const (
	FieldComponent     = "component"
	FieldEpisodeID     = "episode_id"
	FieldShotID        = "shot_id"
	FieldStage         = "stage"
	FieldCorrelationID = "correlation_id"

	// FieldEventType classifies a record (stage_start, job_submitted, ...).
	FieldEventType = "event_type"
	// FieldErrorHint is the operator's next step.
	FieldErrorHint = "error_hint"
	// FieldImpact is what the warning costs the finished video.
	FieldImpact = "impact"
)

// ContextFields collects the episode, shot, stage and correlation id that
// services attached to ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	if id, ok := services.EpisodeIDFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldEpisodeID, id))
	}
	if id, ok := services.ShotIDFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldShotID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger with ContextFields(ctx) attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if fields := ContextFields(ctx); len(fields) > 0 {
		return logger.With(toArgs(fields)...)
	}
	return logger
}
