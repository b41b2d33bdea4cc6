package services

import "context"

type contextKey string

const (
	episodeIDKey contextKey = "episode_id"
	shotIDKey    contextKey = "shot_id"
	stageKey     contextKey = "stage"
	requestIDKey contextKey = "request_id"
)

// WithEpisodeID annotates context with the episode being rendered.
func WithEpisodeID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, episodeIDKey, id)
}

// EpisodeIDFromContext extracts the episode identifier if present.
func EpisodeIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(episodeIDKey).(int)
	return id, ok
}

// WithShotID annotates context with the shot currently being processed.
func WithShotID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, shotIDKey, id)
}

// ShotIDFromContext extracts the shot identifier if present.
func ShotIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(shotIDKey).(int)
	return id, ok
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
