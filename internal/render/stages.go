package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/services"
	"reelforge/internal/subtitles"
	"reelforge/internal/video"
)

// Stage names used in logs and run records.
const (
	StageImages    = "images"
	StageSubtitles = "subtitles"
	StageAudio     = "audio"
	StageVideo     = "video"
)

var titleCaser = cases.Title(language.English)

// StageLabel returns the display form of a stage name ("voice_tracks" ->
// "Voice Tracks").
func StageLabel(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	if name == "" {
		return ""
	}
	return titleCaser.String(name)
}

type stageFunc func(ctx context.Context, rec *record) error

func (r *Renderer) stage(ctx context.Context, rec *record, name string, fn stageFunc) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, r.logger)
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", StageLabel(name)),
	)
	if rec.run != nil {
		rec.run.Stage = name
	}
	r.persist(stageCtx, rec)

	start := time.Now()
	if err := fn(stageCtx, rec); err != nil {
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", services.Kind(err)),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err),
		)
		r.persist(stageCtx, rec)
		return err
	}
	r.persist(stageCtx, rec)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (r *Renderer) images(ctx context.Context, rec *record) error {
	if r.stages.Images == nil {
		return services.Wrap(services.ErrConfiguration, "render", "images", "no image backend configured", nil)
	}
	results, err := r.stages.Images.Generate(ctx, rec.ep)
	if err != nil {
		return err
	}
	rec.result.Images = rec.result.Images[:0]
	for _, result := range results {
		rec.result.Images = append(rec.result.Images, result.Path)
	}
	return nil
}

func (r *Renderer) subtitles(ctx context.Context, rec *record) error {
	doc := subtitles.Compose(rec.ep.Shots)
	path := r.layout.SubtitlePath(rec.ep.ID)
	if err := subtitles.Write(path, doc); err != nil {
		return services.Wrap(services.ErrAssembly, "render", "write subtitles", path, err)
	}
	var issues []string
	if len(doc.Cues) > 0 {
		issues = subtitles.ValidateFile(path, len(doc.Cues))
	}
	for _, issue := range issues {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "subtitle file check failed", "subtitle_validation",
			logging.String("path", path),
			logging.String("issue", issue),
			logging.String(logging.FieldErrorHint, "inspect the subtitle file"),
			logging.String(logging.FieldImpact, "subtitles may render incorrectly"),
		)
		rec.warn("subtitles: " + issue)
	}
	rec.result.Subtitles = path
	logging.WithContext(ctx, r.logger).Info("subtitles written",
		logging.String(logging.FieldEventType, "subtitles_written"),
		logging.String("path", path),
		logging.Int("cues", len(doc.Cues)),
		logging.Float64("duration_seconds", doc.Duration),
	)
	return nil
}

func (r *Renderer) reuseSubtitles(ctx context.Context, rec *record) error {
	path := r.layout.SubtitlePath(rec.ep.ID)
	if fileutil.Exists(path) {
		logging.WithContext(ctx, r.logger).Info("reusing subtitle file",
			logging.String(logging.FieldEventType, "subtitles_reused"),
			logging.String("path", path),
		)
		rec.result.Subtitles = path
		return nil
	}
	return r.subtitles(ctx, rec)
}

func (r *Renderer) audio(ctx context.Context, rec *record) error {
	if r.stages.Speech == nil {
		rec.warn("audio stage: no speech engine configured")
		return nil
	}
	result, err := r.stages.Speech.Synthesize(ctx, rec.ep)
	for _, warning := range result.Warnings {
		rec.warn(warning.String())
	}
	if err != nil {
		return err
	}
	rec.result.Audio = result.Paths()
	rec.result.tracks = make(map[int]string, len(result.Tracks))
	for _, track := range result.Tracks {
		rec.result.tracks[track.ShotID] = track.Path
	}
	return nil
}

func (r *Renderer) discoverTracks(ctx context.Context, rec *record) error {
	tracks, err := r.layout.DiscoverTracks(rec.ep.ID)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "render", "discover tracks", r.layout.AudioDir, err)
	}
	rec.result.discovered = true
	rec.result.tracks = make(map[int]string, len(tracks))
	rec.result.Audio = rec.result.Audio[:0]
	for _, track := range tracks {
		rec.result.tracks[track.ShotID] = track.Path
		rec.result.Audio = append(rec.result.Audio, track.Path)
	}
	logging.WithContext(ctx, r.logger).Info("voice tracks discovered",
		logging.String(logging.FieldEventType, "tracks_discovered"),
		logging.Int("tracks", len(tracks)),
	)
	return nil
}

// video assembles the shots whose image exists on disk. Voice tracks are
// matched to those shots by id: with silent padding every shot gets a slot;
// otherwise the tracks are concatenated in shot order. Tracks discovered on
// disk are only used when they cover every shot.
func (r *Renderer) video(ctx context.Context, rec *record) error {
	logger := logging.WithContext(ctx, r.logger)
	var segments []video.Segment
	for _, shot := range rec.ep.Shots {
		image := r.layout.SourceImagePath(rec.ep.ID, shot)
		if !fileutil.Exists(image) {
			logging.WarnWithContext(logger, "shot image missing; shot skipped", "shot_image_missing",
				logging.Int(logging.FieldShotID, shot.ID),
				logging.String("path", image),
				logging.String(logging.FieldErrorHint, "rerun the images stage"),
				logging.String(logging.FieldImpact, "shot is left out of the video"),
			)
			rec.warn(fmt.Sprintf("shot %d: image %s missing", shot.ID, image))
			continue
		}
		segments = append(segments, video.Segment{ShotID: shot.ID, Image: image, Duration: shot.Duration})
	}
	if len(segments) == 0 {
		return services.Wrap(services.ErrAssembly, "render", "video", "no shot images on disk", nil)
	}
	if r.stages.Video == nil {
		return services.Wrap(services.ErrConfiguration, "render", "video", "no video assembler configured", nil)
	}

	req := video.Request{
		Segments:  segments,
		Subtitles: rec.result.Subtitles,
		Audio:     r.alignTracks(ctx, rec, segments),
		Output:    r.layout.VideoPath(rec.ep.ID),
	}
	plan, err := r.stages.Video.Assemble(ctx, req)
	if err != nil {
		return err
	}
	if plan.Dropped > 0 {
		rec.warn(fmt.Sprintf("video: %d extra audio tracks dropped", plan.Dropped))
	}
	for _, missing := range plan.Missing {
		rec.warn(fmt.Sprintf("video: audio track %s missing", missing))
	}
	rec.result.Video = req.Output
	return nil
}

func (r *Renderer) alignTracks(ctx context.Context, rec *record, segments []video.Segment) []string {
	if len(rec.result.tracks) == 0 {
		return nil
	}
	if r.padSilent {
		audio := make([]string, len(segments))
		for i, segment := range segments {
			audio[i] = rec.result.tracks[segment.ShotID]
		}
		return audio
	}
	var audio []string
	for _, segment := range segments {
		if path, ok := rec.result.tracks[segment.ShotID]; ok {
			audio = append(audio, path)
		}
	}
	if len(audio) != len(segments) && rec.result.discovered {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "discovered voice tracks do not match the shots", "audio_track_count_mismatch",
			logging.Int("tracks", len(audio)),
			logging.Int("segments", len(segments)),
			logging.String(logging.FieldErrorHint, "rerun the audio stage or enable video.pad_silent_shots"),
			logging.String(logging.FieldImpact, "video is rendered silent"),
		)
		rec.warn(fmt.Sprintf("video: %d voice tracks for %d shots; audio left out", len(audio), len(segments)))
		return nil
	}
	if len(audio) != len(segments) {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "voice tracks do not cover every shot", "audio_track_count_mismatch",
			logging.Int("tracks", len(audio)),
			logging.Int("segments", len(segments)),
			logging.String(logging.FieldErrorHint, "enable video.pad_silent_shots to keep audio aligned"),
			logging.String(logging.FieldImpact, "voice may drift from the shots it belongs to"),
		)
	}
	return audio
}
