package episode

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"reelforge/internal/config"
)

// Layout maps episodes and shots to artifact locations.
type Layout struct {
	ProjectDir  string
	EpisodesDir string
	ImagesDir   string
	AudioDir    string
	OutputDir   string
}

// NewLayout builds a layout from configuration paths.
func NewLayout(cfg *config.Config) Layout {
	return Layout{
		ProjectDir:  cfg.Paths.ProjectDir,
		EpisodesDir: cfg.Paths.EpisodesDir,
		ImagesDir:   cfg.Paths.ImagesDir,
		AudioDir:    cfg.Paths.AudioDir,
		OutputDir:   cfg.Paths.OutputDir,
	}
}

// OutputHint returns the value substituted into the workflow output
// placeholder for a shot.
func (l Layout) OutputHint(episodeID int, shot Shot) string {
	if hint := strings.TrimSpace(shot.Output); hint != "" {
		return hint
	}
	return fmt.Sprintf("%s_shot_%d.png", FileName(episodeID), shot.ID)
}

// ImagePath returns where the generated image for shot is collected.
func (l Layout) ImagePath(episodeID int, shot Shot) string {
	return filepath.Join(l.ImagesDir, filepath.Base(l.OutputHint(episodeID, shot)))
}

// SourceImagePath returns the image used for the shot's video segment: the
// pre-existing image when the shot names one, otherwise the generated image.
func (l Layout) SourceImagePath(episodeID int, shot Shot) string {
	if image := strings.TrimSpace(shot.Image); image != "" {
		if filepath.IsAbs(image) {
			return image
		}
		return filepath.Join(l.ProjectDir, image)
	}
	return l.ImagePath(episodeID, shot)
}

// AudioPath returns the voice track location for a shot.
func (l Layout) AudioPath(episodeID, shotID int) string {
	return filepath.Join(l.AudioDir, fmt.Sprintf("%s_shot_%d.mp3", FileName(episodeID), shotID))
}

// VideoPath returns the final video location.
func (l Layout) VideoPath(episodeID int) string {
	return filepath.Join(l.OutputDir, FileName(episodeID)+".mp4")
}

// SubtitlePath returns the subtitle file location.
func (l Layout) SubtitlePath(episodeID int) string {
	return filepath.Join(l.OutputDir, FileName(episodeID)+".srt")
}

// Track is an existing voice track discovered on disk.
type Track struct {
	ShotID int
	Path   string
}

var trackPattern = regexp.MustCompile(`^episode_(\d+)_shot_(\d+)\.mp3$`)

// DiscoverTracks returns the voice tracks present for an episode, ordered by
// shot id.
func (l Layout) DiscoverTracks(episodeID int) ([]Track, error) {
	entries, err := os.ReadDir(l.AudioDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list audio tracks: %w", err)
	}
	var tracks []Track
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := trackPattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		ep, _ := strconv.Atoi(match[1])
		if ep != episodeID {
			continue
		}
		shotID, _ := strconv.Atoi(match[2])
		tracks = append(tracks, Track{ShotID: shotID, Path: filepath.Join(l.AudioDir, entry.Name())})
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].ShotID < tracks[j].ShotID })
	return tracks, nil
}
