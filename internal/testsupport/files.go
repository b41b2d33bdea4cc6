package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/episode"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteText writes contents to path, creating parent directories.
func WriteText(t testing.TB, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteEpisode stores ep as JSON in the episodes directory and returns the path.
func WriteEpisode(t testing.TB, cfg *config.Config, ep *episode.Episode) string {
	t.Helper()
	data, err := json.MarshalIndent(ep, "", "  ")
	if err != nil {
		t.Fatalf("marshal episode: %v", err)
	}
	path := filepath.Join(cfg.Paths.EpisodesDir, episode.FileName(ep.ID)+".json")
	WriteText(t, path, string(data))
	return path
}

// SampleEpisode returns a three-shot episode using the closed vocabularies.
func SampleEpisode(id int) *episode.Episode {
	return &episode.Episode{
		ID:        id,
		Character: episode.Character{Name: "Lin", Fingerprint: "silver hair, red scarf"},
		Shots: []episode.Shot{
			{ID: 1, Scene: "rooftop at night", Emotion: "cold", Framing: "close", Duration: 9, Subtitles: []string{"你来了", "……", "我等你很久了"}},
			{ID: 2, Scene: "rainy alley", Emotion: "suppressed", Framing: "medium", Duration: 9, Subtitles: []string{"走吧", "别回头"}},
			{ID: 3, Scene: "train station", Emotion: "confident", Framing: "side", Duration: 17, Subtitles: []string{"这一次", "我不会输"}},
		},
	}
}
