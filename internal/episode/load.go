package episode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"reelforge/internal/services"
)

var documentExtensions = []string{".json", ".yaml", ".yml"}

// FileName returns the base name (without extension) of an episode document.
func FileName(id int) string {
	return fmt.Sprintf("episode_%03d", id)
}

// Find locates the document for episode id under dir.
func Find(dir string, id int) (string, error) {
	base := filepath.Join(dir, FileName(id))
	for _, ext := range documentExtensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", services.Wrap(services.ErrInputValidation, "episode", "find",
		fmt.Sprintf("no episode document for id %d in %s", id, dir), fs.ErrNotExist)
}

// Load reads and normalizes episode id from dir.
func Load(dir string, id int) (*Episode, string, error) {
	path, err := Find(dir, id)
	if err != nil {
		return nil, "", err
	}
	ep, err := LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	if ep.ID != id {
		return nil, "", services.Wrap(services.ErrInputValidation, "episode", "load",
			fmt.Sprintf("%s declares episode_id %d, expected %d", filepath.Base(path), ep.ID, id), nil)
	}
	return ep, path, nil
}

// LoadFile reads an episode document from path. The format follows the file
// extension.
func LoadFile(path string) (*Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInputValidation, "episode", "read", path, err)
	}
	ep, err := decode(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	fallback := idFromPath(path)
	if fallback == 0 {
		fallback = 1
	}
	ep.normalize(fallback)
	return ep, nil
}

// Decode parses an episode document. ext selects the format (".json",
// ".yaml", ".yml"); an empty ext sniffs the payload.
func Decode(data []byte, ext string) (*Episode, error) {
	ep, err := decode(data, ext)
	if err != nil {
		return nil, err
	}
	ep.normalize(1)
	return ep, nil
}

func decode(data []byte, ext string) (*Episode, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		ext = ".yaml"
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
			ext = ".json"
		}
	}

	var ep Episode
	switch ext {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		if err := decoder.Decode(&ep); err != nil {
			return nil, services.Wrap(services.ErrInputValidation, "episode", "decode", "invalid JSON", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &ep); err != nil {
			return nil, services.Wrap(services.ErrInputValidation, "episode", "decode", "invalid YAML", err)
		}
	default:
		return nil, services.Wrap(services.ErrInputValidation, "episode", "decode",
			fmt.Sprintf("unsupported document extension %q", ext), nil)
	}
	return &ep, nil
}

// List returns the ids of every episode document under dir in ascending order.
func List(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	seen := map[int]struct{}{}
	var ids []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := idFromPath(entry.Name())
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func idFromPath(path string) int {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	valid := false
	for _, candidate := range documentExtensions {
		if strings.EqualFold(ext, candidate) {
			valid = true
			break
		}
	}
	if !valid {
		return 0
	}
	var id int
	if _, err := fmt.Sscanf(strings.TrimSuffix(name, ext), "episode_%d", &id); err != nil {
		return 0
	}
	return id
}
