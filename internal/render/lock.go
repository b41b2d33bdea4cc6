package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"reelforge/internal/episode"
)

type episodeLock struct {
	lock *flock.Flock
}

// acquireLock takes the per-episode lock without blocking. ErrBusy means
// another render of the same episode holds it.
func acquireLock(dir string, episodeID int) (*episodeLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, episode.FileName(episodeID)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, episode.FileName(episodeID))
	}
	return &episodeLock{lock: lock}, nil
}

func (l *episodeLock) release() {
	if l == nil || l.lock == nil {
		return
	}
	_ = l.lock.Unlock()
}
