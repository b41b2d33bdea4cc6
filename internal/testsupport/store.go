package testsupport

import (
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/runstore"
)

// MustOpenRunStore opens the run ledger for cfg and registers cleanup.
func MustOpenRunStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(cfg.RunDatabasePath())
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
