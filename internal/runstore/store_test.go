package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"reelforge/internal/services"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state", "runs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBeginAndFinishSuccess(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.Begin(ctx, "run-1", 7, "render")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if run.Status != StatusRunning || run.EpisodeID != 7 || run.Operation != "render" || run.StartedAt.IsZero() {
		t.Fatalf("unexpected new run: %+v", run)
	}

	run.Stage = "video"
	run.Images = []string{"a.png", "b.png"}
	run.Audio = []string{"a.mp3"}
	run.SubtitlePath = "ep.srt"
	run.VideoPath = "ep.mp4"
	run.Warnings = []string{"shot 1 line 2: synthesis: voice missing"}
	if err := store.Finish(ctx, run, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusSucceeded || !got.Finished() || got.FinishedAt.IsZero() {
		t.Fatalf("run not finished: %+v", got)
	}
	if len(got.Images) != 2 || got.Images[1] != "b.png" || len(got.Audio) != 1 || len(got.Warnings) != 1 {
		t.Fatalf("artifacts not round-tripped: %+v", got)
	}
	if got.VideoPath != "ep.mp4" || got.SubtitlePath != "ep.srt" || got.Stage != "video" {
		t.Fatalf("paths not round-tripped: %+v", got)
	}
	if got.Elapsed() < 0 {
		t.Fatalf("negative elapsed time")
	}
}

func TestFinishRecordsErrorKind(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	run, err := store.Begin(ctx, "run-2", 1, "images")
	if err != nil {
		t.Fatal(err)
	}
	runErr := services.Wrap(services.ErrTimeout, "comfy", "collect", "job not finished", nil)
	if err := store.Finish(ctx, run, runErr); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusFailed || got.ErrorKind != "timeout" || got.ErrorMessage == "" {
		t.Fatalf("unexpected failed run: %+v", got)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		run, err := store.Begin(ctx, fmt.Sprintf("run-%d", i), 1+i%2, "render")
		if err != nil {
			t.Fatal(err)
		}
		if i == 4 {
			if err := store.Finish(ctx, run, nil); err != nil {
				t.Fatal(err)
			}
		}
	}

	all, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 || all[0].RunID != "run-4" {
		t.Fatalf("expected newest first, got %d runs starting %q", len(all), all[0].RunID)
	}

	episodeTwo, err := store.List(ctx, ListOptions{EpisodeID: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(episodeTwo) != 2 {
		t.Fatalf("expected 2 runs for episode 2, got %d", len(episodeTwo))
	}

	running, err := store.List(ctx, ListOptions{Statuses: []Status{StatusRunning}, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(running) != 2 || running[0].RunID != "run-3" {
		t.Fatalf("unexpected running runs: %d", len(running))
	}
}

func TestGetMissingRun(t *testing.T) {
	store := openTestStore(t)
	run, err := store.Get(context.Background(), 42)
	if err != nil || run != nil {
		t.Fatalf("expected nil run without error, got %+v, %v", run, err)
	}
}

func TestReopenKeepsRunsAndRejectsOtherVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Begin(context.Background(), "run-1", 1, "render"); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	runs, err := store.List(context.Background(), ListOptions{})
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d, %v", len(runs), err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestRetryOnBusy(t *testing.T) {
	attempts := 0
	err := retryOnBusy(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil || attempts != 3 {
		t.Fatalf("expected success after 3 attempts, got %d, %v", attempts, err)
	}

	attempts = 0
	permanent := errors.New("constraint failed")
	if err := retryOnBusy(context.Background(), func() error { attempts++; return permanent }); !errors.Is(err, permanent) || attempts != 1 {
		t.Fatalf("non-busy errors must not retry: %d, %v", attempts, err)
	}
}
