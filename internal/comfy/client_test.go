package comfy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"reelforge/internal/services"
)

type fakeServer struct {
	t            *testing.T
	historyAfter int32
	polls        atomic.Int32
	history      string
	images       map[string]string
	submitStatus int
	submitBody   string
	lastPrompt   atomic.Value
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /prompt", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.lastPrompt.Store(string(payload["prompt"]))
		if f.submitStatus != 0 {
			w.WriteHeader(f.submitStatus)
		}
		body := f.submitBody
		if body == "" {
			body = `{"prompt_id":"job-1","number":0,"node_errors":{}}`
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("GET /history/{id}", func(w http.ResponseWriter, r *http.Request) {
		n := f.polls.Add(1)
		if n <= f.historyAfter {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(f.history))
	})
	mux.HandleFunc("GET /view", func(w http.ResponseWriter, r *http.Request) {
		content, ok := f.images[r.URL.Query().Get("filename")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("type") == "" {
			http.Error(w, "missing type", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(content))
	})
	mux.HandleFunc("GET /system_stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"system":{}}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeServer, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)
	base := []Option{WithHTTPClient(server.Client()), WithPollInterval(5 * time.Millisecond)}
	return NewClient(server.URL, append(base, opts...)...)
}

func TestSubmitReturnsPromptID(t *testing.T) {
	f := &fakeServer{t: t}
	client := newTestClient(t, f)
	graph, err := ParseGraph([]byte(sampleWorkflow))
	if err != nil {
		t.Fatal(err)
	}
	id, err := client.Submit(context.Background(), graph.Substitute(Values{Prompt: "p", Seed: 1, Output: "o.png"}))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("unexpected job id %q", id)
	}
	prompt, _ := f.lastPrompt.Load().(string)
	if !strings.Contains(prompt, `"o.png"`) || strings.Contains(prompt, "__OUTPUT__") {
		t.Fatalf("server did not receive substituted graph: %s", prompt)
	}
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "http error", status: http.StatusBadRequest, body: `{"error":"invalid prompt"}`},
		{name: "node errors", body: `{"prompt_id":"x","node_errors":{"3":{"errors":["bad"]}}}`},
		{name: "missing id", body: `{"number":1}`},
		{name: "bad json", body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeServer{t: t, submitStatus: tt.status, submitBody: tt.body})
			_, err := client.Submit(context.Background(), Graph{"1": {ClassType: "X"}})
			if !errors.Is(err, services.ErrSubmission) {
				t.Fatalf("expected ErrSubmission, got %v", err)
			}
		})
	}
}

func TestSubmitUnreachableServer(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	_, err := client.Submit(context.Background(), Graph{"1": {ClassType: "X"}})
	if !errors.Is(err, services.ErrSubmission) {
		t.Fatalf("expected ErrSubmission, got %v", err)
	}
}

func TestCollectWritesExpectedFilename(t *testing.T) {
	f := &fakeServer{
		t:            t,
		historyAfter: 2,
		history:      `{"job-1":{"outputs":{"9":{"images":[{"filename":"ComfyUI_0001.png","subfolder":"","type":"output"}]}},"status":{"status_str":"success","completed":true}}}`,
		images:       map[string]string{"ComfyUI_0001.png": "PNGDATA"},
	}
	client := newTestClient(t, f)
	dir := filepath.Join(t.TempDir(), "images")

	paths, err := client.Collect(context.Background(), Job{ID: "job-1", TargetDir: dir, ExpectedFilename: "assets/images/episode_001_shot_1.png"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := filepath.Join(dir, "episode_001_shot_1.png")
	if len(paths) != 1 || paths[0] != want {
		t.Fatalf("unexpected paths %v", paths)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "PNGDATA" {
		t.Fatalf("unexpected content %q", data)
	}
	if f.polls.Load() < 3 {
		t.Fatalf("expected polling until history appeared, got %d polls", f.polls.Load())
	}
}

func TestCollectKeepsServerNamesWithoutExpectedFilename(t *testing.T) {
	f := &fakeServer{
		t:       t,
		history: `{"job-1":{"outputs":{"9":{"images":[{"filename":"b.png","type":"output"}]},"10":{"images":[{"filename":"a.png","subfolder":"sub","type":"output"}]}}}}`,
		images:  map[string]string{"a.png": "A", "b.png": "B"},
	}
	client := newTestClient(t, f)
	dir := t.TempDir()
	paths, err := client.Collect(context.Background(), Job{ID: "job-1", TargetDir: dir})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// Node ids are visited in sorted order: "10" before "9".
	want := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestCollectFailures(t *testing.T) {
	tests := []struct {
		name     string
		history  string
		images   map[string]string
		expected string
	}{
		{
			name:    "server error status",
			history: `{"job-1":{"outputs":{},"status":{"status_str":"error","completed":false}}}`,
		},
		{
			name:    "no images",
			history: `{"job-1":{"outputs":{"9":{"images":[]}}}}`,
		},
		{
			name:     "ambiguous expected filename",
			history:  `{"job-1":{"outputs":{"9":{"images":[{"filename":"a.png"},{"filename":"b.png"}]}}}}`,
			images:   map[string]string{"a.png": "A", "b.png": "B"},
			expected: "shot.png",
		},
		{
			name:    "empty artifact",
			history: `{"job-1":{"outputs":{"9":{"images":[{"filename":"a.png","type":"output"}]}}}}`,
			images:  map[string]string{"a.png": ""},
		},
		{
			name:    "missing artifact",
			history: `{"job-1":{"outputs":{"9":{"images":[{"filename":"gone.png","type":"output"}]}}}}`,
			images:  map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeServer{t: t, history: tt.history, images: tt.images})
			dir := t.TempDir()
			_, err := client.Collect(context.Background(), Job{ID: "job-1", TargetDir: dir, ExpectedFilename: tt.expected})
			if !errors.Is(err, services.ErrCollection) {
				t.Fatalf("expected ErrCollection, got %v", err)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Fatalf("expected no files left behind, found %d", len(entries))
			}
		})
	}
}

func TestCollectTimesOut(t *testing.T) {
	f := &fakeServer{t: t, historyAfter: 1 << 30, history: `{}`}
	client := newTestClient(t, f, WithCollectTimeout(40*time.Millisecond))
	_, err := client.Collect(context.Background(), Job{ID: "job-1", TargetDir: t.TempDir()})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCollectCancelledIsNotTimeout(t *testing.T) {
	f := &fakeServer{t: t, historyAfter: 1 << 30, history: `{}`}
	client := newTestClient(t, f)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := client.Collect(ctx, Job{ID: "job-1", TargetDir: t.TempDir()})
	if err == nil || errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, &fakeServer{t: t})
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := NewClient("http://127.0.0.1:1").Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail for unreachable server")
	}
}
