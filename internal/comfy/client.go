package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelforge/internal/config"
	"reelforge/internal/fileutil"
	"reelforge/internal/logging"
	"reelforge/internal/services"
)

const (
	defaultPollInterval = time.Second
	maxErrorBody        = 2048
)

// HTTPDoer describes the HTTP client used to reach ComfyUI.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one ComfyUI server.
type Client struct {
	baseURL        string
	clientID       string
	http           HTTPDoer
	pollInterval   time.Duration
	collectTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithPollInterval sets the history polling interval.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// WithCollectTimeout bounds how long Collect waits for a job. Zero leaves the
// wait bounded only by the caller's context.
func WithCollectTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout >= 0 {
			c.collectTimeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "comfy")
	}
}

// NewClient constructs a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		clientID:     uuid.NewString(),
		http:         http.DefaultClient,
		pollInterval: defaultPollInterval,
		logger:       logging.NewComponentLogger(nil, "comfy"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig constructs a client from the [comfy] configuration section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.Comfy.RequestTimeout()}
	return NewClient(cfg.Comfy.URL,
		WithHTTPClient(httpClient),
		WithPollInterval(cfg.Comfy.PollInterval()),
		WithCollectTimeout(cfg.Comfy.CollectTimeout()),
		WithLogger(logger),
	)
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

type submitRequest struct {
	Prompt   Graph  `json:"prompt"`
	ClientID string `json:"client_id"`
}

type submitResponse struct {
	PromptID   string          `json:"prompt_id"`
	Number     int             `json:"number"`
	NodeErrors json.RawMessage `json:"node_errors"`
}

// Submit enqueues graph and returns the backend job id.
func (c *Client) Submit(ctx context.Context, graph Graph) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: graph, ClientID: c.clientID})
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "comfy", "encode prompt", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "comfy", "build submit request", "", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "comfy", "submit", c.baseURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrSubmission, "comfy", "read submit response", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", services.Wrap(services.ErrSubmission, "comfy", "submit",
			fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(payload)), nil)
	}

	var decoded submitResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", services.Wrap(services.ErrSubmission, "comfy", "decode submit response", "", err)
	}
	if hasNodeErrors(decoded.NodeErrors) {
		return "", services.Wrap(services.ErrSubmission, "comfy", "submit",
			"node errors: "+truncate(decoded.NodeErrors), nil)
	}
	if strings.TrimSpace(decoded.PromptID) == "" {
		return "", services.Wrap(services.ErrSubmission, "comfy", "submit", "response carried no prompt_id", nil)
	}

	c.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("job_id", decoded.PromptID),
		logging.Int("queue_position", decoded.Number),
	)
	return decoded.PromptID, nil
}

// Job identifies a submitted job and where its artifacts go.
type Job struct {
	ID        string
	TargetDir string
	// ExpectedFilename renames the single artifact of the job.
	ExpectedFilename string
}

// Artifact references one produced file on the server.
type Artifact struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

type historyEntry struct {
	Outputs map[string]struct {
		Images []Artifact `json:"images"`
	} `json:"outputs"`
	Status struct {
		StatusStr string            `json:"status_str"`
		Completed bool              `json:"completed"`
		Messages  []json.RawMessage `json:"messages"`
	} `json:"status"`
}

// Collect waits for job to finish, then downloads every artifact into
// job.TargetDir and returns the written paths in node order.
func (c *Client) Collect(ctx context.Context, job Job) ([]string, error) {
	if strings.TrimSpace(job.ID) == "" {
		return nil, services.Wrap(services.ErrCollection, "comfy", "collect", "job id is empty", nil)
	}
	entry, err := c.wait(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(entry.Status.StatusStr, "error") {
		return nil, services.Wrap(services.ErrCollection, "comfy", "collect",
			fmt.Sprintf("job %s failed on the server", job.ID), nil)
	}

	artifacts := entry.artifacts()
	if len(artifacts) == 0 {
		return nil, services.Wrap(services.ErrCollection, "comfy", "collect",
			fmt.Sprintf("job %s produced no images", job.ID), nil)
	}
	if job.ExpectedFilename != "" && len(artifacts) > 1 {
		return nil, services.Wrap(services.ErrCollection, "comfy", "collect",
			fmt.Sprintf("job %s produced %d images but a single filename %q was expected", job.ID, len(artifacts), job.ExpectedFilename), nil)
	}
	if err := os.MkdirAll(job.TargetDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrCollection, "comfy", "prepare target", job.TargetDir, err)
	}

	collected := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		name := filepath.Base(artifact.Filename)
		if job.ExpectedFilename != "" {
			name = filepath.Base(job.ExpectedFilename)
		}
		dst := filepath.Join(job.TargetDir, name)
		if err := c.fetch(ctx, artifact, dst); err != nil {
			return nil, err
		}
		collected = append(collected, dst)
	}

	c.logger.Info("job collected",
		logging.String(logging.FieldEventType, "job_collected"),
		logging.String("job_id", job.ID),
		logging.Int("artifacts", len(collected)),
	)
	return collected, nil
}

func (c *Client) wait(ctx context.Context, id string) (historyEntry, error) {
	if c.collectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.collectTimeout)
		defer cancel()
	}
	started := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return historyEntry{}, services.Wrap(services.ErrTimeout, "comfy", "collect",
					fmt.Sprintf("job %s not finished after %s", id, time.Since(started).Round(time.Millisecond)), ctx.Err())
			}
			return historyEntry{}, services.Wrap(services.ErrCollection, "comfy", "collect",
				fmt.Sprintf("wait for job %s interrupted", id), ctx.Err())
		case <-timer.C:
		}

		entry, ok, err := c.history(ctx, id)
		switch {
		case err != nil:
			c.logger.Debug("history poll failed", logging.String("job_id", id), logging.Int("attempt", attempt), logging.Error(err))
		case ok:
			return entry, nil
		}
		timer.Reset(c.pollInterval)
	}
}

func (c *Client) history(ctx context.Context, id string) (historyEntry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(id), nil)
	if err != nil {
		return historyEntry{}, false, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return historyEntry{}, false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return historyEntry{}, false, fmt.Errorf("history returned %d", resp.StatusCode)
	}
	var history map[string]historyEntry
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		return historyEntry{}, false, fmt.Errorf("decode history: %w", err)
	}
	entry, ok := history[id]
	return entry, ok, nil
}

func (e historyEntry) artifacts() []Artifact {
	nodes := make([]string, 0, len(e.Outputs))
	for node := range e.Outputs {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	var out []Artifact
	for _, node := range nodes {
		for _, image := range e.Outputs[node].Images {
			if strings.TrimSpace(image.Filename) == "" {
				continue
			}
			out = append(out, image)
		}
	}
	return out
}

func (c *Client) fetch(ctx context.Context, artifact Artifact, dst string) error {
	query := url.Values{}
	query.Set("filename", artifact.Filename)
	kind := artifact.Type
	if kind == "" {
		kind = "output"
	}
	query.Set("type", kind)
	if artifact.Subfolder != "" {
		query.Set("subfolder", artifact.Subfolder)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+query.Encode(), nil)
	if err != nil {
		return services.Wrap(services.ErrCollection, "comfy", "build fetch request", artifact.Filename, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrCollection, "comfy", "fetch", artifact.Filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return services.Wrap(services.ErrCollection, "comfy", "fetch",
			fmt.Sprintf("%s: status %d: %s", artifact.Filename, resp.StatusCode, truncate(payload)), nil)
	}

	if err := fileutil.WriteStreamAtomic(dst, resp.Body, 0o644); err != nil {
		return services.Wrap(services.ErrCollection, "comfy", "write artifact", dst, err)
	}
	if err := fileutil.NonEmpty(dst); err != nil {
		_ = os.Remove(dst)
		return services.Wrap(services.ErrCollection, "comfy", "verify artifact", dst, err)
	}
	return nil
}

// Ping checks that the server answers GET /system_stats.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reach comfyui at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("comfyui system_stats returned %d", resp.StatusCode)
	}
	return nil
}

func hasNodeErrors(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "{}" && trimmed != "null" && trimmed != "[]"
}

func truncate(payload []byte) string {
	text := strings.TrimSpace(string(payload))
	if len(text) > maxErrorBody {
		return text[:maxErrorBody] + "..."
	}
	return text
}
