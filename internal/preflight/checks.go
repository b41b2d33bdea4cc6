package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelforge/internal/comfy"
	"reelforge/internal/config"
	"reelforge/internal/deps"
	"reelforge/internal/tts"
)

// Pinger checks that an image backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckComfy verifies that the ComfyUI server is reachable.
func CheckComfy(ctx context.Context, url string, pinger Pinger) Result {
	const name = "ComfyUI"
	if strings.TrimSpace(url) == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pinger.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeNetError(url, err)}
	}
	return Result{Name: name, Passed: true, Detail: url + " (reachable)"}
}

// CheckWorkflow verifies that the workflow template parses and carries the
// placeholders the image stage substitutes.
func CheckWorkflow(path string) Result {
	const name = "Workflow template"
	graph, err := comfy.LoadGraph(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	counts := graph.Placeholders()
	if counts[comfy.PlaceholderPrompt] == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no %s placeholder)", path, comfy.PlaceholderPrompt.Sentinel())}
	}
	var absent []string
	for _, p := range []comfy.Placeholder{comfy.PlaceholderSeed, comfy.PlaceholderOutput} {
		if counts[p] == 0 {
			absent = append(absent, p.Sentinel())
		}
	}
	detail := fmt.Sprintf("%s (%d nodes)", path, len(graph))
	if len(absent) > 0 {
		detail = fmt.Sprintf("%s (%d nodes, without %s)", path, len(graph), strings.Join(absent, ", "))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs needed for cfg. engine may
// be nil when the voice configuration is invalid; the speech binary is then
// reported as not configured.
func CheckSystemDeps(ctx context.Context, cfg *config.Config, engine tts.Engine) []deps.Status {
	speech := ""
	if engine != nil {
		speech = engine.Binary()
	}
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio segments and video assembly",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for speech duration correction",
		},
		{
			Name:        "Speech engine",
			Command:     speech,
			Description: "Voices subtitle lines; without it tracks are silent",
			Optional:    true,
		},
	}
	statuses := deps.CheckBinaries(requirements)
	if statuses[0].Available {
		statuses = append(statuses, deps.CheckFFmpegFilters(ctx, statuses[0].Path, deps.RequiredFilters))
	}
	return statuses
}

func summarizeNetError(url string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return url + " (timed out)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return url + " (timed out)"
	}
	return fmt.Sprintf("%s (%v)", url, err)
}
