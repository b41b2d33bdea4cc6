package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RequiredFilters are the ffmpeg filters the speech and video stages use.
var RequiredFilters = []string{"scale", "pad", "setsar", "concat", "subtitles", "atempo", "apad", "anullsrc"}

type filterLister func(ctx context.Context, binary string) ([]byte, error)

var listFilters filterLister = func(ctx context.Context, binary string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
}

// CheckFFmpegFilters reports whether binary was built with every filter in
// filters. The subtitles filter in particular needs ffmpeg built with libass.
func CheckFFmpegFilters(ctx context.Context, binary string, filters []string) Status {
	status := Status{
		Name:        "FFmpeg filters",
		Command:     binary,
		Description: "Filters used for speech timing and video assembly",
	}
	output, err := listFilters(ctx, binary)
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	available := parseFilters(output)
	var missing []string
	for _, name := range filters {
		if !available[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	status.Path = binary
	return status
}

// parseFilters reads `ffmpeg -filters` output, whose rows look like
// " TSC scale             V->V       Scale the input video size".
func parseFilters(output []byte) map[string]bool {
	names := map[string]bool{}
	scanner := bufio.NewScanner(bytes.NewReader(output))
	inTable := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "---") {
			inTable = true
			continue
		}
		if !inTable {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
