// Package deps reports whether the external programs the renderer shells
// out to are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names one external program and the command used to find it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional requirements are reported but never block a render.
	Optional bool
}

// Status is the outcome of resolving a Requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// Check resolves the requirement against PATH. Absolute commands are
// checked as given.
func (r Requirement) Check() Status {
	status := Status{
		Name:        r.Name,
		Command:     strings.TrimSpace(r.Command),
		Description: strings.TrimSpace(r.Description),
		Optional:    r.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available, status.Path = true, path
	return status
}

// CheckBinaries resolves every requirement, preserving order.
func CheckBinaries(requirements []Requirement) []Status {
	out := make([]Status, len(requirements))
	for i, req := range requirements {
		out[i] = req.Check()
	}
	return out
}

// Missing filters statuses down to unavailable required programs.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if s.Optional || s.Available {
			continue
		}
		missing = append(missing, s)
	}
	return missing
}
