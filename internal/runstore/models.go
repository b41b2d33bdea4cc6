package runstore

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded render invocation.
type Run struct {
	ID           int64
	RunID        string
	EpisodeID    int
	Operation    string
	Status       Status
	Stage        string
	ErrorKind    string
	ErrorMessage string
	Images       []string
	SubtitlePath string
	Audio        []string
	VideoPath    string
	Warnings     []string
	StartedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   time.Time
}

// Finished reports whether the run reached a terminal status.
func (r *Run) Finished() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

// Elapsed returns the run's wall time so far.
func (r *Run) Elapsed() time.Duration {
	end := r.FinishedAt
	if end.IsZero() {
		end = r.UpdatedAt
	}
	if end.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return end.Sub(r.StartedAt)
}
