// Package models holds the result types shared between the registry,
// runner, orchestrator, and report sinks.
package models

import (
	"strings"
	"time"
)

// Status represents the state of one check attempt or its resolved outcome.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusTimedOut  Status = "timed_out"
	StatusErrored   Status = "errored"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusTimedOut, StatusErrored, StatusCancelled:
		return true
	}
	return false
}

// Retriable reports whether an attempt with this status may be retried.
// Errored means the command could not be launched at all (missing binary,
// permission denied) and is treated as a configuration problem, not flakiness.
func (s Status) Retriable() bool {
	return s == StatusFailure || s == StatusTimedOut
}

// CheckRun records a single execution attempt of a check command.
// It is owned by the runner that created it and immutable once finalized.
type CheckRun struct {
	CheckName string    `json:"check"`
	Attempt   int       `json:"attempt"`
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	// Output holds combined stdout/stderr, bounded to the configured
	// buffer size. When Truncated is set, only the tail survived.
	Output    string `json:"output,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	ErrorMsg  string `json:"error,omitempty"`
}

// Duration returns the wall-clock duration of the attempt.
func (r *CheckRun) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}

// CheckResult is the resolved outcome for one check after retries are
// exhausted or a success occurs. Attempts are in chronological order.
type CheckResult struct {
	CheckName     string        `json:"check"`
	FinalStatus   Status        `json:"status"`
	Blocking      bool          `json:"blocking"`
	Attempts      []CheckRun    `json:"attempts,omitempty"`
	TotalDuration time.Duration `json:"total_duration_ns"`
	// Skipped is set when the check never executed because a dependency
	// resolved to non-success.
	Skipped       bool   `json:"skipped,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty"`
}

// LastRun returns the final attempt, or nil when the check never ran.
func (r *CheckResult) LastRun() *CheckRun {
	if len(r.Attempts) == 0 {
		return nil
	}
	return &r.Attempts[len(r.Attempts)-1]
}

// OutputTail returns up to maxLines trailing lines of the final attempt's
// captured output, for failure display.
func (r *CheckResult) OutputTail(maxLines int) string {
	last := r.LastRun()
	if last == nil || last.Output == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(last.Output, "\n"), "\n")
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return strings.Join(lines, "\n")
}

// Overall is the aggregate verdict for one evaluation cycle.
type Overall string

const (
	OverallPass       Overall = "pass"
	OverallFail       Overall = "fail"
	OverallIncomplete Overall = "incomplete"
)

// FinalVerdict aggregates all CheckResults of one evaluation cycle.
// It is created once by the aggregator and immutable afterwards.
type FinalVerdict struct {
	SuiteName        string                  `json:"suite"`
	Overall          Overall                 `json:"overall"`
	BlockingFailures []string                `json:"blocking_failures"`
	AdvisoryFailures []string                `json:"advisory_failures"`
	Results          map[string]*CheckResult `json:"results"`
	StartTime        time.Time               `json:"start_time"`
	DurationMs       int64                   `json:"duration_ms"`
}

// Counts returns how many checks resolved to each broad bucket.
func (v *FinalVerdict) Counts() (succeeded, failed, errored, cancelled int) {
	for _, res := range v.Results {
		switch res.FinalStatus {
		case StatusSuccess:
			succeeded++
		case StatusFailure, StatusTimedOut:
			failed++
		case StatusErrored:
			errored++
		case StatusCancelled:
			cancelled++
		}
	}
	return
}
