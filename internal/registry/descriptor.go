package registry

import (
	"time"

	"github.com/mergegate/mergegate/internal/hooks"
)

// BackoffPolicy selects how retry delays grow between attempts.
type BackoffPolicy string

const (
	BackoffFixed       BackoffPolicy = "fixed"
	BackoffExponential BackoffPolicy = "exponential"
)

// CheckDescriptor describes one external check: the command to run, its
// deadline, whether its failure blocks the merge, and its retry policy.
// Descriptors are created at load time and immutable thereafter.
type CheckDescriptor struct {
	Name             string        `yaml:"name" json:"name"`
	Command          []string      `yaml:"command" json:"command"`
	WorkingDirectory string        `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	TimeoutSec       int           `yaml:"timeout_seconds" json:"timeout_seconds"`
	Blocking         *bool         `yaml:"blocking,omitempty" json:"blocking"`
	MaxRetries       int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryBackoffSec  int           `yaml:"retry_backoff_seconds,omitempty" json:"retry_backoff_seconds,omitempty"`
	Backoff          BackoffPolicy `yaml:"backoff,omitempty" json:"backoff,omitempty"`
	DependsOn        []string      `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// IsBlocking reports whether a failure of this check must block the merge.
// Checks are blocking unless explicitly marked advisory.
func (d *CheckDescriptor) IsBlocking() bool {
	return d.Blocking == nil || *d.Blocking
}

// Timeout returns the per-attempt deadline.
func (d *CheckDescriptor) Timeout() time.Duration {
	return time.Duration(d.TimeoutSec) * time.Second
}

// RetryDelay returns the delay before the given retry (attempt numbers start
// at 1, so the first retry is attempt 2). Exponential backoff doubles the
// base delay per prior failed attempt.
func (d *CheckDescriptor) RetryDelay(nextAttempt int) time.Duration {
	base := time.Duration(d.RetryBackoffSec) * time.Second
	if base <= 0 {
		return 0
	}
	if d.Backoff != BackoffExponential {
		return base
	}
	delay := base
	for i := 2; i < nextAttempt; i++ {
		delay *= 2
	}
	return delay
}

// SinkConfig declares one report sink by type with sink-specific options.
// The options map is decoded by the report package.
type SinkConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// Suite is the validated, immutable catalog of checks for one evaluation
// cycle. It is safe for concurrent read access.
type Suite struct {
	Name        string             `yaml:"name" json:"name"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Checks      []*CheckDescriptor `yaml:"checks" json:"checks"`
	Concurrency int                `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	DeadlineSec int                `yaml:"deadline_seconds,omitempty" json:"deadline_seconds,omitempty"`
	Hooks       hooks.Config       `yaml:"hooks,omitempty" json:"hooks,omitempty"`
	Sinks       []SinkConfig       `yaml:"sinks,omitempty" json:"sinks,omitempty"`

	byName map[string]*CheckDescriptor
}

// Lookup returns the descriptor with the given name.
func (s *Suite) Lookup(name string) (*CheckDescriptor, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Deadline returns the overall cycle deadline, or zero when unbounded.
func (s *Suite) Deadline() time.Duration {
	return time.Duration(s.DeadlineSec) * time.Second
}
