package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a suite from a YAML file.
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading suite file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a suite from YAML bytes. The returned Suite is
// immutable and safe to share across all concurrent runners.
func Parse(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parsing suite YAML: %w", err)
	}
	if err := suite.validate(); err != nil {
		return nil, err
	}
	return &suite, nil
}

func (s *Suite) validate() error {
	if len(s.Checks) == 0 {
		return invalidf("", "suite defines no checks")
	}
	if s.Concurrency < 0 {
		return invalidf("", "concurrency must be non-negative, got %d", s.Concurrency)
	}
	if s.DeadlineSec < 0 {
		return invalidf("", "deadline_seconds must be non-negative, got %d", s.DeadlineSec)
	}

	s.byName = make(map[string]*CheckDescriptor, len(s.Checks))
	for _, d := range s.Checks {
		if d.Name == "" {
			return invalidf("", "check name is required")
		}
		if _, exists := s.byName[d.Name]; exists {
			return invalidf(d.Name, "duplicate check name")
		}
		if len(d.Command) == 0 {
			return invalidf(d.Name, "command is required")
		}
		if d.TimeoutSec <= 0 {
			return invalidf(d.Name, "timeout_seconds must be positive, got %d", d.TimeoutSec)
		}
		if d.MaxRetries < 0 {
			return invalidf(d.Name, "max_retries must be non-negative, got %d", d.MaxRetries)
		}
		if d.RetryBackoffSec < 0 {
			return invalidf(d.Name, "retry_backoff_seconds must be non-negative, got %d", d.RetryBackoffSec)
		}
		switch d.Backoff {
		case "", BackoffFixed, BackoffExponential:
		default:
			return invalidf(d.Name, "backoff must be %q or %q, got %q", BackoffFixed, BackoffExponential, d.Backoff)
		}
		s.byName[d.Name] = d
	}

	// Dependency references must resolve before cycle detection runs.
	for _, d := range s.Checks {
		seen := make(map[string]struct{}, len(d.DependsOn))
		for _, dep := range d.DependsOn {
			if dep == d.Name {
				return &ConfigError{Kind: ErrCyclicDependency, Check: d.Name, Detail: "check depends on itself"}
			}
			if _, ok := s.byName[dep]; !ok {
				return &ConfigError{Kind: ErrUnknownDependency, Check: d.Name, Detail: fmt.Sprintf("depends_on references unknown check %q", dep)}
			}
			if _, dup := seen[dep]; dup {
				return invalidf(d.Name, "duplicate dependency %q", dep)
			}
			seen[dep] = struct{}{}
		}
	}

	if cycle := s.findCycle(); len(cycle) > 0 {
		return &ConfigError{
			Kind:   ErrCyclicDependency,
			Check:  cycle[0],
			Detail: fmt.Sprintf("dependency cycle: %s", joinCycle(cycle)),
		}
	}

	for i := range s.Sinks {
		if s.Sinks[i].Type == "" {
			return invalidf("", "sink[%d]: type is required", i)
		}
	}

	return nil
}
