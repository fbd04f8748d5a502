package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSuiteYAML = `
name: pre-merge
description: Pre-merge quality gates
concurrency: 2
deadline_seconds: 600
checks:
  - name: lint
    command: ["make", "lint"]
    timeout_seconds: 60
  - name: build
    command: ["make", "build"]
    timeout_seconds: 300
    depends_on: [lint]
  - name: unit-tests
    command: ["make", "test"]
    timeout_seconds: 300
    max_retries: 2
    retry_backoff_seconds: 5
    backoff: exponential
    depends_on: [build]
  - name: spellcheck
    command: ["make", "spellcheck"]
    timeout_seconds: 60
    blocking: false
`

func TestParse_ValidSuite(t *testing.T) {
	suite, err := Parse([]byte(validSuiteYAML))
	require.NoError(t, err)

	assert.Equal(t, "pre-merge", suite.Name)
	assert.Equal(t, 2, suite.Concurrency)
	assert.Equal(t, 10*time.Minute, suite.Deadline())
	assert.Len(t, suite.Checks, 4)

	lint, ok := suite.Lookup("lint")
	require.True(t, ok)
	assert.True(t, lint.IsBlocking(), "unset blocking defaults to true")
	assert.Equal(t, time.Minute, lint.Timeout())

	spell, ok := suite.Lookup("spellcheck")
	require.True(t, ok)
	assert.False(t, spell.IsBlocking())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind ConfigErrorKind
	}{
		{
			name: "no checks",
			yaml: "name: empty\nchecks: []\n",
			kind: ErrInvalidField,
		},
		{
			name: "missing check name",
			yaml: `
name: s
checks:
  - command: ["true"]
    timeout_seconds: 5
`,
			kind: ErrInvalidField,
		},
		{
			name: "duplicate check name",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
  - name: a
    command: ["true"]
    timeout_seconds: 5
`,
			kind: ErrInvalidField,
		},
		{
			name: "missing command",
			yaml: `
name: s
checks:
  - name: a
    timeout_seconds: 5
`,
			kind: ErrInvalidField,
		},
		{
			name: "zero timeout",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 0
`,
			kind: ErrInvalidField,
		},
		{
			name: "negative retries",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
    max_retries: -1
`,
			kind: ErrInvalidField,
		},
		{
			name: "bad backoff policy",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
    backoff: quadratic
`,
			kind: ErrInvalidField,
		},
		{
			name: "unknown dependency",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
    depends_on: [ghost]
`,
			kind: ErrUnknownDependency,
		},
		{
			name: "self dependency",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
    depends_on: [a]
`,
			kind: ErrCyclicDependency,
		},
		{
			name: "duplicate dependency",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
  - name: b
    command: ["true"]
    timeout_seconds: 5
    depends_on: [a, a]
`,
			kind: ErrInvalidField,
		},
		{
			name: "sink without type",
			yaml: `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
sinks:
  - config: {path: out.json}
`,
			kind: ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected *ConfigError, got %T", err)
			assert.Equal(t, tt.kind, cfgErr.Kind)
		})
	}
}

func TestParse_CycleWitness(t *testing.T) {
	_, err := Parse([]byte(`
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 5
    depends_on: [c]
  - name: b
    command: ["true"]
    timeout_seconds: 5
    depends_on: [a]
  - name: c
    command: ["true"]
    timeout_seconds: 5
    depends_on: [b]
`))
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrCyclicDependency, cfgErr.Kind)
	// The witness names the full cycle a -> c -> b -> a, starting from the
	// smallest name.
	assert.Contains(t, cfgErr.Detail, "a -> c -> b -> a")
}

func TestRetryDelay(t *testing.T) {
	fixed := &CheckDescriptor{RetryBackoffSec: 3, Backoff: BackoffFixed}
	assert.Equal(t, 3*time.Second, fixed.RetryDelay(2))
	assert.Equal(t, 3*time.Second, fixed.RetryDelay(4))

	exp := &CheckDescriptor{RetryBackoffSec: 3, Backoff: BackoffExponential}
	assert.Equal(t, 3*time.Second, exp.RetryDelay(2))
	assert.Equal(t, 6*time.Second, exp.RetryDelay(3))
	assert.Equal(t, 12*time.Second, exp.RetryDelay(4))

	none := &CheckDescriptor{}
	assert.Equal(t, time.Duration(0), none.RetryDelay(2))
}

func TestExecutionOrder_Batches(t *testing.T) {
	suite, err := Parse([]byte(validSuiteYAML))
	require.NoError(t, err)

	batches, err := suite.ExecutionOrder()
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, []string{"lint", "spellcheck"}, batchNames(batches[0]))
	assert.Equal(t, []string{"build"}, batchNames(batches[1]))
	assert.Equal(t, []string{"unit-tests"}, batchNames(batches[2]))

	// Every check appears in exactly one batch.
	seen := map[string]int{}
	for _, batch := range batches {
		for _, d := range batch {
			seen[d.Name]++
		}
	}
	for _, d := range suite.Checks {
		assert.Equal(t, 1, seen[d.Name], "check %s", d.Name)
	}
}

func TestExecutionOrder_SelectionPullsDependencies(t *testing.T) {
	suite, err := Parse([]byte(validSuiteYAML))
	require.NoError(t, err)

	batches, err := suite.ExecutionOrder("unit-tests")
	require.NoError(t, err)
	require.Len(t, batches, 3)

	assert.Equal(t, []string{"lint"}, batchNames(batches[0]))
	assert.Equal(t, []string{"build"}, batchNames(batches[1]))
	assert.Equal(t, []string{"unit-tests"}, batchNames(batches[2]))
}

func TestExecutionOrder_UnknownSelection(t *testing.T) {
	suite, err := Parse([]byte(validSuiteYAML))
	require.NoError(t, err)

	_, err = suite.ExecutionOrder("ghost")
	assert.ErrorContains(t, err, "unknown check")
}

func TestMatchChecks(t *testing.T) {
	suite, err := Parse([]byte(validSuiteYAML))
	require.NoError(t, err)

	names, err := suite.MatchChecks([]string{"*i*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"lint", "build", "unit-tests"}, names)

	names, err = suite.MatchChecks(nil)
	require.NoError(t, err)
	assert.Nil(t, names)

	_, err = suite.MatchChecks([]string{"nope-*"})
	assert.ErrorContains(t, err, "matched no checks")
}

func batchNames(batch []*CheckDescriptor) []string {
	names := make([]string, len(batch))
	for i, d := range batch {
		names[i] = d.Name
	}
	return names
}
