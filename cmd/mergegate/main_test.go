package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mergegate/mergegate/internal/models"
)

func writeSuite(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

const passingSuite = `
name: ok
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 10
  - name: b
    command: ["true"]
    timeout_seconds: 10
    depends_on: [a]
`

const failingSuite = `
name: gates
checks:
  - name: lint
    command: ["false"]
    timeout_seconds: 10
  - name: build
    command: ["true"]
    timeout_seconds: 10
    depends_on: [lint]
`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRun_PassingSuite(t *testing.T) {
	path := writeSuite(t, passingSuite)

	stdout, _, err := runCLI(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "PASS")
	assert.Contains(t, stdout, "merge permitted")
}

func TestRun_FailingSuiteReturnsVerdictError(t *testing.T) {
	path := writeSuite(t, failingSuite)

	stdout, _, err := runCLI(t, "run", path)
	require.Error(t, err)

	var verdictErr *VerdictFailureError
	require.True(t, errors.As(err, &verdictErr), "expected *VerdictFailureError, got %T", err)
	assert.Contains(t, verdictErr.Message, "lint")
	assert.Contains(t, stdout, "FAIL")
}

func TestRun_ConfigErrorIsNotVerdictError(t *testing.T) {
	path := writeSuite(t, `
name: broken
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 10
    depends_on: [ghost]
`)

	_, _, err := runCLI(t, "run", path)
	require.Error(t, err)

	var verdictErr *VerdictFailureError
	assert.False(t, errors.As(err, &verdictErr), "config errors must exit 2, not 1")
}

func TestRun_JSONFormat(t *testing.T) {
	path := writeSuite(t, passingSuite)

	stdout, _, err := runCLI(t, "run", path, "--format", "json")
	require.NoError(t, err)

	var v models.FinalVerdict
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	assert.Equal(t, models.OverallPass, v.Overall)
	assert.Len(t, v.Results, 2)
}

func TestRun_WritesOutputFile(t *testing.T) {
	path := writeSuite(t, passingSuite)
	out := filepath.Join(t.TempDir(), "verdict.json")

	_, _, err := runCLI(t, "run", path, "--output", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var v models.FinalVerdict
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, "ok", v.SuiteName)
}

func TestRun_CheckFilter(t *testing.T) {
	path := writeSuite(t, `
name: subset
checks:
  - name: good
    command: ["true"]
    timeout_seconds: 10
  - name: bad
    command: ["false"]
    timeout_seconds: 10
`)

	_, _, err := runCLI(t, "run", path, "--check", "good")
	assert.NoError(t, err, "filtered run must not execute the failing check")

	_, _, err = runCLI(t, "run", path, "--check", "nope-*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched no checks")
}

func TestRun_RejectsBadFormat(t *testing.T) {
	path := writeSuite(t, passingSuite)
	_, _, err := runCLI(t, "run", path, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestValidate(t *testing.T) {
	good := writeSuite(t, passingSuite)
	stdout, _, err := runCLI(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "is valid")

	bad := writeSuite(t, `
name: cyclic
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 10
    depends_on: [b]
  - name: b
    command: ["true"]
    timeout_seconds: 10
    depends_on: [a]
`)
	_, _, err = runCLI(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic_dependency")
}

func TestValidate_SchemaViolation(t *testing.T) {
	path := writeSuite(t, `
name: s
checks:
  - name: a
    command: ["true"]
    timeout_seconds: 10
    surprise: true
`)

	_, stderr, err := runCLI(t, "validate", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
	assert.Contains(t, stderr, "surprise")
}

func TestList(t *testing.T) {
	path := writeSuite(t, `
name: plan
checks:
  - name: lint
    command: ["make", "lint"]
    timeout_seconds: 60
  - name: build
    command: ["make", "build"]
    timeout_seconds: 300
    depends_on: [lint]
  - name: spellcheck
    command: ["make", "spellcheck"]
    timeout_seconds: 60
    blocking: false
`)

	stdout, _, err := runCLI(t, "list", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Suite: plan")
	assert.Contains(t, stdout, "Batch 1:")
	assert.Contains(t, stdout, "Batch 2:")
	assert.Contains(t, stdout, "advisory")
	assert.Contains(t, stdout, "(after lint)")
}

func TestDisplayVerdict(t *testing.T) {
	v := &models.FinalVerdict{
		SuiteName:        "s",
		Overall:          models.OverallFail,
		BlockingFailures: []string{"lint"},
		AdvisoryFailures: []string{"spellcheck"},
		Results: map[string]*models.CheckResult{
			"lint": {
				CheckName:   "lint",
				FinalStatus: models.StatusFailure,
				Blocking:    true,
				Attempts: []models.CheckRun{
					{Status: models.StatusFailure, ExitCode: 1, Output: "main.go:3: unused variable\n"},
				},
			},
			"spellcheck": {
				CheckName:   "spellcheck",
				FinalStatus: models.StatusFailure,
				Blocking:    false,
				Attempts:    []models.CheckRun{{Status: models.StatusFailure, ExitCode: 2}},
			},
		},
		DurationMs: 1234,
	}

	var buf bytes.Buffer
	displayVerdict(&buf, v)
	out := buf.String()

	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "blocking failures: lint")
	assert.Contains(t, out, "Advisory failures (non-blocking): spellcheck")
	assert.Contains(t, out, "unused variable")

	// A buffer is not a terminal, so the verdict lines stay plain ASCII.
	assert.NotContains(t, out, "❌")
	assert.NotContains(t, out, "⚠️")
}

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 3))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250))
	assert.Equal(t, "2.5s", formatDuration(2500))
}
