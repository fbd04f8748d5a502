// Package runner executes a single check as an isolated subprocess, enforces
// its deadline, and applies the descriptor's retry policy.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/mergegate/mergegate/internal/models"
	"github.com/mergegate/mergegate/internal/registry"
)

const (
	// DefaultMaxOutputBytes bounds the captured combined output per attempt.
	DefaultMaxOutputBytes = 64 * 1024
	// DefaultGracePeriod is how long a timed-out process gets between the
	// termination signal and the forced kill.
	DefaultGracePeriod = 5 * time.Second
)

// Runner executes check commands. The zero value is usable.
type Runner struct {
	// MaxOutputBytes overrides DefaultMaxOutputBytes when positive.
	MaxOutputBytes int
	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration
	// Env, when non-nil, replaces the inherited environment of every
	// check process.
	Env []string
}

func (r *Runner) maxOutput() int {
	if r.MaxOutputBytes > 0 {
		return r.MaxOutputBytes
	}
	return DefaultMaxOutputBytes
}

func (r *Runner) gracePeriod() time.Duration {
	if r.GracePeriod > 0 {
		return r.GracePeriod
	}
	return DefaultGracePeriod
}

// Run executes one attempt of the described command, bounded by the
// descriptor's timeout. The returned CheckRun is finalized and immutable.
func (r *Runner) Run(ctx context.Context, desc *registry.CheckDescriptor, attempt int) models.CheckRun {
	run := models.CheckRun{
		CheckName: desc.Name,
		Attempt:   attempt,
		StartTime: time.Now(),
	}

	attemptCtx, cancel := context.WithTimeout(ctx, desc.Timeout())
	defer cancel()

	output := newTailBuffer(r.maxOutput())

	//nolint:gosec // check commands come from the user's own suite config
	cmd := exec.CommandContext(attemptCtx, desc.Command[0], desc.Command[1:]...)
	cmd.Dir = desc.WorkingDirectory
	cmd.Stdout = output
	cmd.Stderr = output
	if r.Env != nil {
		cmd.Env = r.Env
	}
	// On cancellation or timeout, ask nicely first; WaitDelay forces a kill
	// if the process ignores the signal past the grace period.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = r.gracePeriod()

	err := cmd.Start()
	if err != nil {
		run.EndTime = time.Now()
		// Start fails with the context's error when the cycle was already
		// aborted before this check got a slot. That check never resolved,
		// so it is Cancelled, not a launch problem.
		if ctx.Err() != nil {
			run.Status = models.StatusCancelled
			run.ErrorMsg = "cancelled"
			return run
		}
		// The command never launched: missing executable, permission
		// denied. This is a configuration problem, never retried.
		run.Status = models.StatusErrored
		run.ErrorMsg = err.Error()
		return run
	}

	waitErr := cmd.Wait()
	run.EndTime = time.Now()
	run.Output = output.String()
	run.Truncated = output.Truncated()
	run.ExitCode = cmd.ProcessState.ExitCode()

	switch {
	// The parent context covers the whole cycle; its expiry means the cycle
	// was aborted, not that this check was too slow.
	case ctx.Err() != nil:
		run.Status = models.StatusCancelled
		run.ErrorMsg = "cancelled"
	case attemptCtx.Err() == context.DeadlineExceeded:
		run.Status = models.StatusTimedOut
		run.ErrorMsg = "deadline exceeded after " + desc.Timeout().String()
	case waitErr == nil:
		run.Status = models.StatusSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			run.Status = models.StatusFailure
		} else {
			run.Status = models.StatusErrored
			run.ErrorMsg = waitErr.Error()
		}
	}

	return run
}

// RunWithRetries executes the check until it succeeds, exhausts its retry
// budget, or hits a terminal status. Failure and TimedOut attempts are
// retried with the descriptor's backoff; Errored and Cancelled are terminal.
func (r *Runner) RunWithRetries(ctx context.Context, desc *registry.CheckDescriptor) models.CheckResult {
	result := models.CheckResult{
		CheckName: desc.Name,
		Blocking:  desc.IsBlocking(),
	}
	start := time.Now()

	maxAttempts := desc.MaxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		run := r.Run(ctx, desc, attempt)
		result.Attempts = append(result.Attempts, run)
		result.FinalStatus = run.Status

		if run.Status == models.StatusSuccess || !run.Status.Retriable() {
			break
		}
		if attempt == maxAttempts {
			break
		}

		slog.Debug("retrying check",
			"check", desc.Name,
			"attempt", attempt,
			"status", run.Status,
			"delay", desc.RetryDelay(attempt+1))

		if !sleepCtx(ctx, desc.RetryDelay(attempt+1)) {
			result.FinalStatus = models.StatusCancelled
			break
		}
	}

	result.TotalDuration = time.Since(start)
	return result
}

// sleepCtx waits for the delay, returning false if the context is cancelled
// first.
func sleepCtx(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
