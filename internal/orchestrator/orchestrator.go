// Package orchestrator schedules check execution across dependency batches,
// bounded by a concurrency limit and an overall cycle deadline, and hands
// the completed result set to the aggregator.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mergegate/mergegate/internal/hooks"
	"github.com/mergegate/mergegate/internal/models"
	"github.com/mergegate/mergegate/internal/registry"
	"github.com/mergegate/mergegate/internal/runner"
	"github.com/mergegate/mergegate/internal/verdict"
)

// DefaultConcurrency bounds concurrently running checks when neither the
// suite nor the caller sets a limit.
const DefaultConcurrency = 4

// EventType identifies a progress event.
type EventType string

const (
	EventCycleStart    EventType = "cycle_start"
	EventBatchStart    EventType = "batch_start"
	EventCheckStart    EventType = "check_start"
	EventCheckComplete EventType = "check_complete"
	EventCheckSkipped  EventType = "check_skipped"
	EventCycleComplete EventType = "cycle_complete"
)

// ProgressEvent is delivered to registered listeners as the cycle advances.
type ProgressEvent struct {
	EventType    EventType
	CheckName    string
	BatchNum     int
	TotalBatches int
	TotalChecks  int
	Status       models.Status
	Attempts     int
	DurationMs   int64
	Reason       string
}

// ProgressListener receives progress updates. Listeners are called from the
// goroutine that produced the event and must not block.
type ProgressListener func(event ProgressEvent)

// Orchestrator runs one evaluation cycle over a suite.
type Orchestrator struct {
	suite       *registry.Suite
	runner      *runner.Runner
	selected    []string
	concurrency int
	deadline    time.Duration
	hookRunner  *hooks.Runner
	verbose     bool

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSelection restricts the cycle to the named checks and their
// transitive dependencies.
func WithSelection(names ...string) Option {
	return func(o *Orchestrator) { o.selected = names }
}

// WithConcurrency overrides the suite's concurrency limit.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithDeadline overrides the suite's overall cycle deadline.
func WithDeadline(d time.Duration) Option {
	return func(o *Orchestrator) { o.deadline = d }
}

// WithRunner substitutes the check runner, mainly for tests.
func WithRunner(r *runner.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithVerbose enables hook output passthrough.
func WithVerbose(v bool) Option {
	return func(o *Orchestrator) { o.verbose = v }
}

// New creates an orchestrator for one suite.
func New(suite *registry.Suite, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		suite:       suite,
		runner:      &runner.Runner{},
		concurrency: suite.Concurrency,
		deadline:    suite.Deadline(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	o.hookRunner = &hooks.Runner{Verbose: o.verbose}
	return o
}

// OnProgress registers a progress listener.
func (o *Orchestrator) OnProgress(listener ProgressListener) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()
	o.listeners = append(o.listeners, listener)
}

func (o *Orchestrator) notifyProgress(event ProgressEvent) {
	o.progressMu.Lock()
	listeners := make([]ProgressListener, len(o.listeners))
	copy(listeners, o.listeners)
	o.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Evaluate runs the cycle and returns the aggregated verdict. Individual
// check failures never surface as errors; they are captured in the verdict.
// An error return means the cycle could not be conducted at all (bad
// selection, before_run hook failure).
func (o *Orchestrator) Evaluate(ctx context.Context) (*models.FinalVerdict, error) {
	batches, err := o.suite.ExecutionOrder(o.selected...)
	if err != nil {
		return nil, fmt.Errorf("resolving execution order: %w", err)
	}

	if len(o.suite.Hooks.BeforeRun) > 0 {
		if err := o.hookRunner.Execute(ctx, "before_run", o.suite.Hooks.BeforeRun); err != nil {
			return nil, fmt.Errorf("before_run hook failed: %w", err)
		}
	}
	defer func() {
		if len(o.suite.Hooks.AfterRun) > 0 {
			if err := o.hookRunner.Execute(ctx, "after_run", o.suite.Hooks.AfterRun); err != nil {
				fmt.Printf("[WARN] after_run hook error: %v\n", err)
			}
		}
	}()

	cycleCtx := ctx
	cancel := context.CancelFunc(func() {})
	if o.deadline > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, o.deadline)
	}
	defer cancel()

	totalChecks := 0
	for _, batch := range batches {
		totalChecks += len(batch)
	}

	start := time.Now()
	o.notifyProgress(ProgressEvent{
		EventType:    EventCycleStart,
		TotalBatches: len(batches),
		TotalChecks:  totalChecks,
	})

	// One CheckResult materializes per descriptor exactly once per cycle.
	// Goroutines write disjoint keys; the mutex covers the map itself.
	results := make(map[string]*models.CheckResult, totalChecks)
	var resultsMu sync.Mutex

	for batchNum, batch := range batches {
		o.notifyProgress(ProgressEvent{
			EventType:    EventBatchStart,
			BatchNum:     batchNum + 1,
			TotalBatches: len(batches),
		})

		var group errgroup.Group
		group.SetLimit(o.concurrency)

		for _, desc := range batch {
			if res, skipped := o.resolveWithoutRunning(cycleCtx, desc, results, &resultsMu); res != nil {
				resultsMu.Lock()
				results[desc.Name] = res
				resultsMu.Unlock()

				event := ProgressEvent{
					EventType: EventCheckSkipped,
					CheckName: desc.Name,
					Status:    models.StatusCancelled,
					Reason:    res.SkippedReason,
				}
				if !skipped {
					event.Reason = "cycle deadline elapsed"
				}
				o.notifyProgress(event)
				continue
			}

			group.Go(func() error {
				o.notifyProgress(ProgressEvent{
					EventType: EventCheckStart,
					CheckName: desc.Name,
					BatchNum:  batchNum + 1,
				})

				res := o.runner.RunWithRetries(cycleCtx, desc)

				resultsMu.Lock()
				results[desc.Name] = &res
				resultsMu.Unlock()

				o.notifyProgress(ProgressEvent{
					EventType:  EventCheckComplete,
					CheckName:  desc.Name,
					Status:     res.FinalStatus,
					Attempts:   len(res.Attempts),
					DurationMs: res.TotalDuration.Milliseconds(),
				})
				return nil
			})
		}

		// Batch completion barrier: a later batch never starts until every
		// descriptor in this one has a terminal result.
		_ = group.Wait()
	}

	elapsed := time.Since(start)
	v := verdict.Aggregate(o.suite.Name, results, start, elapsed)

	o.notifyProgress(ProgressEvent{
		EventType:  EventCycleComplete,
		Reason:     string(v.Overall),
		DurationMs: elapsed.Milliseconds(),
	})

	return v, nil
}

// resolveWithoutRunning decides whether a descriptor can be resolved without
// spawning its process: either the cycle deadline has elapsed, or a blocking
// dependency did not succeed. The bool result reports dependency skipping as
// opposed to deadline cancellation.
func (o *Orchestrator) resolveWithoutRunning(cycleCtx context.Context, desc *registry.CheckDescriptor, results map[string]*models.CheckResult, mu *sync.Mutex) (*models.CheckResult, bool) {
	if cycleCtx.Err() != nil {
		return &models.CheckResult{
			CheckName:   desc.Name,
			FinalStatus: models.StatusCancelled,
			Blocking:    desc.IsBlocking(),
		}, false
	}

	mu.Lock()
	defer mu.Unlock()
	for _, depName := range desc.DependsOn {
		dep, ok := o.suite.Lookup(depName)
		if !ok {
			continue
		}
		// Only blocking dependencies gate their dependents; an advisory
		// dependency's failure is reported but does not stop anything.
		if !dep.IsBlocking() {
			continue
		}
		depRes, resolved := results[depName]
		if resolved && depRes.FinalStatus != models.StatusSuccess {
			return &models.CheckResult{
				CheckName:     desc.Name,
				FinalStatus:   models.StatusCancelled,
				Blocking:      desc.IsBlocking(),
				Skipped:       true,
				SkippedReason: fmt.Sprintf("dependency %q resolved to %s", depName, depRes.FinalStatus),
			}, true
		}
	}
	return nil, false
}
