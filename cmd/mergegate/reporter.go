package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/mergegate/mergegate/internal/models"
	"github.com/mergegate/mergegate/internal/orchestrator"
)

// consoleReporter renders progress events as they arrive. Events come from
// multiple runner goroutines, so writes are serialized.
type consoleReporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
	isTTY   bool
}

func newConsoleReporter(w io.Writer, verbose bool) *consoleReporter {
	return &consoleReporter{w: w, verbose: verbose, isTTY: writerIsTTY(w)}
}

func writerIsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Listen implements orchestrator.ProgressListener.
func (r *consoleReporter) Listen(event orchestrator.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.EventType {
	case orchestrator.EventCycleStart:
		fmt.Fprintf(r.w, "Running %d check(s) in %d batch(es)\n", event.TotalChecks, event.TotalBatches)
	case orchestrator.EventBatchStart:
		fmt.Fprintf(r.w, "\nBatch %d/%d\n", event.BatchNum, event.TotalBatches)
	case orchestrator.EventCheckStart:
		if r.verbose {
			fmt.Fprintf(r.w, "  %s %s started\n", r.icon("▶️", ">"), event.CheckName)
		}
	case orchestrator.EventCheckComplete:
		line := fmt.Sprintf("  %s %s (%s", r.statusIcon(event.Status), event.CheckName, formatDuration(event.DurationMs))
		if event.Attempts > 1 {
			line += fmt.Sprintf(", %d attempts", event.Attempts)
		}
		fmt.Fprintln(r.w, line+")")
	case orchestrator.EventCheckSkipped:
		fmt.Fprintf(r.w, "  %s %s skipped: %s\n", r.statusIcon(models.StatusCancelled), event.CheckName, event.Reason)
	case orchestrator.EventCycleComplete:
		// The verdict table follows separately.
	}
}

// icon degrades to plain ASCII when the writer is not a terminal, so logs
// captured by CI stay readable.
func (r *consoleReporter) icon(emoji, plain string) string {
	if r.isTTY {
		return emoji
	}
	return plain
}

func (r *consoleReporter) statusIcon(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return r.icon("✅", "PASS")
	case models.StatusFailure:
		return r.icon("❌", "FAIL")
	case models.StatusTimedOut:
		return r.icon("⏱️", "TIME")
	case models.StatusErrored:
		return r.icon("💥", "ERR ")
	case models.StatusCancelled:
		return r.icon("⏭️", "SKIP")
	default:
		return "  "
	}
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return fmt.Sprintf("%dms", ms)
	}
	return d.Round(100 * time.Millisecond).String()
}

// displayVerdict prints the per-check table and the overall verdict line.
func displayVerdict(w io.Writer, v *models.FinalVerdict) {
	names := make([]string, 0, len(v.Results))
	nameWidth := len("CHECK")
	for name := range v.Results {
		names = append(names, name)
		if rw := runewidth.StringWidth(name); rw > nameWidth {
			nameWidth = rw
		}
	}
	sort.Strings(names)

	fmt.Fprintf(w, "\n%s  %-10s  %-8s  %s\n", padRight("CHECK", nameWidth), "STATUS", "MODE", "DETAIL")
	for _, name := range names {
		res := v.Results[name]
		mode := "blocking"
		if !res.Blocking {
			mode = "advisory"
		}
		fmt.Fprintf(w, "%s  %-10s  %-8s  %s\n",
			padRight(name, nameWidth), string(res.FinalStatus), mode, resultDetail(res))
	}

	for _, name := range v.BlockingFailures {
		res := v.Results[name]
		if res == nil || res.Skipped {
			continue
		}
		if tail := res.OutputTail(20); tail != "" {
			fmt.Fprintf(w, "\n--- %s output (tail) ---\n%s\n", name, tail)
		}
	}

	succeeded, failed, errored, cancelled := v.Counts()
	fmt.Fprintf(w, "\n%d succeeded, %d failed, %d errored, %d cancelled (%s)\n",
		succeeded, failed, errored, cancelled, formatDuration(v.DurationMs))

	// Same degradation as the progress lines: plain output off a terminal.
	icon := func(emoji string) string {
		if writerIsTTY(w) {
			return emoji + " "
		}
		return ""
	}
	switch v.Overall {
	case models.OverallPass:
		fmt.Fprintf(w, "%sVerdict: PASS (merge permitted)\n", icon("✅"))
	case models.OverallFail:
		fmt.Fprintf(w, "%sVerdict: FAIL (blocking failures: %s)\n", icon("❌"), strings.Join(v.BlockingFailures, ", "))
	case models.OverallIncomplete:
		fmt.Fprintf(w, "%sVerdict: INCOMPLETE (cycle ended before all checks resolved)\n", icon("⏱️"))
	}
	if len(v.AdvisoryFailures) > 0 {
		fmt.Fprintf(w, "%sAdvisory failures (non-blocking): %s\n", icon("⚠️"), strings.Join(v.AdvisoryFailures, ", "))
	}
}

func resultDetail(res *models.CheckResult) string {
	if res.Skipped {
		return res.SkippedReason
	}
	last := res.LastRun()
	if last == nil {
		return "never ran"
	}
	detail := formatDuration(res.TotalDuration.Milliseconds())
	if len(res.Attempts) > 1 {
		detail += fmt.Sprintf(", %d attempts", len(res.Attempts))
	}
	if last.Status == models.StatusFailure {
		detail += fmt.Sprintf(", exit %d", last.ExitCode)
	}
	if last.Status == models.StatusErrored && last.ErrorMsg != "" {
		detail += ", " + last.ErrorMsg
	}
	return detail
}

// padRight pads with spaces to the target display width. Plain %-*s counts
// bytes, which misaligns names containing wide runes.
func padRight(s string, width int) string {
	gap := width - runewidth.StringWidth(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
