// Package verdict combines the resolved check results of one evaluation
// cycle into a single merge decision.
package verdict

import (
	"sort"
	"time"

	"github.com/mergegate/mergegate/internal/models"
)

// Aggregate partitions failing results by their blocking flag and computes
// the overall outcome. It is a pure function of its inputs: calling it twice
// with the same results yields identical verdicts, so a verdict can be
// re-derived from persisted results without re-running any check.
//
// A check cancelled because a dependency failed counts as a failure of its
// partition: the dependency made its outcome unreachable, so the merge must
// not proceed on it. A check cancelled because the cycle was aborted leaves
// its true status unknown and renders the cycle Incomplete instead.
func Aggregate(suiteName string, results map[string]*models.CheckResult, start time.Time, elapsed time.Duration) *models.FinalVerdict {
	blocking := []string{}
	advisory := []string{}
	unresolved := false

	for name, res := range results {
		switch res.FinalStatus {
		case models.StatusFailure, models.StatusTimedOut, models.StatusErrored:
			if res.Blocking {
				blocking = append(blocking, name)
			} else {
				advisory = append(advisory, name)
			}
		case models.StatusCancelled:
			if res.Skipped {
				if res.Blocking {
					blocking = append(blocking, name)
				} else {
					advisory = append(advisory, name)
				}
			} else {
				unresolved = true
			}
		}
	}

	sort.Strings(blocking)
	sort.Strings(advisory)

	overall := models.OverallPass
	switch {
	case len(blocking) > 0:
		overall = models.OverallFail
	case unresolved:
		overall = models.OverallIncomplete
	}

	return &models.FinalVerdict{
		SuiteName:        suiteName,
		Overall:          overall,
		BlockingFailures: blocking,
		AdvisoryFailures: advisory,
		Results:          results,
		StartTime:        start,
		DurationMs:       elapsed.Milliseconds(),
	}
}
