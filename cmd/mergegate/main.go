package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitPass    = 0 // All blocking checks passed
	ExitNoMerge = 1 // Verdict was Fail or Incomplete
	ExitError   = 2 // Configuration or runtime error
)

// VerdictFailureError indicates that the cycle ran to aggregation, but the
// verdict does not permit a merge.
type VerdictFailureError struct {
	Message string
}

func (e *VerdictFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var verdictErr *VerdictFailureError
		if errors.As(err, &verdictErr) {
			os.Exit(ExitNoMerge)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
