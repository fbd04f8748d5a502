package report

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/mergegate/mergegate/internal/models"
)

// JUnit XML schema types, for CI systems that ingest JUnit reports.

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation cycle.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one check.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a check that ran and failed.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a check that could not be executed.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// JUnitSkipped marks a check that was cancelled or skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitOptions configures the JUnit sink.
type JUnitOptions struct {
	Path string `mapstructure:"path"`
}

// JUnitSink writes the verdict as JUnit XML.
type JUnitSink struct {
	path string
}

// NewJUnitSink validates options and returns the sink.
func NewJUnitSink(opts JUnitOptions) (*JUnitSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &JUnitSink{path: opts.Path}, nil
}

func (s *JUnitSink) Name() string { return "junit" }

func (s *JUnitSink) Publish(_ context.Context, v *models.FinalVerdict) error {
	suites := ConvertToJUnit(v)
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	output := append([]byte(xml.Header), data...)
	if err := os.WriteFile(s.path, output, 0o644); err != nil {
		return fmt.Errorf("writing JUnit file: %w", err)
	}
	return nil
}

// ConvertToJUnit maps a FinalVerdict to JUnit XML structures. Check names
// are sorted so the output is deterministic.
func ConvertToJUnit(v *models.FinalVerdict) *JUnitTestSuites {
	_, failed, errored, cancelled := v.Counts()
	durationSec := float64(v.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      v.SuiteName,
		Tests:     len(v.Results),
		Failures:  failed,
		Errors:    errored,
		Skipped:   cancelled,
		Time:      durationSec,
		Timestamp: v.StartTime.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "overall", Value: string(v.Overall)},
		},
	}

	names := make([]string, 0, len(v.Results))
	for name := range v.Results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		suite.TestCases = append(suite.TestCases, convertCheckResult(v.SuiteName, v.Results[name]))
	}

	return &JUnitTestSuites{
		Tests:      len(v.Results),
		Failures:   failed,
		Errors:     errored,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertCheckResult(suiteName string, res *models.CheckResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      res.CheckName,
		Classname: suiteName,
		Time:      res.TotalDuration.Seconds(),
	}

	switch res.FinalStatus {
	case models.StatusFailure, models.StatusTimedOut:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: %s after %d attempt(s)", res.CheckName, res.FinalStatus, len(res.Attempts)),
			Type:    "CheckFailure",
			Body:    res.OutputTail(50),
		}
	case models.StatusErrored:
		msg := "execution error"
		if last := res.LastRun(); last != nil && last.ErrorMsg != "" {
			msg = last.ErrorMsg
		}
		tc.Error = &JUnitError{Message: msg, Type: "LaunchError"}
	case models.StatusCancelled:
		msg := "cycle aborted before resolution"
		if res.Skipped {
			msg = res.SkippedReason
		}
		tc.Skipped = &JUnitSkipped{Message: msg}
	}

	return tc
}
