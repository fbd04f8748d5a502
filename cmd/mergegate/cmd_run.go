package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mergegate/mergegate/internal/models"
	"github.com/mergegate/mergegate/internal/orchestrator"
	"github.com/mergegate/mergegate/internal/registry"
	"github.com/mergegate/mergegate/internal/report"
	"github.com/mergegate/mergegate/internal/validation"
)

var (
	checkFilters []string
	concurrency  int
	deadline     time.Duration
	outputPath   string
	junitPath    string
	artifactPath string
	format       string
	verbose      bool
	noSinks      bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <checks.yaml>",
		Short: "Run an evaluation cycle and decide the merge",
		Long: `Run an evaluation cycle from a suite file.

The suite file defines the checks, their dependencies, timeouts, retry
policies, and report sinks. The command exits 0 when the verdict is Pass
and nonzero otherwise, so it can gate a merge directly.`,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE:          runCommandE,
	}

	cmd.Flags().StringArrayVar(&checkFilters, "check", nil, "Run only checks matching this name glob, plus their dependencies (can be repeated)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrently running checks (overrides suite config)")
	cmd.Flags().DurationVar(&deadline, "deadline", 0, "Overall cycle deadline, e.g. 10m (overrides suite config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the verdict as JSON to this file")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Write the verdict as JUnit XML to this file")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "Write the verdict as a gzip-compressed JSON artifact to this file")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text | json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output with hook and retry detail")
	cmd.Flags().BoolVar(&noSinks, "no-sinks", false, "Skip the sinks configured in the suite file")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	suitePath := args[0]

	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", format)
	}

	// Schema validation first: field-level mistakes produce better messages
	// than semantic validation downstream.
	schemaErrs, err := validation.ValidateSuiteFile(suitePath)
	if err != nil {
		return err
	}
	if len(schemaErrs) > 0 {
		for _, e := range schemaErrs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  ❌  %s\n", e)
		}
		return fmt.Errorf("suite %s failed schema validation (%d error(s))", suitePath, len(schemaErrs))
	}

	suite, err := registry.Load(suitePath)
	if err != nil {
		return fmt.Errorf("loading suite: %w", err)
	}

	selected, err := suite.MatchChecks(checkFilters)
	if err != nil {
		return err
	}
	if len(selected) > 0 && verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Check filters matched: %s\n\n", strings.Join(selected, ", "))
	}

	opts := []orchestrator.Option{
		orchestrator.WithSelection(selected...),
		orchestrator.WithVerbose(verbose),
	}
	if concurrency > 0 {
		opts = append(opts, orchestrator.WithConcurrency(concurrency))
	}
	if deadline > 0 {
		opts = append(opts, orchestrator.WithDeadline(deadline))
	}

	orch := orchestrator.New(suite, opts...)

	reporter := newConsoleReporter(cmd.OutOrStdout(), verbose)
	if format == "text" {
		orch.OnProgress(reporter.Listen)
	}

	v, err := orch.Evaluate(cmd.Context())
	if err != nil {
		return err
	}

	if format == "json" {
		data, err := report.MarshalVerdict(v)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
	} else {
		displayVerdict(cmd.OutOrStdout(), v)
	}

	if err := publishSinks(cmd, suite, v); err != nil {
		return err
	}

	if v.Overall != models.OverallPass {
		return &VerdictFailureError{
			Message: fmt.Sprintf("verdict: %s (blocking failures: %s)", v.Overall, joinOrNone(v.BlockingFailures)),
		}
	}
	return nil
}

// publishSinks builds the suite's sinks plus any flag-driven ones and
// publishes the verdict. Sink construction errors are configuration errors;
// publish errors are logged by MultiSink and never fail the run.
func publishSinks(cmd *cobra.Command, suite *registry.Suite, v *models.FinalVerdict) error {
	cfgs := suite.Sinks
	if noSinks {
		cfgs = nil
	}
	multi, err := report.Build(cfgs)
	if err != nil {
		return err
	}

	if outputPath != "" {
		sink, err := report.NewJSONFileSink(report.JSONFileOptions{Path: outputPath})
		if err != nil {
			return err
		}
		multi.Add(sink)
	}
	if junitPath != "" {
		sink, err := report.NewJUnitSink(report.JUnitOptions{Path: junitPath})
		if err != nil {
			return err
		}
		multi.Add(sink)
	}
	if artifactPath != "" {
		sink, err := report.NewArtifactSink(report.ArtifactOptions{Path: artifactPath})
		if err != nil {
			return err
		}
		multi.Add(sink)
	}

	if multi.Len() > 0 {
		multi.Publish(cmd.Context(), v)
	}
	return nil
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
