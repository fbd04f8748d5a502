package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/mergegate/mergegate/internal/registry"
)

func newListCommand() *cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "list <checks.yaml>",
		Short: "Show the execution plan for a suite",
		Long: `Show the checks in a suite grouped into execution batches, with their
mode, timeout, retry policy, and dependencies. No checks are run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, err := registry.Load(args[0])
			if err != nil {
				return err
			}

			selected, err := suite.MatchChecks(filters)
			if err != nil {
				return err
			}

			batches, err := suite.ExecutionOrder(selected...)
			if err != nil {
				return err
			}

			printPlan(cmd, suite, batches)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&filters, "check", nil, "Restrict the plan to checks matching this name glob, plus their dependencies (can be repeated)")
	return cmd
}

func printPlan(cmd *cobra.Command, suite *registry.Suite, batches [][]*registry.CheckDescriptor) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Suite: %s\n", suite.Name)
	if suite.Description != "" {
		fmt.Fprintf(out, "%s\n", suite.Description)
	}
	fmt.Fprintln(out)

	nameWidth := len("CHECK")
	for _, batch := range batches {
		for _, d := range batch {
			if w := runewidth.StringWidth(d.Name); w > nameWidth {
				nameWidth = w
			}
		}
	}

	for i, batch := range batches {
		fmt.Fprintf(out, "Batch %d:\n", i+1)
		for _, d := range batch {
			mode := "blocking"
			if !d.IsBlocking() {
				mode = "advisory"
			}
			retries := "no retries"
			if d.MaxRetries > 0 {
				retries = strconv.Itoa(d.MaxRetries) + " retries"
			}
			line := fmt.Sprintf("  %s  %-8s  %-6s  %s",
				padRight(d.Name, nameWidth), mode, d.Timeout(), retries)
			if len(d.DependsOn) > 0 {
				line += "  (after " + strings.Join(d.DependsOn, ", ") + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
}
