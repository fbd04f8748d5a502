package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mergegate/mergegate/internal/registry"
	"github.com/mergegate/mergegate/internal/validation"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <checks.yaml>",
		Short: "Validate a suite file without running anything",
		Long: `Validate a suite file against the schema and the semantic rules
(unique names, known dependencies, acyclic graph) without running any checks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suitePath := args[0]

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
				return err
			}

			// Resolving the full order exercises the same path run uses.
			batches, err := suite.ExecutionOrder()
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid: %d check(s) in %d batch(es)\n",
				suitePath, len(suite.Checks), len(batches))
			return nil
		},
	}
}
