package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mergegate/mergegate/internal/validation"
	"github.com/mergegate/mergegate/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var outPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [suite-name]",
		Short: "Interactively scaffold a checks.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			initialName := ""
			if len(args) == 1 {
				initialName = args[0]
			}

			if !force {
				if _, err := os.Stat(outPath); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
				}
			}

			spec, err := wizard.RunSuiteWizard(cmd.InOrStdin(), cmd.OutOrStdout(), initialName)
			if err != nil {
				return err
			}

			content, err := wizard.GenerateSuiteYAML(spec)
			if err != nil {
				return err
			}

			// The scaffold must pass its own schema; a template regression
			// should fail here, not on the user's first run.
			if errs := validation.ValidateSuiteBytes([]byte(content)); len(errs) > 0 {
				return fmt.Errorf("generated suite is invalid: %s", errs[0])
			}

			if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✅ Wrote %s with %d check(s). Edit the commands, then run:\n  mergegate run %s\n",
				outPath, len(spec.Checks), outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "checks.yaml", "Where to write the suite file")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
