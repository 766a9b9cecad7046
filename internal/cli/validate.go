package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simserve/simserve/internal/runtime"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate source without starting a server",
		Long: "Validate annotated or conventional Flask source. Annotated source is fully " +
			"parsed; conventional source gets structural checks. The command exits non-zero " +
			"when validation fails.",
		Example: "  simserve validate --input backend.py",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			source, err := readSource(input)
			if err != nil {
				return err
			}
			return runValidate(cmd, source, asJSON)
		},
	}

	cmd.Flags().String("input", "", "Path to the source file")
	cmd.Flags().Bool("json", false, "Emit the full validation report as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, source string, asJSON bool) error {
	report := runtime.ValidateSource(source)
	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "warning: %s\n", w)
		}
		for _, e := range report.Errors {
			fmt.Fprintf(out, "error: %s\n", e)
		}
		if report.Valid {
			fmt.Fprintln(out, "valid")
		}
	}

	if !report.Valid {
		return fmt.Errorf("validate: %s", strings.Join(report.Errors, "; "))
	}
	return nil
}
