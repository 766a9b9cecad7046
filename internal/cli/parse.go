package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simserve/simserve/internal/parser"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse an annotated source file and print the extracted endpoints",
		Example: strings.TrimSpace(`  simserve parse --input backend.py
  simserve parse --input backend.py --format json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := cmd.Flags().GetString("input")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			source, err := readSource(input)
			if err != nil {
				return err
			}
			return runParse(cmd, source, format)
		},
	}

	cmd.Flags().String("input", "", "Path to the annotated source file")
	cmd.Flags().String("format", "summary", "Output format (summary|json|openapi)")
	return cmd
}

func runParse(cmd *cobra.Command, source, format string) error {
	pr := parser.Parse(source)

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pr)
	case "openapi":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(parser.OpenAPIDocument(pr))
	case "summary", "":
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Endpoints: %d\n", len(pr.Endpoints))
		for _, ep := range pr.Endpoints {
			fmt.Fprintf(out, "  %s %s -> %s(%d params)\n",
				strings.Join(ep.Methods, ","), ep.Route, ep.Name, len(ep.Parameters))
		}
		fmt.Fprintf(out, "Helpers: %d\n", len(pr.Helpers))
		for _, h := range pr.Helpers {
			fmt.Fprintf(out, "  %s\n", h.Name)
		}
		for _, d := range pr.Diagnostics {
			fmt.Fprintf(out, "Diagnostic: %s\n", d)
		}
		return nil
	default:
		return newUsageError(fmt.Sprintf("parse: unknown format %q (summary|json|openapi)", format))
	}
}

// readSource loads the input file, or stdin when the path is "-".
func readSource(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", newUsageError("an --input file is required")
	}
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", newUsageError(fmt.Sprintf("cannot read %q: %v", path, err))
	}
	return string(raw), nil
}
