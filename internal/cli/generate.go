package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/simserve/simserve/internal/parser"
)

// GenerateConfig captures the options for the generate command.
type GenerateConfig struct {
	Input   string
	Out     string
	OpenAPI bool
	Force   bool
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a runnable Flask module from annotated source",
		Long: "Generate a complete Flask server module from @endpoint-annotated source. " +
			"With --openapi, an OpenAPI 3 document describing the endpoints is emitted instead.",
		Example: strings.TrimSpace(`  simserve generate --input backend.py --out app.py
  simserve generate --input backend.py --openapi`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &GenerateConfig{}
			var err error
			if cfg.Input, err = cmd.Flags().GetString("input"); err != nil {
				return err
			}
			if cfg.Out, err = cmd.Flags().GetString("out"); err != nil {
				return err
			}
			if cfg.OpenAPI, err = cmd.Flags().GetBool("openapi"); err != nil {
				return err
			}
			if cfg.Force, err = cmd.Flags().GetBool("force"); err != nil {
				return err
			}
			return generateRunner(cmd, cfg)
		},
	}

	cmd.Flags().String("input", "", "Path to the annotated source file")
	cmd.Flags().String("out", "", "Output file (stdout when omitted)")
	cmd.Flags().Bool("openapi", false, "Emit an OpenAPI 3 document instead of Flask code")
	cmd.Flags().Bool("force", false, "Overwrite the output file if it already exists")
	return cmd
}

func runGenerate(cmd *cobra.Command, cfg *GenerateConfig) error {
	source, err := readSource(cfg.Input)
	if err != nil {
		return err
	}

	// Errors are advisory here: generation is always best-effort, so a broken
	// backend still produces something to look at.
	report := parser.ValidateCode(source)
	for _, e := range report.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
	}

	var rendered string
	if cfg.OpenAPI {
		doc := parser.OpenAPIDocument(report.Parsed)
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("generate: encode openapi document: %w", err)
		}
		rendered = string(raw) + "\n"
	} else {
		rendered = parser.GenerateFlaskApp(report.Parsed)
	}

	out := strings.TrimSpace(cfg.Out)
	if out == "" {
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	}
	return writeFileAtomic(out, rendered, cfg.Force)
}

// writeFileAtomic writes via temp + rename so a failed write never leaves a
// truncated output file behind.
func writeFileAtomic(path, content string, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("generate: resolve output path: %w", err)
	}
	if st, err := os.Stat(absPath); err == nil && !force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("generate: %q already exists (use --force to overwrite)", absPath))
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("generate: cannot create parent directory: %v", err))
	}
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("generate: cannot write temp file: %v", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("generate: cannot place file at %s: %v", absPath, err))
	}
	return nil
}
