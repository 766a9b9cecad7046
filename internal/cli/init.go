package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample simserve configuration file",
		Long:  "Scaffold a commented simserve configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd, &InitConfig{OutputPath: out, Force: force})
		},
	}

	cmd.Flags().String("out", "simserve.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(cmd *cobra.Command, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "simserve.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := writeFileAtomic(absPath, content, cfg.Force); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# simserve configuration (YAML)
# All fields are optional. Environment variables with the SIMSERVE_ prefix
# override config values (e.g. SIMSERVE_RUNTIME_BASE_PORT=6000).

runtime:
  # First port handed out when no explicit port is requested.
  base_port: 5000

  # Execution backend URL. Leave empty to always simulate.
  # delegated_url: http://localhost:8080

  # Per-request timeout against the execution backend, in milliseconds.
  request_timeout: 10000

  # Number of parsed sources kept in the in-memory cache.
  parse_cache_size: 64

mock:
  # Simulated latency window for intercepted requests, in milliseconds.
  latency_min_ms: 100
  latency_max_ms: 300

logging:
  # Log level (debug|info|warn|error) and format (json|console).
  level: info
  format: json
`
