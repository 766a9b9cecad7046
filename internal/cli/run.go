package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/simserve/simserve/internal/config"
	"github.com/simserve/simserve/internal/execservice"
	"github.com/simserve/simserve/internal/logger"
	"github.com/simserve/simserve/internal/mocknet"
	"github.com/simserve/simserve/internal/runtime"
)

// RunConfig captures the options for the run command.
type RunConfig struct {
	Input      string
	Port       int
	RoutesFile string
	Probe      string
	ExecURL    string
	Verbose    bool
}

var runRunner = runRun

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a server from a source file",
		Long: "Start a server from annotated or conventional Flask source. Execution is " +
			"delegated to the configured backend when reachable and simulated otherwise. " +
			"The command serves until interrupted, or probes one path and exits when " +
			"--probe is given.",
		Example: strings.TrimSpace(`  simserve run --input backend.py --port 5000
  simserve run --input backend.py --routes routes.yaml --probe /users`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &RunConfig{}
			if err := applyRunFlagOverrides(cmd.Flags(), cfg); err != nil {
				return err
			}
			var err error
			if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
				return err
			}
			return runRunner(cmd, cfg)
		},
	}

	cmd.Flags().String("input", "", "Path to the source file")
	cmd.Flags().Int("port", 0, "Port to serve on (next available when omitted)")
	cmd.Flags().String("routes", "", "YAML file of extra path -> response overrides for simulation")
	cmd.Flags().String("probe", "", "Issue one GET to this path, print the response, and exit")
	cmd.Flags().String("exec-url", "", "Execution backend URL (overrides configuration)")
	return cmd
}

func applyRunFlagOverrides(flags *pflag.FlagSet, cfg *RunConfig) error {
	var err error
	if cfg.Input, err = flags.GetString("input"); err != nil {
		return err
	}
	if cfg.Port, err = flags.GetInt("port"); err != nil {
		return err
	}
	if flags.Changed("routes") {
		if cfg.RoutesFile, err = flags.GetString("routes"); err != nil {
			return err
		}
	}
	if flags.Changed("probe") {
		if cfg.Probe, err = flags.GetString("probe"); err != nil {
			return err
		}
	}
	if flags.Changed("exec-url") {
		value, err := flags.GetString("exec-url")
		if err != nil {
			return err
		}
		cfg.ExecURL = strings.TrimSpace(value)
	}
	return nil
}

func runRun(cmd *cobra.Command, cfg *RunConfig) error {
	source, err := readSource(cfg.Input)
	if err != nil {
		return err
	}

	appCfg, err := config.Load()
	if err != nil {
		return err
	}
	if url := strings.TrimSpace(cfg.ExecURL); url != "" {
		appCfg.Runtime.DelegatedURL = url
	}

	level := appCfg.Logging.Level
	if cfg.Verbose {
		level = "debug"
	}
	log := logger.New(level, appCfg.Logging.Format)
	defer log.Sync()

	mock := mocknet.New(log, mocknet.WithLatencyBounds(
		time.Duration(appCfg.Mock.LatencyMinMS)*time.Millisecond,
		time.Duration(appCfg.Mock.LatencyMaxMS)*time.Millisecond,
	))
	exec := execservice.NewHTTPClient(appCfg.Runtime.DelegatedURL,
		execservice.WithTimeout(time.Duration(appCfg.Runtime.RequestTimeout)*time.Millisecond))

	orch, err := runtime.New(appCfg, log, exec, mock)
	if err != nil {
		return err
	}

	inst, err := orch.StartServer(cmd.Context(), source, cfg.Port)
	if err != nil {
		return err
	}
	defer orch.StopAllServers(cmd.Context())

	if cfg.RoutesFile != "" {
		if err := applyRouteOverrides(mock, cfg.RoutesFile); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "serving on port %d (%s)\n", inst.Port, inst.Kind)

	if cfg.Probe != "" {
		return probe(out, inst.Port, cfg.Probe)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down", zap.Int("port", inst.Port))
	return nil
}

// applyRouteOverrides merges a YAML mapping of path -> response value into
// the live simulated route table. Overrides have no effect on delegated
// instances.
func applyRouteOverrides(mock *mocknet.Interceptor, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("cannot read routes file %q: %v", path, err))
	}
	var overrides map[string]any
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return fmt.Errorf("run: parse routes file: %w", err)
	}
	for route, payload := range overrides {
		if !strings.HasPrefix(route, "/") {
			return newUsageError(fmt.Sprintf("routes file: path %q must start with /", route))
		}
		mock.SetRoute(route, payload)
	}
	return nil
}

// probe issues one request through the (possibly intercepted) default
// transport and prints the response body.
func probe(out io.Writer, port int, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	resp, err := http.Get(fmt.Sprintf("http://localhost:%d%s", port, path))
	if err != nil {
		return fmt.Errorf("run: probe %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("run: read probe response: %w", err)
	}
	fmt.Fprintf(out, "%s %s\n%s\n", resp.Status, path, strings.TrimSpace(string(body)))
	return nil
}
