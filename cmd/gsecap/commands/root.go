// Package commands implements gsecap's CLI commands.
package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dvbgse/gogse/cmd/gsecap/commands/config"
	"github.com/dvbgse/gogse/internal/logger"
	"github.com/dvbgse/gogse/internal/telemetry"
	"github.com/dvbgse/gogse/pkg/gseconfig"
	"github.com/dvbgse/gogse/pkg/metrics"
	promgse "github.com/dvbgse/gogse/pkg/metrics/prometheus"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// cfg is populated by the root command's PersistentPreRunE and consumed by
// every subcommand.
var cfg *gseconfig.Config

// gseMetrics is nil (instrumentation disabled) unless cfg.Metrics.Enabled.
var gseMetrics metrics.GSEMetrics

// runID identifies this invocation: it is logged once at startup and
// prefixed to the stream name of every encap/decap span, so concurrent
// gsecap runs against the same collector can be told apart.
var runID string

var configFile string

var rootCmd = &cobra.Command{
	Use:   "gsecap",
	Short: "DVB GSE encapsulator/decapsulator",
	Long: `gsecap packs upper-layer PDUs into DVB Generic Stream Encapsulation
(GSE) packets and reverses the transformation on the receive side.

Use "gsecap [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bootstrap()
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for testing.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/gsecap/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(encapCmd)
	rootCmd.AddCommand(decapCmd)
	rootCmd.AddCommand(roundtripCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(completionCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the --config flag's value.
func GetConfigFile() string { return configFile }

// bootstrap loads configuration and initializes logging, tracing,
// profiling, and metrics for the invoked subcommand. Telemetry and
// profiling shutdown is installed as rootCmd.PersistentPostRunE, which
// cobra runs after a subcommand's RunE succeeds; it does not run when
// RunE returns an error.
func bootstrap() error {
	loaded, err := gseconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	runID = uuid.NewString()
	logger.Info("gsecap starting", "run_id", runID, "version", Version)

	ctx := context.Background()
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "gsecap",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "gsecap",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		gseMetrics = promgse.NewGSEMetrics()
		serveMetrics(cfg.Metrics.Port)
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
		return nil
	}
	return nil
}

// serveMetrics starts the Prometheus /metrics HTTP endpoint in the
// background for the lifetime of this process. gsecap's subcommands run
// to completion rather than serving traffic, so a scrape racing the
// command's exit simply sees connection refused — acceptable for a CLI's
// best-effort metrics exposure.
func serveMetrics(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", port)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server exited", "error", err)
		}
	}()
	logger.Info("metrics server listening", "addr", addr)
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
