package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openshift-pipelines/tekton-results-reader/internal/config_loader"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/logger"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/version"
)

// Global flags
var (
	configPath   string
	logLevel     string
	logFormat    string
	logOutput    string
	outputFormat string
	kubeconfig   string
)

// Timeout constants
const (
	// OTelShutdownTimeout is the timeout for gracefully shutting down the OpenTelemetry TracerProvider
	OTelShutdownTimeout = 5 * time.Second
	// ServerShutdownTimeout bounds the graceful shutdown of each listener
	ServerShutdownTimeout = 5 * time.Second
	// EndpointProbeInterval is how often serve re-checks the results API host
	EndpointProbeInterval = 30 * time.Second
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "results-reader",
		Short: "Read PipelineRuns, TaskRuns and logs archived in Tekton Results",
		Long: `results-reader queries the Tekton Results API, either directly (discovering
the API from the TektonResult CR or its Route) or through the console proxy,
and prints decoded PipelineRun and TaskRun objects, task-run logs and summaries.
serve runs the proxy backend itself.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("Path to reader configuration file (can also use %s env var)", config_loader.EnvConfigPath))
	flags.StringVar(&kubeconfig, "kubeconfig", "", "Path to kubeconfig, overrides spec.kubernetes.kubeconfig. Env: KUBECONFIG")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error). Env: LOG_LEVEL")
	flags.StringVar(&logFormat, "log-format", "", "Log format (text, json). Env: LOG_FORMAT")
	flags.StringVar(&logOutput, "log-output", "", "Log output (stdout, stderr). Env: LOG_OUTPUT")

	rootCmd.AddCommand(newRecordsCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newSummaryCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// addOutputFlag registers -o on commands that print documents
func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "output", "o", outputJSON, "Output format (json, yaml)")
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tekton Results Reader\n")
			fmt.Fprintf(out, "  Version:    %s\n", info.Version)
			fmt.Fprintf(out, "  Commit:     %s\n", info.Commit)
			fmt.Fprintf(out, "  Built:      %s\n", info.BuildDate)
		},
	}
}

// buildLoggerConfig creates a logger configuration from environment variables
// and command-line flags. Flags take precedence over environment variables.
// Query commands log to stderr at warn level unless told otherwise, so
// stdout carries only the requested documents.
func buildLoggerConfig(component string, query bool) logger.Config {
	cfg := logger.ConfigFromEnv()

	if query {
		if os.Getenv("LOG_OUTPUT") == "" {
			cfg.Output = "stderr"
		}
		if os.Getenv("LOG_LEVEL") == "" {
			cfg.Level = "warn"
		}
	}

	if logLevel != "" {
		cfg.Level = logLevel
	}
	if logFormat != "" {
		cfg.Format = logFormat
	}
	if logOutput != "" {
		cfg.Output = logOutput
	}

	cfg.Component = component
	cfg.Version = version.Version

	return cfg
}
