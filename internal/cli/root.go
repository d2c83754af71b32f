package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/config"
	"github.com/lucasnoah/warnfactory/internal/logging"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configFile string
	dbDSN      string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "warnfactory",
	Short: "warnfactory: turn compiler and linter output into structured issues",
	Long: `warnfactory parses the warnings printed by compilers, linters, test runners
and audit tools into a common issue model, runs configured checks against
those issues, and records every run in a history database.

Configuration is read from warnfactory.yaml or warnfactory.toml in the
current directory, or from ~/.warnfactory/. Run history is stored in
~/.warnfactory/warnfactory.db unless database.dsn points elsewhere.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(cmd.ErrOrStderr(), logFormat, logLevel)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// ExitCanceled is the exit status for a run stopped by the operator (128+SIGINT).
const ExitCanceled = 130

// ExitCode maps an Execute error to a process exit status. Cancellation is
// not reported as a failure; the caller prints the error only for status 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case analysis.IsCanceled(err):
		return ExitCanceled
	}
	return 1
}

// ExecuteContext runs the root command with ctx; canceling ctx stops
// running checks and parses.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// applyLogConfig re-initializes logging from cfg unless the flags were set.
func applyLogConfig(cmd *cobra.Command, cfg *config.Config) {
	level, format := cfg.Log.Level, cfg.Log.Format
	if cmd.Flags().Changed("log-level") || level == "" {
		level = logLevel
	}
	if cmd.Flags().Changed("log-format") || format == "" {
		format = logFormat
	}
	logging.Init(cmd.ErrOrStderr(), format, level)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "history database: sqlite path or postgres:// DSN")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(parsersCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(statsCmd)
}
