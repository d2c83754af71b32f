package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/warnfactory/internal/analysis"
	"github.com/lucasnoah/warnfactory/internal/checks"
	"github.com/lucasnoah/warnfactory/internal/config"
	"github.com/lucasnoah/warnfactory/internal/db"
	"github.com/lucasnoah/warnfactory/internal/parsers"
	"github.com/lucasnoah/warnfactory/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run configured checks and inspect their history",
}

var checkRunCmd = &cobra.Command{
	Use:   "run [check-names...]",
	Short: "Run one or more checks (default_checks when none are named)",
	RunE: func(cmd *cobra.Command, args []string) error {
		fix, _ := cmd.Flags().GetBool("fix")
		cont, _ := cmd.Flags().GetBool("continue")
		dir, _ := cmd.Flags().GetString("dir")

		d, cfg, reg, cleanup, err := openCheckDeps(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		checkNames := args
		if len(checkNames) == 0 {
			checkNames = cfg.DefaultChecks
		}
		if len(checkNames) == 0 {
			return fmt.Errorf("no checks named and no default_checks configured")
		}

		runner := checks.NewRunner(&checks.ExecRunner{}, reg)
		var firstErr error

		for _, name := range checkNames {
			rc, err := checkConfig(cfg, name)
			if err != nil {
				return err
			}
			rc.AutoFix = fix && rc.AutoFix

			result, err := runner.Run(cmd.Context(), dir, rc)
			if err != nil {
				return fmt.Errorf("run check %q: %w", name, err)
			}
			if err := logResult(d, result); err != nil {
				return err
			}

			printResult(cmd, result)

			if result.Canceled {
				return fmt.Errorf("check %q: %w", name, analysis.ErrCanceled)
			}
			if !result.Passed && firstErr == nil {
				firstErr = fmt.Errorf("check %q failed", name)
				if !cont {
					break
				}
			}
		}

		return firstErr
	},
}

var checkGateCmd = &cobra.Command{
	Use:   "gate [gate-name]",
	Short: "Run every check of a configured gate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gateName := args[0]
		cont, _ := cmd.Flags().GetBool("continue")
		format, _ := cmd.Flags().GetString("format")
		dir, _ := cmd.Flags().GetString("dir")

		d, cfg, reg, cleanup, err := openCheckDeps(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		g, ok := cfg.Gates[gateName]
		if !ok {
			return fmt.Errorf("gate %q not defined in config", gateName)
		}

		var gateChecks []checks.CheckConfig
		for _, name := range g.Checks {
			rc, err := checkConfig(cfg, name)
			if err != nil {
				return err
			}
			gateChecks = append(gateChecks, rc)
		}

		runner := checks.NewRunner(&checks.ExecRunner{}, reg)
		gate, results, err := runner.RunGate(cmd.Context(), dir, checks.GateOpts{
			Gate:     gateName,
			Checks:   gateChecks,
			Continue: cont || g.Continue,
		})
		if err != nil {
			return fmt.Errorf("run gate: %w", err)
		}

		for _, result := range results {
			if err := logResult(d, result); err != nil {
				return err
			}
		}

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			jsonStr, err := gate.JSON()
			if err != nil {
				return err
			}
			if err := report.WriteAtomic(out, []byte(jsonStr+"\n")); err != nil {
				return fmt.Errorf("save gate result: %w", err)
			}
		}

		if format == "json" {
			jsonStr, err := gate.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), jsonStr)
		} else {
			w := cmd.OutOrStdout()
			for _, c := range gate.Checks {
				icon := "PASS"
				if !c.Passed {
					icon = "FAIL"
				}
				extra := ""
				if c.AutoFixed {
					extra = " (auto-fixed)"
				}
				fmt.Fprintf(w, "[%s] %s — %s%s\n", icon, c.Check, c.Summary, extra)
			}
			switch {
			case gate.Canceled:
				fmt.Fprintln(w, "\nGate CANCELED")
			case gate.Passed:
				fmt.Fprintln(w, "\nGate PASSED")
			default:
				fmt.Fprintln(w, "\nGate FAILED")
			}
		}

		if gate.Canceled {
			return fmt.Errorf("gate %q: %w", gateName, analysis.ErrCanceled)
		}
		if !gate.Passed {
			return fmt.Errorf("gate failed: %d checks failed", len(gate.RemainingFailures))
		}
		return nil
	},
}

var checkResultCmd = &cobra.Command{
	Use:   "result [check-name]",
	Short: "Show the latest result for a check with its issues",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		checkName := args[0]
		format, _ := cmd.Flags().GetString("format")
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}

		d, cleanup, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := d.GetLatestCheckRun(checkName)
		if err != nil {
			return fmt.Errorf("get check result: %w", err)
		}
		if run == nil {
			return fmt.Errorf("no results found for check %q", checkName)
		}
		issues, err := d.GetIssues(run.ID)
		if err != nil {
			return fmt.Errorf("get issues: %w", err)
		}
		doc := report.Document{
			Parser: analysis.Descriptor{ID: run.Parser},
			Source: run.CheckName,
			Issues: issues,
		}
		if p, err := parsers.Default().New(run.Parser); err == nil {
			doc.Parser = analysis.DescriptorOf(p)
		}

		w := cmd.OutOrStdout()
		if f != report.FormatText {
			return report.Write(w, f, doc)
		}

		fmt.Fprintf(w, "Check:     %s\n", run.CheckName)
		fmt.Fprintf(w, "Parser:    %s\n", doc.Parser)
		passStr := "FAIL"
		switch {
		case run.Canceled:
			passStr = "CANCELED"
		case run.Passed:
			passStr = "PASS"
		}
		fmt.Fprintf(w, "Result:    %s\n", passStr)
		if run.AutoFixed {
			fmt.Fprintf(w, "Auto-Fix:  yes\n")
		}
		fmt.Fprintf(w, "Exit Code: %d\n", run.ExitCode)
		fmt.Fprintf(w, "Duration:  %dms\n", run.DurationMs)
		fmt.Fprintf(w, "Summary:   %s\n", run.Summary)
		fmt.Fprintf(w, "Timestamp: %s\n", run.Timestamp)

		counts, err := d.CategoryCounts(run.ID)
		if err != nil {
			return fmt.Errorf("category counts: %w", err)
		}
		if len(counts) > 0 {
			cats := make([]string, 0, len(counts))
			for c := range counts {
				cats = append(cats, c)
			}
			sort.Strings(cats)
			parts := make([]string, 0, len(cats))
			for _, c := range cats {
				name := c
				if name == "" {
					name = "(none)"
				}
				parts = append(parts, fmt.Sprintf("%s=%d", name, counts[c]))
			}
			fmt.Fprintf(w, "Categories: %s\n", strings.Join(parts, ", "))
		}
		fmt.Fprintln(w)
		return report.Write(w, report.FormatText, doc)
	},
}

var checkHistoryCmd = &cobra.Command{
	Use:   "history [check-name]",
	Short: "Show recent runs of a check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		d, cleanup, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := d.GetCheckHistory(args[0], limit)
		if err != nil {
			return fmt.Errorf("get check history: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No check runs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-6s %s %-12s %-8s %-6s %-8s %s\n",
			"ID", pad("CHECK", 15), "PARSER", "RESULT", "ISSUES", "DURATION", "SUMMARY")
		fmt.Fprintf(w, "%s\n", strings.Repeat("-", 80))

		for _, r := range runs {
			result := "FAIL"
			switch {
			case r.Canceled:
				result = "CANCELED"
			case r.Passed:
				result = "PASS"
			}
			fmt.Fprintf(w, "%-6d %s %-12s %-8s %-6d %-8s %s\n",
				r.ID, pad(r.CheckName, 15), r.Parser, result, r.IssueCount,
				fmt.Sprintf("%dms", r.DurationMs), r.Summary)
		}

		return nil
	},
}

func init() {
	checkRunCmd.Flags().Bool("fix", false, "Run auto-fix before re-checking")
	checkRunCmd.Flags().Bool("continue", false, "Continue running checks after failures")
	checkRunCmd.Flags().String("dir", ".", "Directory the check commands run in")

	checkGateCmd.Flags().Bool("continue", false, "Run all checks even if some fail")
	checkGateCmd.Flags().String("format", "text", "Output format: text or json")
	checkGateCmd.Flags().String("dir", ".", "Directory the check commands run in")
	checkGateCmd.Flags().String("out", "", "Also save the gate result as JSON to this file")

	checkResultCmd.Flags().String("format", "text", "Output format: text, json or msgpack")

	checkHistoryCmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	checkCmd.AddCommand(checkRunCmd)
	checkCmd.AddCommand(checkGateCmd)
	checkCmd.AddCommand(checkResultCmd)
	checkCmd.AddCommand(checkHistoryCmd)
}

// checkConfig resolves a named check from cfg into a runner config.
func checkConfig(cfg *config.Config, name string) (checks.CheckConfig, error) {
	chk, ok := cfg.Checks[name]
	if !ok {
		return checks.CheckConfig{}, fmt.Errorf("check %q not defined in config", name)
	}
	return checks.ConfigFor(name, chk)
}

func printResult(cmd *cobra.Command, result *checks.Result) {
	statusIcon := "PASS"
	switch {
	case result.Canceled:
		statusIcon = "CANCELED"
	case !result.Passed:
		statusIcon = "FAIL"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s — %s (%dms)\n", statusIcon, result.CheckName, result.Summary, result.DurationMs)
}

func logResult(d *db.DB, result *checks.Result) error {
	id, err := d.LogCheckRun(db.CheckRun{
		CheckName:  result.CheckName,
		Parser:     result.Parser,
		Passed:     result.Passed,
		Canceled:   result.Canceled,
		AutoFixed:  result.AutoFixed,
		ExitCode:   result.ExitCode,
		DurationMs: result.DurationMs,
		Summary:    result.Summary,
	}, result.Issues.All())
	if err != nil {
		return fmt.Errorf("log check run %q: %w", result.CheckName, err)
	}
	slog.Debug("logged check run", "check", result.CheckName, "run_id", id)
	return nil
}

// openDB opens and migrates the history database, returning it with a cleanup
// func. A config file is optional here; it only supplies database.dsn.
func openDB(cmd *cobra.Command) (*db.DB, func(), error) {
	var cfg *config.Config
	if c, err := loadConfig(); err == nil {
		applyLogConfig(cmd, c)
		cfg = c
	}
	return openDSN(resolveDSN(cfg))
}

// resolveDSN picks the database: --db, then database.dsn. An empty result
// selects the default path.
func resolveDSN(cfg *config.Config) string {
	if dbDSN != "" {
		return dbDSN
	}
	if cfg != nil && cfg.Database.DSN != "" {
		return cfg.Database.DSN
	}
	return ""
}

func openDSN(dsn string) (*db.DB, func(), error) {
	if dsn == "" {
		path, err := db.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
		dsn = path
	}
	d, err := db.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, func() { d.Close() }, nil
}

// openCheckDeps loads and validates the config, then opens the DB.
func openCheckDeps(cmd *cobra.Command) (*db.DB, *config.Config, *parsers.Registry, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyLogConfig(cmd, cfg)

	reg := parsers.Default()
	if errs := config.Validate(cfg, reg); len(errs) > 0 {
		for _, e := range errs {
			slog.Error("invalid config", "field", e.Field, "err", e.Message)
		}
		return nil, nil, nil, nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}

	d, cleanup, err := openDSN(resolveDSN(cfg))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return d, cfg, reg, cleanup, nil
}
