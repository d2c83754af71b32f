package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/lucasnoah/warnfactory/internal/analytics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregate statistics over recorded check runs",
}

var statsDurationsCmd = &cobra.Command{
	Use:   "durations",
	Short: "Average and percentile durations per check",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd, func(d analytics.DB, since string, _ int) (any, func(io.Writer), error) {
			rows, err := analytics.QueryCheckDurations(d, since)
			return rows, func(w io.Writer) {
				fmt.Fprintf(w, "%s %6s %10s %10s %10s\n", pad("CHECK", 20), "RUNS", "AVG", "P50", "P95")
				for _, r := range rows {
					fmt.Fprintf(w, "%s %6d %8.1fms %8.1fms %8.1fms\n", pad(r.Check, 20), r.Count, r.Avg, r.P50, r.P95)
				}
			}, err
		})
	},
}

var statsFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Failure and auto-fix rates per check",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd, func(d analytics.DB, since string, _ int) (any, func(io.Writer), error) {
			rows, err := analytics.QueryCheckFailures(d, since)
			return rows, func(w io.Writer) {
				fmt.Fprintf(w, "%s %6s %6s %8s %8s  %s\n", pad("CHECK", 20), "RUNS", "CANCEL", "FAIL%", "FIX%", "COMMON CATEGORIES")
				for _, r := range rows {
					fmt.Fprintf(w, "%s %6d %6d %7.1f%% %7.1f%%  %s\n", pad(r.Check, 20), r.Total, r.Canceled, r.FailRate, r.AutoFixRate, r.CommonCategory)
				}
			}, err
		})
	},
}

var statsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Most reported issue categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd, func(d analytics.DB, since string, limit int) (any, func(io.Writer), error) {
			rows, err := analytics.QueryTopCategories(d, since, limit)
			return rows, func(w io.Writer) {
				fmt.Fprintf(w, "%s %8s %7s\n", pad("CATEGORY", 40), "ISSUES", "CHECKS")
				for _, r := range rows {
					fmt.Fprintf(w, "%s %8d %7d\n", pad(r.Category, 40), r.Count, r.Checks)
				}
			}, err
		})
	},
}

var statsFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "Files with the most reported issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStats(cmd, func(d analytics.DB, since string, limit int) (any, func(io.Writer), error) {
			rows, err := analytics.QueryFileHotspots(d, since, limit)
			return rows, func(w io.Writer) {
				fmt.Fprintf(w, "%s %8s %7s\n", pad("FILE", 50), "ISSUES", "ERRORS")
				for _, r := range rows {
					fmt.Fprintf(w, "%s %8d %7d\n", pad(r.File, 50), r.Issues, r.Errors)
				}
			}, err
		})
	},
}

// statsQuery runs one analytics query and returns the rows plus a text renderer.
type statsQuery func(d analytics.DB, since string, limit int) (any, func(io.Writer), error)

func runStats(cmd *cobra.Command, q statsQuery) error {
	since, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	format, _ := cmd.Flags().GetString("format")

	d, cleanup, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	rows, text, err := q(d, since, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	text(w)
	return nil
}

func init() {
	statsCmd.PersistentFlags().String("since", "", "Only include runs at or after this timestamp (YYYY-MM-DD)")
	statsCmd.PersistentFlags().Int("limit", 20, "Maximum rows for categories and files")
	statsCmd.PersistentFlags().String("format", "text", "Output format: text or json")

	statsCmd.AddCommand(statsDurationsCmd)
	statsCmd.AddCommand(statsFailuresCmd)
	statsCmd.AddCommand(statsCategoriesCmd)
	statsCmd.AddCommand(statsFilesCmd)
}

// pad fits s into a column of the given display width. Wide runes count
// double, so paths with CJK names stay aligned.
func pad(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
