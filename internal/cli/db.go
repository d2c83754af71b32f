package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Run history database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date.")
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all recorded check runs (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		d, cleanup, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := d.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
		return nil
	},
}

func init() {
	dbResetCmd.Flags().Bool("yes", false, "Confirm the reset")
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
}
