package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the aggregate store schema",
	Long: `Create the stream, snapshot and event tables of the sql backend.

Migrations are idempotent. SQLite databases are migrated automatically on
startup; PostgreSQL databases need an explicit run:
  STORE_BACKEND=sql DATABASE_URL=postgres://... keystone migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Migrator == nil {
			return fmt.Errorf("application not initialized")
		}
		if err := app.Migrator.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
