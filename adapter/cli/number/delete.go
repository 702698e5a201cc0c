package number

import (
	"fmt"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	"github.com/spf13/cobra"
)

var soft bool

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a number",
	Long: `Delete a number. A hard delete removes the stream; --soft appends a
tombstone event and keeps the history.

Examples:
  keystone number delete n-1
  keystone number delete n-1 --soft`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.DeleteNumberHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		if err := app.DeleteNumberHandler.Handle(cmd.Context(), commands.DeleteNumberCommand{ID: args[0], Soft: soft}); err != nil {
			return fmt.Errorf("failed to delete number: %w", err)
		}

		if soft {
			fmt.Fprintf(cmd.OutOrStdout(), "Number tombstoned: %s\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Number deleted: %s\n", args[0])
		}
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&soft, "soft", false, "keep the stream and append a tombstone")
}
