package number

import (
	"fmt"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	"github.com/spf13/cobra"
)

var (
	numberID string
	initial  int
	values   []int
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new number",
	Long: `Create a number with an initial value, optionally adding values
in the same unit of work.

Examples:
  keystone number create --initial 5
  keystone number create --id n-1 --initial 1 --add 2 --add 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.CreateNumberHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		result, err := app.CreateNumberHandler.Handle(cmd.Context(), commands.CreateNumberCommand{
			ID:      numberID,
			Initial: initial,
			Values:  values,
		})
		if err != nil {
			return fmt.Errorf("failed to create number: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Number created: %s\n", result.ID)
		fmt.Fprintf(out, "  value: %d\n", result.Value)
		fmt.Fprintf(out, "  version: %d\n", result.Version)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&numberID, "id", "", "number ID (generated when empty)")
	createCmd.Flags().IntVarP(&initial, "initial", "i", 0, "initial value")
	createCmd.Flags().IntSliceVarP(&values, "add", "a", nil, "values to add after creation")
}
