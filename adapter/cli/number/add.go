package number

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <id> <value>...",
	Short: "Add values to a number",
	Long: `Add one or more non-zero values to an existing number. All values
are written in a single unit of work.

Examples:
  keystone number add n-1 4
  keystone number add n-1 1 2 -3`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.AddValueHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		parsed := make([]int, 0, len(args)-1)
		for _, raw := range args[1:] {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", raw, err)
			}
			parsed = append(parsed, v)
		}

		result, err := app.AddValueHandler.Handle(cmd.Context(), commands.AddValueCommand{ID: args[0], Values: parsed})
		if err != nil {
			return fmt.Errorf("failed to add values: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Number updated: %s\n", result.ID)
		fmt.Fprintf(out, "  value: %d\n", result.Value)
		fmt.Fprintf(out, "  version: %d\n", result.Version)
		return nil
	},
}
