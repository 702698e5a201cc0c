package number

import (
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/internal/numbers/application/queries"
	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.GetNumberHandler == nil {
			return fmt.Errorf("application not initialized")
		}

		dto, err := app.GetNumberHandler.Handle(cmd.Context(), queries.GetNumberQuery{ID: args[0]})
		if err != nil {
			return fmt.Errorf("failed to load number: %w", err)
		}

		out := cmd.OutOrStdout()
		if showJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(dto)
		}

		fmt.Fprintf(out, "Number: %s\n", dto.ID)
		fmt.Fprintf(out, "  value: %d\n", dto.Value)
		fmt.Fprintf(out, "  additions: %d\n", dto.Additions)
		fmt.Fprintf(out, "  version: %d\n", dto.Version)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the number as JSON")
}
