package number

import (
	"github.com/spf13/cobra"
)

// Cmd is the number command group
var Cmd = &cobra.Command{
	Use:   "number",
	Short: "Manage number aggregates",
	Long:  `Create, add to, show, and delete event-sourced number aggregates.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(deleteCmd)
}
