package events

import (
	"github.com/spf13/cobra"
)

// Cmd is the events command group
var Cmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect released domain events",
}

func init() {
	Cmd.AddCommand(tailCmd)
}
