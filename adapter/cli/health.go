package cli

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/spf13/cobra"
)

var (
	healthJSON  bool
	healthCheck string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity of the configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return fmt.Errorf("app not initialized")
		}

		out := cmd.OutOrStdout()

		if healthCheck != "" {
			result, ok := app.Health.CheckOne(cmd.Context(), healthCheck)
			if !ok {
				return fmt.Errorf("unknown health check %q", healthCheck)
			}
			fmt.Fprintf(out, "%s: %s\n", healthCheck, result.Status)
			if result.Status == observability.HealthStatusUnhealthy {
				return fmt.Errorf("%s unhealthy: %s", healthCheck, result.Message)
			}
			return nil
		}

		health := app.Health.GetOverallHealth(cmd.Context())

		if healthJSON {
			data, err := health.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		} else {
			fmt.Fprintf(out, "status: %s\n", health.Status)
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := health.Checks[name]
				fmt.Fprintf(out, "  %s: %s", name, check.Status)
				if check.Message != "" {
					fmt.Fprintf(out, " (%s)", check.Message)
				}
				fmt.Fprintln(out)
			}
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "print the report as JSON")
	healthCmd.Flags().StringVar(&healthCheck, "check", "", "run a single named check")
	rootCmd.AddCommand(healthCmd)
}
