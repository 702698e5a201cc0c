package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	logger        *slog.Logger
	correlationID string
	startedAt     time.Time
)

var rootCmd = &cobra.Command{
	Use:   "keystone",
	Short: "Keystone - event-sourced aggregate store",
	Long: `Keystone persists aggregates as snapshots, event streams, or both,
inside units of work that flush atomically and release domain events
only after the write has succeeded.

Storage (memory, sql, redis) and event delivery (inprocess, rabbitmq, noop)
are selected through STORE_BACKEND and EVENT_SINK. A .env file in the
working directory is loaded before the environment is read.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Every command runs under one correlation id. It is logged with each
	// record and stamped on the events the command releases.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		id := uuid.New()
		if correlationID != "" {
			parsed, err := uuid.Parse(correlationID)
			if err != nil {
				return fmt.Errorf("invalid --correlation-id: %w", err)
			}
			id = parsed
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = observability.WithCorrelationID(ctx, id.String())
		cmd.SetContext(ctx)

		startedAt = time.Now()
		cliLogger().DebugContext(ctx, "command start", "command", cmd.CommandPath())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cliLogger().DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
		)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&correlationID, "correlation-id", "", "correlation id (UUID) for logs and released events")
}

// Execute runs the command line under ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

func cliLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
