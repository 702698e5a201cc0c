package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	numberCommands "github.com/felixgeelhaar/keystone/internal/numbers/application/commands"
	numberQueries "github.com/felixgeelhaar/keystone/internal/numbers/application/queries"
	"github.com/felixgeelhaar/keystone/internal/shared/application"
	"github.com/felixgeelhaar/keystone/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var demoSoftDelete bool

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk a number aggregate through its lifecycle",
	Long: `Create a number, append values, provoke a duplicate insert and a
missing lookup, then delete it, printing each step and the unit-of-work
counters at the end.

Examples:
  keystone demo
  keystone demo --soft
  STORE_BACKEND=memory SERIALIZATION_STRATEGY=events keystone demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.CreateNumberHandler == nil {
			return fmt.Errorf("application not initialized")
		}
		return runDemo(cmd.Context(), cmd.OutOrStdout(), app, demoSoftDelete)
	},
}

func init() {
	demoCmd.Flags().BoolVar(&demoSoftDelete, "soft", false, "tombstone the number instead of removing it")
	rootCmd.AddCommand(demoCmd)
}

func runDemo(ctx context.Context, out io.Writer, app *App, soft bool) error {
	var metrics observability.Metrics = observability.NoopMetrics{}
	if app.Metrics != nil {
		metrics = app.Metrics
	}
	l := logger
	if l == nil {
		l = slog.Default()
	}

	id := "demo-" + uuid.NewString()[:8]

	created, err := observability.TimeOperationResult(ctx, l, metrics, "demo.create", func() (*numberCommands.CreateNumberResult, error) {
		return app.CreateNumberHandler.Handle(ctx, numberCommands.CreateNumberCommand{ID: id, Initial: 1, Values: []int{2, 3}})
	})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	fmt.Fprintf(out, "created   %s value=%d version=%d\n", created.ID, created.Value, created.Version)

	added, err := observability.TimeOperationResult(ctx, l, metrics, "demo.add", func() (*numberCommands.AddValueResult, error) {
		return app.AddValueHandler.Handle(ctx, numberCommands.AddValueCommand{ID: id, Values: []int{4}})
	})
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	fmt.Fprintf(out, "added     %s value=%d version=%d\n", added.ID, added.Value, added.Version)

	dup := application.Execute[numberCommands.CreateNumberCommand, *numberCommands.CreateNumberResult](
		ctx, app.CreateNumberHandler, numberCommands.CreateNumberCommand{ID: id, Initial: 1})
	if dup.Success {
		return fmt.Errorf("duplicate create of %s was accepted", id)
	}
	fmt.Fprintf(out, "duplicate %s rejected (%s)\n", id, dup.Class)

	missing := id + "-missing"
	lookup := application.Ask[numberQueries.GetNumberQuery, *numberQueries.NumberDTO](
		ctx, app.GetNumberHandler, numberQueries.GetNumberQuery{ID: missing})
	if !errors.Is(lookup.Error, numberQueries.ErrNumberNotFound) {
		return fmt.Errorf("lookup of %s: want not found, got %v", missing, lookup.Error)
	}
	fmt.Fprintf(out, "missing   %s not found\n", missing)

	err = observability.TimeOperation(ctx, l, metrics, "demo.delete", func() error {
		return app.DeleteNumberHandler.Handle(ctx, numberCommands.DeleteNumberCommand{ID: id, Soft: soft})
	})
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	mode := "removed"
	if soft {
		mode = "tombstoned"
	}
	fmt.Fprintf(out, "deleted   %s (%s)\n", id, mode)

	_, err = app.GetNumberHandler.Handle(ctx, numberQueries.GetNumberQuery{ID: id})
	if !errors.Is(err, numberQueries.ErrNumberNotFound) {
		return fmt.Errorf("lookup of deleted %s: want not found, got %v", id, err)
	}
	fmt.Fprintf(out, "lookup    %s not found after delete\n", id)

	if app.Metrics != nil {
		fmt.Fprintln(out, "counters:")
		for _, c := range app.Metrics.Counters() {
			fmt.Fprintf(out, "  %-48s %d\n", c.Key, c.Value)
		}
	}
	return nil
}
