package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/adapter/cli/events"
	"github.com/felixgeelhaar/keystone/adapter/cli/number"
	"github.com/felixgeelhaar/keystone/internal/app"
	"github.com/felixgeelhaar/keystone/pkg/config"
	"github.com/felixgeelhaar/keystone/pkg/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat))
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	switch {
	case err == nil:
		defer container.Close()

		cliApp := cli.NewApp(
			container.CreateNumberHandler,
			container.AddValueHandler,
			container.DeleteNumberHandler,
			container.GetNumberHandler,
		)
		cliApp.SetConfig(cfg)
		cliApp.SetHealth(container.Health)
		cliApp.SetMetrics(container.Metrics)
		cliApp.SetMigrator(container)
		cli.SetApp(cliApp)
	case cfg.IsDevelopment():
		// version and help still work without a backend
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	default:
		logger.Error("failed to initialize container", "error", err)
		return 1
	}

	cli.AddCommand(number.Cmd)
	cli.AddCommand(events.Cmd)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
