// Command etl builds the warehouse tables from the raw CSV snapshots.
//
// It takes no arguments; directories, output formats and telemetry come from
// the configuration (config.yaml, .env or FUNNEL_* environment variables).
package main

import (
	"context"
	"log/slog"
	"os"

	"funnelcli/internal/app"
	"funnelcli/internal/operations"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := app.SignalContext()
	defer stop()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return err
	}
	defer func() {
		if err := application.Close(context.Background()); err != nil {
			slog.Warn("Shutdown incomplete", "error", err)
		}
	}()

	state, err := application.RunETL(ctx)
	if err != nil {
		application.Logger.ErrorContext(ctx, "ETL failed",
			slog.String("run_id", runID(state)),
			slog.String("error", err.Error()))
		return err
	}

	application.Logger.InfoContext(ctx, "ETL finished",
		slog.String("run_id", state.ID),
		slog.Any("rows", state.Result().Rows))
	return nil
}

func runID(state *operations.OperationState) string {
	if state == nil {
		return ""
	}
	return state.ID
}
