// Command scheduler runs the daily pipeline: regenerate the raw data when
// configured, then run the ETL, retrying a failed run after a delay.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"funnelcli/internal/app"
	"funnelcli/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run the job immediately (with retries) and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		os.Exit(1)
	}
}

func run(once bool) error {
	ctx, stop := app.SignalContext()
	defer stop()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return err
	}
	defer application.Close(context.Background())

	if once {
		err = scheduler.New(application.Config.Schedule, application.ScheduledJob(), application.Logger).RunWithRetry(ctx)
	} else {
		err = application.RunScheduler(ctx)
	}
	if err != nil {
		application.Logger.ErrorContext(ctx, "Scheduler failed", slog.String("error", err.Error()))
	}
	return err
}
