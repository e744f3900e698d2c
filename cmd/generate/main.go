// Command generate writes a seeded synthetic population of the five raw
// tables into the raw directory.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"funnelcli/internal/app"
	"funnelcli/internal/config"
)

func main() {
	seed := flag.Uint64("seed", 0, "random seed (defaults to the configured generator seed)")
	users := flag.Int("users", 0, "number of users (defaults to the configured generator users)")
	flag.Parse()

	if err := run(*seed, *users); err != nil {
		os.Exit(1)
	}
}

func run(seed uint64, users int) error {
	ctx, stop := app.SignalContext()
	defer stop()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return err
	}
	defer application.Close(context.Background())

	applyOverrides(&application.Config.Generator, seed, users)

	if _, err := application.Generate(ctx); err != nil {
		application.Logger.ErrorContext(ctx, "Generation failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// applyOverrides replaces the configured generator settings with the
// non-zero flag values
func applyOverrides(cfg *config.GeneratorConfig, seed uint64, users int) {
	if seed != 0 {
		cfg.Seed = seed
	}
	if users != 0 {
		cfg.Users = users
	}
}
