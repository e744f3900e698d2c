package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funnelcli/internal/config"
	"funnelcli/internal/dataprocessing"
	"funnelcli/internal/exporter"
	"funnelcli/internal/generator"
	"funnelcli/internal/infrastructure"
	"funnelcli/internal/operations"
	"funnelcli/internal/scheduler"
	"funnelcli/internal/sink"
	"funnelcli/pkg/contracts"
)

const (
	AppName = "funnel-etl"

	// FailedManifestFile keeps the manifest of the last failed run in the logs directory
	FailedManifestFile = "last_failed_manifest.json"

	shutdownTimeout = 10 * time.Second
)

// Application wires configuration, logging, telemetry and the pipeline
// collaborators together for the command line entry points.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Tracer        *operations.OperationTracer
	Loader        *dataprocessing.Loader
	Publisher     *exporter.Publisher
	Sink          *sink.MySQLSink

	progress io.Writer
}

// NewApplication loads the configuration and resolves paths against the
// executable directory. Progress lines are written to stdout.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, err
	}

	return New(cfg, paths, os.Stdout)
}

// New builds an application from an explicit configuration
func New(cfg *config.Config, paths *config.Paths, progress io.Writer) (*Application, error) {
	if progress == nil {
		progress = io.Discard
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.GetFullVersionString()))

	if err := paths.EnsureDirectories(); err != nil {
		_ = infrastructure.CloseLogFile()
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelCfg := infrastructure.OTelConfigFromTelemetry(cfg.Telemetry)
	otelCfg.ServiceVersion = contracts.Version
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		_ = infrastructure.CloseLogFile()
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		releaseStartup(providers, logger)
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Tracer:        tracer,
		Loader:        dataprocessing.NewLoader(paths, logger),
		Publisher:     exporter.NewPublisher(paths, cfg.Output, logger),
		progress:      progress,
	}

	if cfg.Sink.MySQLDSN != "" {
		mysqlSink, err := sink.Open(cfg.Sink, logger)
		if err != nil {
			releaseStartup(providers, logger)
			return nil, err
		}
		app.Sink = mysqlSink
	}

	return app, nil
}

// releaseStartup undoes the telemetry and log file setup of a failed New
func releaseStartup(providers *infrastructure.OTelProviders, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
	_ = infrastructure.CloseLogFile()
}

// NewManager builds the operations manager for one ETL run
func (a *Application) NewManager() (*operations.Manager, error) {
	deps := operations.StageDeps{
		Loader:    a.Loader,
		Publisher: a.Publisher,
		Tracer:    a.Tracer,
		Logger:    a.Logger,
	}
	if a.Sink != nil {
		deps.Sink = a.Sink
	}

	opCfg := operations.ConfigFromPipeline(a.Config.Pipeline)
	registry, err := operations.NewPipelineRegistry(opCfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	manager := operations.NewManager(registry, opCfg, a.Tracer, a.Logger)
	manager.SetProgress(func(line string) {
		fmt.Fprintln(a.progress, line)
	})
	return manager, nil
}

// RunETL runs the pipeline once. On success it prints the completion line
// and the published files; on failure the run manifest is kept in the logs
// directory.
func (a *Application) RunETL(ctx context.Context) (*operations.OperationState, error) {
	manager, err := a.NewManager()
	if err != nil {
		return nil, err
	}

	state, err := manager.Execute(ctx)
	if err != nil {
		a.saveFailedManifest(ctx, state)
		return state, err
	}

	a.clearFailedManifest(ctx)

	fmt.Fprintln(a.progress, "ETL completed successfully.")
	if result := state.Result(); result != nil {
		fmt.Fprintf(a.progress, "Warehouse directory: %s\n", result.Dir)
		for _, file := range result.Files {
			fmt.Fprintf(a.progress, " - %s\n", file)
		}
	}
	return state, nil
}

func (a *Application) saveFailedManifest(ctx context.Context, state *operations.OperationState) {
	if state == nil || state.Manifest == nil || a.Paths.LogsDir == "" {
		return
	}
	path := a.Paths.GetLogPath(FailedManifestFile)
	if err := state.Manifest.SaveToFile(path); err != nil {
		a.Logger.WarnContext(ctx, "failed to save run manifest",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "run manifest saved", slog.String("path", path))
}

// clearFailedManifest drops the manifest of an earlier failed run once a run
// succeeds, logging which run it supersedes.
func (a *Application) clearFailedManifest(ctx context.Context) {
	if a.Paths.LogsDir == "" {
		return
	}
	path := a.Paths.GetLogPath(FailedManifestFile)
	previous, err := operations.LoadManifestFromFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			a.Logger.WarnContext(ctx, "unreadable failed run manifest",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return
	}

	a.Logger.InfoContext(ctx, "recovered from failed run",
		slog.String("failed_run_id", previous.RunID),
		slog.String("failed_error", previous.Error))
	if err := os.Remove(path); err != nil {
		a.Logger.WarnContext(ctx, "failed to remove failed run manifest",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// Generate writes a fresh synthetic population into the raw directory
func (a *Application) Generate(ctx context.Context) ([]string, error) {
	start := time.Now()
	raw, err := generator.Generate(a.Config.Generator)
	if err != nil {
		return nil, err
	}

	written, err := generator.WriteRaw(ctx, a.Paths, raw, a.Logger)
	if err != nil {
		return nil, err
	}

	a.Logger.InfoContext(ctx, "raw data generated",
		slog.Uint64("seed", a.Config.Generator.Seed),
		slog.Any("rows", raw.RowCounts()),
		slog.Duration("duration", time.Since(start)))

	fmt.Fprintf(a.progress, "Generated %d users into %s\n", len(raw.Users), a.Paths.RawDir)
	return written, nil
}

// ScheduledJob is one scheduled run: optionally regenerate the raw data,
// then run the ETL.
func (a *Application) ScheduledJob() scheduler.Job {
	return func(ctx context.Context) error {
		if a.Config.Schedule.Generate {
			if _, err := a.Generate(ctx); err != nil {
				return err
			}
		}
		_, err := a.RunETL(ctx)
		if flushErr := a.OTelProviders.WriteMetricsTextfile(); flushErr != nil {
			a.Logger.WarnContext(ctx, "failed to write metrics", slog.String("error", flushErr.Error()))
		}
		return err
	}
}

// RunScheduler blocks running the daily job until ctx is cancelled
func (a *Application) RunScheduler(ctx context.Context) error {
	return scheduler.New(a.Config.Schedule, a.ScheduledJob(), a.Logger).Start(ctx)
}

// Close flushes metrics and traces and releases the sink and log file
func (a *Application) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := a.OTelProviders.WriteMetricsTextfile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error writing metrics textfile", slog.String("error", err.Error()))
		keep(err)
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		keep(err)
	}
	if a.Sink != nil {
		keep(a.Sink.Close())
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	keep(infrastructure.CloseLogFile())
	return firstErr
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
