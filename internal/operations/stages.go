package operations

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"funnelcli/internal/dataprocessing"
	"funnelcli/internal/exporter"
	"funnelcli/internal/infrastructure"
	"funnelcli/pkg/contracts/domain"
)

// Step IDs
const (
	StageIDLoad     = "load"
	StageIDDimUsers = "dim_users"
	StageIDFacts    = "facts"
	StageIDPersist  = "persist"
	StageIDSink     = "sink"
)

// Step names
const (
	StageNameLoad     = "Load raw data"
	StageNameDimUsers = "Build dim_users"
	StageNameFacts    = "Build fact tables"
	StageNamePersist  = "Publish warehouse files"
	StageNameSink     = "Replace SQL warehouse tables"
)

// Progress lines printed by the ETL command
const (
	ProgressLoading         = "Loading raw data..."
	ProgressDimUsers        = "Building dim_users (one row per user)..."
	ProgressFctTransactions = "Building fct_transactions (one row per transaction)..."
	ProgressFctFunnel       = "Building fct_funnel (one row per funnel step per user)..."
	progressWritingFormat   = "Writing warehouse files to %s..."
)

// RawLoader reads the five source tables
type RawLoader interface {
	Load(ctx context.Context) (*domain.RawTables, error)
}

// TablePublisher publishes the warehouse tables
type TablePublisher interface {
	Dir() string
	FileNames() []string
	Publish(ctx context.Context, runID string, tables *domain.WarehouseTables, manifest interface{}) (*exporter.PublishResult, error)
}

// TableSink replaces the warehouse tables in an external store
type TableSink interface {
	Replace(ctx context.Context, tables *domain.WarehouseTables) error
}

// StageDeps carries the collaborators of the standard pipeline
type StageDeps struct {
	Loader    RawLoader
	Publisher TablePublisher
	Sink      TableSink // optional
	Tracer    *OperationTracer
	Logger    *slog.Logger
}

// NewPipelineRegistry registers the standard steps:
// load → dim_users → facts → persist [→ sink].
func NewPipelineRegistry(cfg *Config, deps StageDeps) (*Registry, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	registry := NewRegistry()
	steps := []Step{
		NewLoadStage(deps.Loader, logger),
		NewDimUsersStage(logger),
		NewFactsStage(cfg.ParallelFacts, logger),
		NewPersistStage(deps.Publisher, deps.Tracer, logger),
	}
	if deps.Sink != nil {
		steps = append(steps, NewSinkStage(deps.Sink, logger))
	}

	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// LoadStage reads the raw CSVs
type LoadStage struct {
	BaseStage
	loader RawLoader
	logger *slog.Logger
}

// NewLoadStage creates a new load step
func NewLoadStage(loader RawLoader, logger *slog.Logger) *LoadStage {
	return &LoadStage{
		BaseStage: NewBaseStage(StageIDLoad, StageNameLoad, nil),
		loader:    loader,
		logger:    logger.With(slog.String("step", StageIDLoad)),
	}
}

// Validate requires a loader
func (s *LoadStage) Validate(state *OperationState) error {
	if s.loader == nil {
		return fmt.Errorf("no loader configured")
	}
	return nil
}

// Execute loads the source tables into the state
func (s *LoadStage) Execute(ctx context.Context, state *OperationState) error {
	state.Report(ProgressLoading)

	raw, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	state.SetRaw(raw)

	stepState := state.GetStage(s.ID())
	for table, n := range raw.RowCounts() {
		stepState.SetRows(table, n)
	}
	s.logger.DebugContext(ctx, "raw tables loaded", slog.Any("rows", raw.RowCounts()))
	return nil
}

// DimUsersStage builds dim_users
type DimUsersStage struct {
	BaseStage
	logger *slog.Logger
}

// NewDimUsersStage creates a new dim_users step
func NewDimUsersStage(logger *slog.Logger) *DimUsersStage {
	return &DimUsersStage{
		BaseStage: NewBaseStage(StageIDDimUsers, StageNameDimUsers, []string{StageIDLoad}),
		logger:    logger.With(slog.String("step", StageIDDimUsers)),
	}
}

// Validate requires loaded source tables
func (s *DimUsersStage) Validate(state *OperationState) error {
	if state.Raw() == nil {
		return fmt.Errorf("raw tables not loaded")
	}
	return nil
}

// Execute builds one row per user
func (s *DimUsersStage) Execute(ctx context.Context, state *OperationState) error {
	state.Report(ProgressDimUsers)

	raw := state.Raw()
	rows, err := dataprocessing.BuildDimUsers(raw.Users, raw.KYC, raw.Cards, raw.Transactions)
	if err != nil {
		return err
	}
	state.SetDimUsers(rows)
	state.GetStage(s.ID()).SetRows(domain.TableDimUsers, len(rows))
	s.logger.DebugContext(ctx, "dim_users built", slog.Int("rows", len(rows)))
	return nil
}

// FactsStage builds fct_transactions and fct_funnel
type FactsStage struct {
	BaseStage
	parallel bool
	logger   *slog.Logger
}

// NewFactsStage creates a new fact step. With parallel set both facts are
// built concurrently; they share no mutable state.
func NewFactsStage(parallel bool, logger *slog.Logger) *FactsStage {
	return &FactsStage{
		BaseStage: NewBaseStage(StageIDFacts, StageNameFacts, []string{StageIDDimUsers}),
		parallel:  parallel,
		logger:    logger.With(slog.String("step", StageIDFacts)),
	}
}

// Validate requires loaded source tables
func (s *FactsStage) Validate(state *OperationState) error {
	if state.Raw() == nil {
		return fmt.Errorf("raw tables not loaded")
	}
	return nil
}

// Execute builds both fact tables
func (s *FactsStage) Execute(ctx context.Context, state *OperationState) error {
	raw := state.Raw()
	var (
		transactions []domain.TransactionFact
		funnel       []domain.FunnelFact
	)

	buildTransactions := func() error {
		rows, err := dataprocessing.BuildFctTransactions(raw.Transactions)
		if err != nil {
			return err
		}
		transactions = rows
		return nil
	}
	buildFunnel := func() error {
		rows, err := dataprocessing.BuildFctFunnel(raw.Funnel)
		if err != nil {
			return err
		}
		funnel = rows
		return nil
	}

	if s.parallel {
		// progress lines keep their order even though the builds overlap
		state.Report(ProgressFctTransactions)
		state.Report(ProgressFctFunnel)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return buildTransactions()
		})
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return buildFunnel()
		})
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		state.Report(ProgressFctTransactions)
		if err := buildTransactions(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		state.Report(ProgressFctFunnel)
		if err := buildFunnel(); err != nil {
			return err
		}
	}

	state.SetFacts(transactions, funnel)
	stepState := state.GetStage(s.ID())
	stepState.SetRows(domain.TableFctTransactions, len(transactions))
	stepState.SetRows(domain.TableFctFunnel, len(funnel))

	s.logger.DebugContext(ctx, "facts built",
		slog.Bool("parallel", s.parallel),
		slog.Int("fct_transactions", len(transactions)),
		slog.Int("fct_funnel", len(funnel)))
	return nil
}

// PersistStage publishes the warehouse tables with the run manifest
type PersistStage struct {
	BaseStage
	publisher TablePublisher
	tracer    *OperationTracer
	logger    *slog.Logger
}

// NewPersistStage creates a new persist step
func NewPersistStage(publisher TablePublisher, tracer *OperationTracer, logger *slog.Logger) *PersistStage {
	return &PersistStage{
		BaseStage: NewBaseStage(StageIDPersist, StageNamePersist, []string{StageIDDimUsers, StageIDFacts}),
		publisher: publisher,
		tracer:    tracer,
		logger:    logger.With(slog.String("step", StageIDPersist)),
	}
}

// Validate requires a publisher
func (s *PersistStage) Validate(state *OperationState) error {
	if s.publisher == nil {
		return fmt.Errorf("no publisher configured")
	}
	return nil
}

// Execute writes every table and the manifest to the warehouse directory
func (s *PersistStage) Execute(ctx context.Context, state *OperationState) error {
	state.Report(fmt.Sprintf(progressWritingFormat, s.publisher.Dir()))

	files := append(s.publisher.FileNames(), exporter.ManifestFile)
	manifest := state.Manifest.Snapshot(string(OperationStatusCompleted), files)

	result, err := s.publisher.Publish(ctx, state.ID, state.Tables(), manifest)
	if err != nil {
		return err
	}
	state.SetResult(result)

	stepState := state.GetStage(s.ID())
	for table, n := range result.Rows {
		stepState.SetRows(table, n)
		if s.tracer != nil {
			s.tracer.RecordRows(ctx, table, n)
		}
	}
	s.logger.InfoContext(ctx, "warehouse published",
		slog.String("dir", result.Dir),
		slog.Any("files", result.Files))
	return nil
}

// SinkStage replaces the tables in the SQL warehouse after a successful publish
type SinkStage struct {
	BaseStage
	sink   TableSink
	logger *slog.Logger
}

// NewSinkStage creates a new sink step
func NewSinkStage(sink TableSink, logger *slog.Logger) *SinkStage {
	return &SinkStage{
		BaseStage: NewBaseStage(StageIDSink, StageNameSink, []string{StageIDPersist}),
		sink:      sink,
		logger:    logger.With(slog.String("step", StageIDSink)),
	}
}

// Execute replaces the SQL tables
func (s *SinkStage) Execute(ctx context.Context, state *OperationState) error {
	if err := s.sink.Replace(ctx, state.Tables()); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "sql warehouse replaced", slog.Any("rows", state.Tables().RowCounts()))
	return nil
}
