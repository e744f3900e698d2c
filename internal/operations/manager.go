package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"funnelcli/internal/infrastructure"
)

// Manager runs the registered steps of one pipeline
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
	progress ProgressFunc
}

// NewManager creates a new pipeline manager. A nil tracer records nothing.
func NewManager(registry *Registry, cfg *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if cfg == nil {
		cfg = NewConfig()
	}
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Manager{
		registry: registry,
		config:   cfg,
		tracer:   tracer,
		logger:   infrastructure.WithComponent(logger, "operations"),
	}
}

// SetProgress installs the sink for human readable progress lines
func (m *Manager) SetProgress(fn ProgressFunc) {
	m.progress = fn
}

// Execute runs every registered step in dependency order. The run id is taken
// from ctx or generated. The returned state is non-nil even on failure.
func (m *Manager) Execute(ctx context.Context) (*OperationState, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	state := NewOperationState(runID)
	state.SetProgress(m.progress)

	ctx, span := m.tracer.TraceRun(ctx, runID)
	defer span.End()

	logger := infrastructure.LoggerWithContext(ctx, m.logger)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		opErr := NewFatalError("failed to get dependency order", err)
		state.Fail(opErr)
		state.Manifest.Finish(string(OperationStatusFailed))
		m.tracer.RecordRunCompletion(ctx, span, OperationStatusFailed, 0, opErr)
		return state, opErr
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	state.Start()
	state.Manifest.MarkRunning()
	logger.InfoContext(ctx, "pipeline_start",
		slog.Int("step_count", len(steps)),
		slog.Any("registered", m.registry.ListIDs()))

	err = m.executeSequential(ctx, state, steps, logger)

	duration := time.Since(state.StartTime)
	switch {
	case err == nil:
		state.Complete()
		state.Manifest.Finish(string(OperationStatusCompleted))
		logger.InfoContext(ctx, "pipeline_completed", slog.Duration("duration", duration))
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
		state.Error = err
		state.Manifest.Finish(string(OperationStatusCancelled))
		infrastructure.WithError(logger, err).WarnContext(ctx, "pipeline_cancelled")
	default:
		state.Fail(err)
		state.Manifest.Finish(string(OperationStatusFailed))
		infrastructure.WithError(logger, err).ErrorContext(ctx, "pipeline_failed",
			slog.Bool("retryable", IsRetryable(err)),
			slog.Duration("duration", duration))
	}

	m.tracer.RecordRunCompletion(ctx, span, state.GetStatus(), duration, err)
	return state, err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step, logger *slog.Logger) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			logger.WarnContext(ctx, "operation_cancelled", slog.String("step", step.ID()))
			m.skipDependentStages(state, step.ID(), true)
			return NewCancellationError(step.ID(), err)
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			logger.InfoContext(ctx, "stage_skipped", slog.String("step", step.ID()))
			continue
		}

		logger.InfoContext(ctx, "executing_stage",
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		if err := m.executeStage(ctx, state, step, logger); err != nil {
			m.skipDependentStages(state, step.ID(), false)
			return err
		}
	}
	return nil
}

// executeStage executes a single step
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, logger *slog.Logger) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("state for step %s not found", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		state.Manifest.RecordStageSkipped(step.ID(), step.Name())
		return err
	}

	if err := step.Validate(state); err != nil {
		opErr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(opErr)
		state.Manifest.RecordStageStart(step.ID(), step.Name())
		state.Manifest.RecordStageFailure(step.ID(), opErr)
		return opErr
	}

	stageCtx, cancel := context.WithTimeout(ctx, m.config.GetStageTimeout(step.ID()))
	defer cancel()

	stageCtx, span := m.tracer.TraceStage(stageCtx, state.ID, step.ID())
	defer span.End()

	stepState.Start()
	state.Manifest.RecordStageStart(step.ID(), step.Name())

	start := time.Now()
	err := step.Execute(stageCtx, state)
	duration := time.Since(start)

	if err != nil {
		opErr := WrapError(err, step.ID())
		stepState.Fail(opErr)
		state.Manifest.RecordStageFailure(step.ID(), err)
		m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), duration, nil, opErr)
		infrastructure.WithError(logger, err).ErrorContext(stageCtx, "stage_execution_failed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
		return opErr
	}

	stepState.Complete()
	state.Manifest.RecordStageCompletion(step.ID(), stepState.Rows)
	m.tracer.RecordStageCompletion(stageCtx, span, step.ID(), duration, stepState.Rows, nil)
	logger.InfoContext(stageCtx, "stage_completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration),
		slog.Any("rows", stepState.Rows))
	return nil
}

// skipDependentStages marks every step that depends on the failed step as
// skipped. When includeSelf is set the named step is skipped too.
func (m *Manager) skipDependentStages(state *OperationState, failedStepID string, includeSelf bool) {
	dependents := m.registry.GetDependents(failedStepID)
	if includeSelf {
		if step, err := m.registry.Get(failedStepID); err == nil {
			dependents = append([]Step{step}, dependents...)
		}
	}

	for _, step := range dependents {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(fmt.Sprintf("dependency %s did not complete", failedStepID))
			state.Manifest.RecordStageSkipped(step.ID(), step.Name())
		}
	}
}

// checkDependencies verifies that all dependencies are satisfied
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not found", dep))
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}
