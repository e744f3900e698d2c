package operations

import (
	"sync"
	"time"

	"funnelcli/internal/exporter"
	"funnelcli/pkg/contracts/domain"
)

// OperationStatus represents the overall run status
type OperationStatus string

const (
	OperationStatusPending   OperationStatus = "pending"
	OperationStatusRunning   OperationStatus = "running"
	OperationStatusCompleted OperationStatus = "completed"
	OperationStatusFailed    OperationStatus = "failed"
	OperationStatusCancelled OperationStatus = "cancelled"
)

// ProgressFunc receives human readable progress lines
type ProgressFunc func(message string)

// OperationState represents the complete state of one pipeline run.
// Steps hand their results to later steps through the typed fields.
type OperationState struct {
	mu sync.RWMutex

	ID        string          `json:"id"`
	Status    OperationStatus `json:"status"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Manifest is published next to the warehouse tables
	Manifest *RunManifest `json:"-"`

	raw      *domain.RawTables
	tables   *domain.WarehouseTables
	result   *exporter.PublishResult
	progress ProgressFunc

	Error error `json:"-"`
}

// NewOperationState creates a new run state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Manifest:  NewRunManifest(id),
		tables:    &domain.WarehouseTables{},
	}
}

// Start marks the run as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the run as completed
func (p *OperationState) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
}

// Fail marks the run as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the run as cancelled
func (p *OperationState) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
}

// GetStatus returns the current run status
func (p *OperationState) GetStatus() OperationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage sets the state for a specific step
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// SetProgress installs the progress sink
func (p *OperationState) SetProgress(fn ProgressFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = fn
}

// Report forwards a progress line to the installed sink, if any
func (p *OperationState) Report(message string) {
	p.mu.RLock()
	fn := p.progress
	p.mu.RUnlock()
	if fn != nil {
		fn(message)
	}
}

// SetRaw stores the loaded source tables
func (p *OperationState) SetRaw(raw *domain.RawTables) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.raw = raw
}

// Raw returns the loaded source tables
func (p *OperationState) Raw() *domain.RawTables {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.raw
}

// Tables returns the warehouse tables built so far
func (p *OperationState) Tables() *domain.WarehouseTables {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tables
}

// SetDimUsers stores the built dim_users rows
func (p *OperationState) SetDimUsers(rows []domain.UserDimension) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables.DimUsers = rows
}

// SetFacts stores the built fact rows
func (p *OperationState) SetFacts(transactions []domain.TransactionFact, funnel []domain.FunnelFact) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tables.FctTransactions = transactions
	p.tables.FctFunnel = funnel
}

// SetResult stores the publish result
func (p *OperationState) SetResult(result *exporter.PublishResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = result
}

// Result returns the publish result, nil before the persist step
func (p *OperationState) Result() *exporter.PublishResult {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}
