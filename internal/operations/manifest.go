package operations

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"funnelcli/pkg/contracts"
)

// RunManifest describes one pipeline run. It is published as manifest.json
// next to the warehouse tables.
type RunManifest struct {
	mu sync.RWMutex

	RunID         string `json:"run_id"`
	FormatVersion string `json:"format_version"`

	Status    string     `json:"status"` // "pending", "running", "completed", "failed"
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  string     `json:"duration,omitempty"`

	Stages []StageExecution `json:"stages"`
	Rows   map[string]int   `json:"rows"`
	Files  []string         `json:"files,omitempty"`

	Error string `json:"error,omitempty"`
}

// StageExecution tracks the execution of a single step
type StageExecution struct {
	StageID   string         `json:"stage_id"`
	StageName string         `json:"stage_name"`
	StartTime time.Time      `json:"start_time"`
	EndTime   *time.Time     `json:"end_time,omitempty"`
	Duration  string         `json:"duration,omitempty"`
	Status    string         `json:"status"` // "running", "completed", "failed", "skipped"
	Rows      map[string]int `json:"rows,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// NewRunManifest creates a new run manifest
func NewRunManifest(runID string) *RunManifest {
	return &RunManifest{
		RunID:         runID,
		FormatVersion: contracts.DataFormatVersion,
		Status:        "pending",
		StartTime: time.Now().UTC(),
		Stages:    []StageExecution{},
		Rows:      make(map[string]int),
	}
}

// MarkRunning records the start of the run
func (m *RunManifest) MarkRunning() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = "running"
	m.StartTime = time.Now().UTC()
}

// RecordStageStart records the start of a step execution
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now().UTC(),
		Status:    "running",
	})
}

// RecordStageCompletion records the completion of a step and the rows it produced
func (m *RunManifest) RecordStageCompletion(stageID string, rows map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stage := m.find(stageID); stage != nil {
		m.finish(stage, "completed")
		if len(rows) > 0 {
			stage.Rows = maps.Clone(rows)
		}
	}
	for table, n := range rows {
		m.Rows[table] = n
	}
}

// RecordStageFailure records a step failure and fails the run
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stage := m.find(stageID); stage != nil {
		m.finish(stage, "failed")
		stage.Error = err.Error()
	}
	m.Status = "failed"
	m.Error = fmt.Sprintf("stage %s failed: %v", stageID, err)
}

// RecordStageSkipped records a step that never ran
func (m *RunManifest) RecordStageSkipped(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now().UTC(),
		Status:    "skipped",
	})
}

// Finish sets the final run status
func (m *RunManifest) Finish(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	m.Status = status
	m.EndTime = &now
	m.Duration = now.Sub(m.StartTime).String()
}

// Snapshot returns a copy that can be serialized while the run continues.
// The persist step publishes a snapshot taken with status "completed" and the
// final file list, since the manifest only becomes visible if every write succeeded.
func (m *RunManifest) Snapshot(status string, files []string) *RunManifest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now().UTC()
	snap := &RunManifest{
		RunID:         m.RunID,
		FormatVersion: m.FormatVersion,
		Status:        status,
		StartTime:     m.StartTime,
		EndTime:       &now,
		Duration:      now.Sub(m.StartTime).String(),
		Stages:        slices.Clone(m.Stages),
		Rows:          maps.Clone(m.Rows),
		Files:         slices.Clone(files),
		Error:         m.Error,
	}
	for i := range snap.Stages {
		if snap.Stages[i].Status == "running" {
			finishAt(&snap.Stages[i], status, now)
		}
	}
	return snap
}

// SaveToFile saves the manifest to a JSON file
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if manifest.Rows == nil {
		manifest.Rows = make(map[string]int)
	}
	return &manifest, nil
}

func (m *RunManifest) find(stageID string) *StageExecution {
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return &m.Stages[i]
		}
	}
	return nil
}

func (m *RunManifest) finish(stage *StageExecution, status string) {
	finishAt(stage, status, time.Now().UTC())
}

func finishAt(stage *StageExecution, status string, at time.Time) {
	stage.EndTime = &at
	stage.Duration = at.Sub(stage.StartTime).String()
	stage.Status = status
}
