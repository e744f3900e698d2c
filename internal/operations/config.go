package operations

import (
	"time"

	"funnelcli/internal/config"
)

// DefaultStageTimeout bounds any step without an explicit timeout
const DefaultStageTimeout = 30 * time.Minute

// Config represents the pipeline execution configuration
type Config struct {
	// Build fct_transactions and fct_funnel concurrently
	ParallelFacts bool `json:"parallel_facts"`

	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		ParallelFacts: true,
		StageTimeouts: make(map[string]time.Duration),
	}
}

// ConfigFromPipeline maps the application pipeline settings
func ConfigFromPipeline(cfg config.PipelineConfig) *Config {
	c := NewConfig()
	c.ParallelFacts = cfg.ParallelFacts
	for stepID, timeout := range cfg.StageTimeouts {
		c.SetStageTimeout(stepID, timeout)
	}
	return c
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stepID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stepID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stepID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stepID] = timeout
}
