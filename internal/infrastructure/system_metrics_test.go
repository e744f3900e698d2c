package infrastructure

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemMetrics_Collect(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.MetricsTextfile = filepath.Join(t.TempDir(), "etl.prom")

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	sm, err := NewSystemMetrics(providers.Meter)
	require.NoError(t, err)

	stats := sm.Collect(context.Background(), "facts")
	assert.Positive(t, stats.GoRoutines)
	assert.Positive(t, stats.HeapInUse)
	assert.Positive(t, stats.MemorySys)

	require.NoError(t, providers.WriteMetricsTextfile())
	content, err := os.ReadFile(cfg.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "etl_heap_inuse_bytes")
	assert.Contains(t, string(content), `stage="facts"`)
}

func TestSystemMetrics_NilSafe(t *testing.T) {
	var sm *SystemMetrics
	stats := sm.Collect(context.Background(), "load")
	assert.Positive(t, stats.GoRoutines)

	noopMetrics, err := NewSystemMetrics(nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { noopMetrics.Collect(context.Background(), "load") })
}
