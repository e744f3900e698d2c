package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"parquet"}, cfg.Output.Formats)
	assert.True(t, cfg.Pipeline.ParallelFacts)
	assert.Equal(t, "06:00", cfg.Schedule.At)
	assert.Equal(t, 1, cfg.Schedule.Retries)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.RetryDelay)
	assert.Equal(t, uint64(42), cfg.Generator.Seed)
	assert.Equal(t, 2000, cfg.Generator.Users)
	assert.Empty(t, cfg.Sink.MySQLDSN)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FUNNEL_PATHS_RAW_DIR", "/srv/raw")
	t.Setenv("FUNNEL_PATHS_WAREHOUSE_DIR", "/srv/warehouse")
	t.Setenv("FUNNEL_OUTPUT_FORMATS", "parquet,csv")
	t.Setenv("FUNNEL_PIPELINE_PARALLEL_FACTS", "false")
	t.Setenv("FUNNEL_SCHEDULE_RETRY_DELAY", "30s")
	t.Setenv("FUNNEL_PIPELINE_STAGE_TIMEOUTS", "load:5m,persist:90s")

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("logging:\n  level: debug\n"), 0644))
	t.Setenv("FUNNEL_CONFIG_FILE", file)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/raw", cfg.Paths.RawDir)
	assert.Equal(t, "/srv/warehouse", cfg.Paths.WarehouseDir)
	assert.Equal(t, []string{"parquet", "csv"}, cfg.Output.Formats)
	assert.False(t, cfg.Pipeline.ParallelFacts)
	assert.Equal(t, 30*time.Second, cfg.Schedule.RetryDelay)
	assert.Equal(t, map[string]time.Duration{"load": 5 * time.Minute, "persist": 90 * time.Second}, cfg.Pipeline.StageTimeouts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched defaults survive
	assert.Equal(t, "06:00", cfg.Schedule.At)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := "paths:\n  raw_dir: /from/file/raw\n  warehouse_dir: /from/file/warehouse\noutput:\n  formats: [csv]\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	t.Setenv("FUNNEL_CONFIG_FILE", file)
	t.Setenv("FUNNEL_PATHS_RAW_DIR", "/from/env/raw")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/from/env/raw", cfg.Paths.RawDir)
	assert.Equal(t, "/from/file/warehouse", cfg.Paths.WarehouseDir)
	assert.Equal(t, []string{"csv"}, cfg.Output.Formats)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown format", func(c *Config) { c.Output.Formats = []string{"orc"} }},
		{"no formats", func(c *Config) { c.Output.Formats = nil }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"bad trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "otlp" }},
		{"bad schedule time", func(c *Config) { c.Schedule.At = "6 o'clock" }},
		{"too many retries", func(c *Config) { c.Schedule.Retries = 9 }},
		{"empty raw dir", func(c *Config) { c.Paths.RawDir = "" }},
		{"zero users", func(c *Config) { c.Generator.Users = 0 }},
		{"unknown stage timeout", func(c *Config) { c.Pipeline.StageTimeouts = map[string]time.Duration{"export": time.Minute} }},
		{"zero stage timeout", func(c *Config) { c.Pipeline.StageTimeouts = map[string]time.Duration{"load": 0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_ForcesJSONLogs(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestResolvePathsFrom(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.WarehouseDir = "/abs/warehouse"

	paths := cfg.ResolvePathsFrom(base)

	assert.Equal(t, filepath.Join(base, "data", "raw"), paths.RawDir)
	assert.Equal(t, "/abs/warehouse", paths.WarehouseDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, base, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "logs", "etl.log"), cfg.Logging.FilePath)
}
