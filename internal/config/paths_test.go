package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathsFromBase(t *testing.T) {
	base := filepath.Join("opt", "funnel")
	paths := NewPathsFromBase(base)

	assert.Equal(t, base, paths.ExecutableDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "raw"), paths.RawDir)
	assert.Equal(t, filepath.Join(base, "data", "warehouse"), paths.WarehouseDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
}

func TestGetPaths_RelativeToExecutable(t *testing.T) {
	paths, err := GetPaths()
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)
	exe, err = filepath.EvalSymlinks(exe)
	require.NoError(t, err)

	assert.Equal(t, filepath.Dir(exe), paths.ExecutableDir)
}

func TestPaths_FileHelpers(t *testing.T) {
	paths := NewPaths("/raw", "/warehouse")

	assert.Equal(t, filepath.Join("/raw", "users.csv"), paths.GetRawPath("users"))
	assert.Equal(t, filepath.Join("/warehouse", "dim_users.parquet"), paths.GetWarehousePath("dim_users.parquet"))
}

func TestEnsureDirectories_DoesNotCreateRaw(t *testing.T) {
	base := t.TempDir()
	paths := NewPathsFromBase(base)

	require.NoError(t, paths.EnsureDirectories())

	assert.DirExists(t, paths.WarehouseDir)
	assert.DirExists(t, paths.LogsDir)
	assert.NoDirExists(t, paths.RawDir)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "users.csv")

	assert.False(t, FileExists(file))
	require.NoError(t, os.WriteFile(file, []byte("user_id\n"), 0644))
	assert.True(t, FileExists(file))
}

func TestLogPathResolution_RawPresence(t *testing.T) {
	tests := []struct {
		name      string
		createRaw bool
		want      bool
	}{
		{name: "raw directory missing", want: false},
		{name: "raw directory present", createRaw: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := NewPathsFromBase(t.TempDir())
			if tt.createRaw {
				require.NoError(t, os.MkdirAll(paths.RawDir, 0755))
			}

			var buf bytes.Buffer
			paths.LogPathResolution(slog.New(slog.NewJSONHandler(&buf, nil)))

			var entry map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.want, entry["raw_present"])
		})
	}
}
