package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelcli/internal/config"
)

func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()
	base := t.TempDir()
	paths := config.NewPaths(filepath.Join(base, "raw"), filepath.Join(base, "warehouse"))
	return NewCSVWriter(paths, nil), paths
}

func readCSVFile(t *testing.T, path string) [][]string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	content = bytes.TrimPrefix(content, utf8BOM)

	records, err := csv.NewReader(bytes.NewReader(content)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		options  WriteOptions
		wantBOM  bool
		expected [][]string
	}{
		{
			name: "headers and records",
			options: WriteOptions{
				Headers: []string{"user_id", "country"},
				Records: [][]string{{"1", "DE"}, {"2", "AT"}},
			},
			expected: [][]string{{"user_id", "country"}, {"1", "DE"}, {"2", "AT"}},
		},
		{
			name: "with BOM",
			options: WriteOptions{
				Headers:   []string{"user_id"},
				Records:   [][]string{{"1"}},
				BOMPrefix: true,
			},
			wantBOM:  true,
			expected: [][]string{{"user_id"}, {"1"}},
		},
		{
			name: "quoted values",
			options: WriteOptions{
				Headers: []string{"category"},
				Records: [][]string{{"Food, Drinks"}, {`say "hi"`}},
			},
			expected: [][]string{{"category"}, {"Food, Drinks"}, {`say "hi"`}},
		},
		{
			name:     "empty records",
			options:  WriteOptions{Headers: []string{"user_id"}},
			expected: [][]string{{"user_id"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, paths := setupTestEnv(t)

			require.NoError(t, writer.WriteCSV("out.csv", tt.options))

			path := paths.GetWarehousePath("out.csv")
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(content, utf8BOM))
			assert.Equal(t, tt.expected, readCSVFile(t, path))
		})
	}
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	writer, _ := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "users.csv")

	require.NoError(t, writer.WriteCSV(path, WriteOptions{Headers: []string{"user_id"}, Records: [][]string{{"7"}}}))
	assert.Equal(t, [][]string{{"user_id"}, {"7"}}, readCSVFile(t, path))
}

func TestCSVWriter_TruncatesExisting(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("log.csv", WriteOptions{Headers: []string{"a"}, Records: [][]string{{"1"}, {"2"}}}))
	require.NoError(t, writer.WriteCSV("log.csv", WriteOptions{Headers: []string{"a"}, Records: [][]string{{"3"}}}))

	assert.Equal(t, [][]string{{"a"}, {"3"}}, readCSVFile(t, paths.GetWarehousePath("log.csv")))
}

func TestCSVWriter_Snappy(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteCSV("users.csv.sz", WriteOptions{
		Headers: []string{"user_id", "country"},
		Records: [][]string{{"1", "DE"}},
		Snappy:  true,
	}))

	file, err := os.Open(paths.GetWarehousePath("users.csv.sz"))
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(snappy.NewReader(file)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"user_id", "country"}, {"1", "DE"}}, records)
}

func TestCSVWriter_UnwritableDirectory(t *testing.T) {
	writer, _ := setupTestEnv(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := writer.WriteCSV(filepath.Join(blocker, "out.csv"), WriteOptions{Headers: []string{"a"}})
	assert.Error(t, err)
}
