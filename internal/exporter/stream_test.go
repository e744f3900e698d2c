package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"strconv"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_CreateStreamWriter(t *testing.T) {
	tests := []struct {
		name    string
		opts    StreamOptions
		wantBOM bool
	}{
		{"plain", StreamOptions{}, false},
		{"bom", StreamOptions{BOMPrefix: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, paths := setupTestEnv(t)

			stream, err := writer.CreateStreamWriter("fct_funnel.csv", FctFunnelHeaders, tt.opts)
			require.NoError(t, err)
			require.NoError(t, stream.WriteRecord([]string{"0", "1", "1", "VIEWED_SIGNUP", "2024-01-01 00:00:00"}))
			require.NoError(t, stream.Close())

			path := paths.GetWarehousePath("fct_funnel.csv")
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(content, utf8BOM))

			records := readCSVFile(t, path)
			require.Len(t, records, 2)
			assert.Equal(t, FctFunnelHeaders, records[0])
			assert.Equal(t, "VIEWED_SIGNUP", records[1][3])
		})
	}
}

func TestStreamWriter_LargeSnappyStream(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("big.csv.sz", []string{"n"}, StreamOptions{Snappy: true})
	require.NoError(t, err)
	for i := 0; i < 10000; i++ {
		require.NoError(t, stream.WriteRecord([]string{strconv.Itoa(i)}))
	}
	require.NoError(t, stream.Close())

	file, err := os.Open(paths.GetWarehousePath("big.csv.sz"))
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(snappy.NewReader(file)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 10001)
	assert.Equal(t, "9999", records[10000][0])
}
