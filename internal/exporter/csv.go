package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"funnelcli/internal/config"
)

// SnappyExtension is appended to CSV files written with snappy framing
const SnappyExtension = ".sz"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative file paths are
// resolved against the warehouse directory.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	Snappy    bool // Wrap the file in the snappy framing format
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	stream, err := newStream(file, options.BOMPrefix, options.Snappy)
	if err != nil {
		return err
	}

	if len(options.Headers) > 0 {
		if err := stream.WriteRecord(options.Headers); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	return stream.Close()
}

// StreamWriter provides streaming CSV writing for large datasets
type StreamWriter struct {
	file   *os.File
	snappy *snappy.Writer
	writer *csv.Writer
}

// StreamOptions configures a StreamWriter
type StreamOptions struct {
	BOMPrefix bool
	Snappy    bool
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, opts StreamOptions) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Creating CSV stream writer",
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)),
		slog.Bool("snappy", opts.Snappy))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	stream, err := newStream(file, opts.BOMPrefix, opts.Snappy)
	if err != nil {
		return nil, err
	}

	if len(headers) > 0 {
		if err := stream.WriteRecord(headers); err != nil {
			stream.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return stream, nil
}

func newStream(file *os.File, bom, compress bool) (*StreamWriter, error) {
	stream := &StreamWriter{file: file}

	var out io.Writer = file
	if compress {
		stream.snappy = snappy.NewBufferedWriter(file)
		out = stream.snappy
	}

	if bom {
		if _, err := out.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	stream.writer = csv.NewWriter(out)
	return stream, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	return s.writer.Write(record)
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	if s.snappy != nil {
		if err := s.snappy.Close(); err != nil {
			s.file.Close()
			return fmt.Errorf("failed to close snappy stream: %w", err)
		}
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return s.file.Close()
}

// resolvePath resolves relative paths against the warehouse directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return w.paths.GetWarehousePath(filePath)
}
