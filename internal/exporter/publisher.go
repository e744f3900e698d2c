package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/pkg/contracts/domain"
)

// Output formats
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatXLSX    = "xlsx"
)

// ManifestFile is published next to the tables
const ManifestFile = "manifest.json"

const stagingPrefix = ".staging-"

// PublishResult describes a successful publish.
type PublishResult struct {
	Dir   string         `json:"dir"`
	Files []string       `json:"files"`
	Rows  map[string]int `json:"rows"`
}

// Publisher writes the warehouse tables to a staging directory inside the
// warehouse directory and renames them into place once every write succeeded.
type Publisher struct {
	paths  *config.Paths
	output config.OutputConfig
	csv    *CSVWriter
	logger *slog.Logger
}

// NewPublisher creates a publisher for the configured formats.
func NewPublisher(paths *config.Paths, output config.OutputConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(output.Formats) == 0 {
		output.Formats = []string{FormatParquet}
	}
	return &Publisher{
		paths:  paths,
		output: output,
		csv:    NewCSVWriter(paths, logger),
		logger: logger,
	}
}

// Dir returns the warehouse directory files are published to.
func (p *Publisher) Dir() string {
	return p.paths.WarehouseDir
}

// FileNames returns the table file names a publish will produce, in order,
// without the manifest.
func (p *Publisher) FileNames() []string {
	var names []string
	for _, table := range domain.WarehouseTableNames {
		for _, format := range p.output.Formats {
			names = append(names, table+p.extension(format))
		}
	}
	return names
}

func (p *Publisher) extension(format string) string {
	switch format {
	case FormatCSV:
		if p.output.CSVSnappy {
			return ".csv" + SnappyExtension
		}
		return ".csv"
	default:
		return "." + format
	}
}

// Publish writes every table in every configured format plus the manifest.
// Nothing is renamed into the warehouse directory unless all writes succeed,
// and the staging directory is removed on every exit path. A nil manifest
// skips manifest.json.
func (p *Publisher) Publish(ctx context.Context, runID string, tables *domain.WarehouseTables, manifest interface{}) (*PublishResult, error) {
	if tables == nil {
		return nil, errors.NewAppValidationError("no warehouse tables to publish")
	}
	if runID == "" {
		runID = uuid.New().String()
	}

	if err := os.MkdirAll(p.paths.WarehouseDir, 0755); err != nil {
		return nil, errors.NewIOError("failed to create warehouse directory", err).
			WithContext("path", p.paths.WarehouseDir)
	}

	staging, err := os.MkdirTemp(p.paths.WarehouseDir, stagingPrefix+runID+"-")
	if err != nil {
		return nil, errors.NewIOError("failed to create staging directory", err).
			WithContext("path", p.paths.WarehouseDir)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			p.logger.Warn("Failed to remove staging directory",
				slog.String("path", staging),
				slog.String("error", err.Error()))
		}
	}()

	p.logger.InfoContext(ctx, "Staging warehouse tables",
		slog.String("staging_dir", staging),
		slog.Any("formats", p.output.Formats))

	result := &PublishResult{Dir: p.paths.WarehouseDir, Rows: tables.RowCounts()}

	for _, td := range warehouseTables(tables) {
		for _, format := range p.output.Formats {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			name := td.name + p.extension(format)
			if err := p.writeTable(filepath.Join(staging, name), format, td); err != nil {
				return nil, errors.NewIOError(fmt.Sprintf("failed to write %s", name), err).
					WithContext("table", td.name).
					WithContext("format", format)
			}
			result.Files = append(result.Files, name)

			p.logger.DebugContext(ctx, "Staged table",
				slog.String("file", name),
				slog.Int("rows", td.rows))
		}
	}

	if manifest != nil {
		if err := writeManifest(filepath.Join(staging, ManifestFile), manifest); err != nil {
			return nil, errors.NewIOError("failed to write manifest", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Each rename is atomic; the set of files is not.
	publish := slices.Clone(result.Files)
	if manifest != nil {
		publish = append(publish, ManifestFile)
	}
	for _, name := range publish {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(p.paths.WarehouseDir, name)); err != nil {
			return nil, errors.NewIOError(fmt.Sprintf("failed to publish %s", name), err)
		}
	}
	result.Files = publish

	p.logger.InfoContext(ctx, "Published warehouse tables",
		slog.String("dir", p.paths.WarehouseDir),
		slog.Int("files", len(result.Files)))

	return result, nil
}

func (p *Publisher) writeTable(path, format string, td tableData) error {
	switch format {
	case FormatParquet:
		return td.parquet(path)
	case FormatCSV:
		stream, err := p.csv.CreateStreamWriter(path, td.headers, StreamOptions{
			BOMPrefix: p.output.CSVBOM,
			Snappy:    p.output.CSVSnappy,
		})
		if err != nil {
			return err
		}
		for _, record := range td.records() {
			if err := stream.WriteRecord(record); err != nil {
				stream.Close()
				return err
			}
		}
		return stream.Close()
	case FormatXLSX:
		return writeXLSX(path, td)
	default:
		return fmt.Errorf("unsupported output format %q (want one of %s)", format,
			strings.Join([]string{FormatParquet, FormatCSV, FormatXLSX}, ", "))
	}
}

func writeManifest(path string, manifest interface{}) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
