package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the directories a pipeline run reads from and writes to.
// It is passed explicitly into every stage; nothing in the pipeline looks
// up directories on its own.
type Paths struct {
	ExecutableDir string
	DataDir       string
	RawDir        string
	WarehouseDir  string
	LogsDir       string
}

// GetPaths returns the default paths relative to the executable location.
//
//	<exe dir>/
//	  ├── data/
//	  │   ├── raw/        (generator output, pipeline input)
//	  │   └── warehouse/  (published tables)
//	  └── logs/
func GetPaths() (*Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %v", err)
	}

	// Resolve symlinks to get the actual executable location
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return NewPathsFromBase(filepath.Dir(exe)), nil
}

// NewPathsFromBase lays out the default directory structure under baseDir.
func NewPathsFromBase(baseDir string) *Paths {
	dataDir := filepath.Join(baseDir, "data")
	return &Paths{
		ExecutableDir: baseDir,
		DataDir:       dataDir,
		RawDir:        filepath.Join(dataDir, "raw"),
		WarehouseDir:  filepath.Join(dataDir, "warehouse"),
		LogsDir:       filepath.Join(baseDir, "logs"),
	}
}

// NewPaths builds Paths for an explicit raw and warehouse directory pair.
func NewPaths(rawDir, warehouseDir string) *Paths {
	return &Paths{
		RawDir:       rawDir,
		WarehouseDir: warehouseDir,
	}
}

// EnsureDirectories creates the warehouse and logs directories if they don't
// exist. The raw directory is never created here: a missing raw directory
// must surface as a missing source.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.WarehouseDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetRawPath returns the CSV path of a raw source table.
func (p *Paths) GetRawPath(table string) string {
	return filepath.Join(p.RawDir, table+".csv")
}

// GetWarehousePath returns the path of a published warehouse file.
func (p *Paths) GetWarehousePath(filename string) string {
	return filepath.Join(p.WarehouseDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved directories
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("executable", p.ExecutableDir),
			slog.String("raw", p.RawDir),
			slog.String("warehouse", p.WarehouseDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Bool("raw_present", FileExists(p.RawDir)))
}
