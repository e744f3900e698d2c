package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. FUNNEL_PATHS_RAW_DIR.
const EnvPrefix = "FUNNEL"

// Config represents the complete application configuration
type Config struct {
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Schedule  ScheduleConfig  `yaml:"schedule" envconfig:"SCHEDULE"`
	Generator GeneratorConfig `yaml:"generator" envconfig:"GENERATOR"`
	Sink      SinkConfig      `yaml:"sink" envconfig:"SINK"`
}

// PathsConfig holds the source and destination locations. Relative paths
// are resolved against the executable directory.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir" envconfig:"RAW_DIR" validate:"required"`
	WarehouseDir string `yaml:"warehouse_dir" envconfig:"WAREHOUSE_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// OutputConfig selects the on-disk formats of the warehouse tables.
type OutputConfig struct {
	Formats   []string `yaml:"formats" envconfig:"FORMATS" validate:"required,min=1,dive,oneof=parquet csv xlsx"`
	CSVBOM    bool     `yaml:"csv_bom" envconfig:"CSV_BOM"`
	CSVSnappy bool     `yaml:"csv_snappy" envconfig:"CSV_SNAPPY"`
}

// PipelineConfig tunes stage execution.
type PipelineConfig struct {
	ParallelFacts bool `yaml:"parallel_facts" envconfig:"PARALLEL_FACTS"`
	// StageTimeouts overrides the per-stage timeout, e.g. "load:5m,persist:10m"
	StageTimeouts map[string]time.Duration `yaml:"stage_timeouts" envconfig:"STAGE_TIMEOUTS" validate:"dive,keys,oneof=load dim_users facts persist sink,endkeys,gt=0"`
}

// TelemetryConfig controls tracing and the metrics textfile.
type TelemetryConfig struct {
	TraceExporter   string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsTextfile string `yaml:"metrics_textfile" envconfig:"METRICS_TEXTFILE"`
}

// ScheduleConfig drives the daily orchestrator.
type ScheduleConfig struct {
	At         string        `yaml:"at" envconfig:"AT" validate:"required"`
	Retries    int           `yaml:"retries" envconfig:"RETRIES" validate:"min=0,max=5"`
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"min=0"`
	Generate   bool          `yaml:"generate" envconfig:"GENERATE"`
}

// GeneratorConfig seeds the synthetic data generator.
type GeneratorConfig struct {
	Seed  uint64 `yaml:"seed" envconfig:"SEED"`
	Users int    `yaml:"users" envconfig:"USERS" validate:"min=1"`
}

// SinkConfig enables publication into a SQL warehouse. An empty DSN disables it.
type SinkConfig struct {
	MySQLDSN  string `yaml:"mysql_dsn" envconfig:"MYSQL_DSN"`
	BatchSize int    `yaml:"batch_size" envconfig:"BATCH_SIZE" validate:"min=1,max=5000"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			RawDir:       filepath.Join("data", "raw"),
			WarehouseDir: filepath.Join("data", "warehouse"),
			LogsDir:      "logs",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: filepath.Join("logs", "etl.log"),
		},
		Output: OutputConfig{
			Formats: []string{"parquet"},
			CSVBOM:  true,
		},
		Pipeline: PipelineConfig{
			ParallelFacts: true,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
		},
		Schedule: ScheduleConfig{
			At:         "06:00",
			Retries:    1,
			RetryDelay: 10 * time.Minute,
			Generate:   true,
		},
		Generator: GeneratorConfig{
			Seed:  42,
			Users: 2000,
		},
		Sink: SinkConfig{
			BatchSize: 500,
		},
	}
}

// Load builds the configuration with precedence defaults < YAML file < environment.
// A .env file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// No default tags: unset variables leave the file/default values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags and the few cross-field rules tags can't express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
		return fmt.Errorf("invalid schedule time %q: want HH:MM", c.Schedule.At)
	}

	// Logs are always JSON
	if !strings.EqualFold(c.Logging.Format, "json") {
		c.Logging.Format = "json"
	}

	return nil
}

// ResolvePaths turns the configured locations into absolute Paths.
func (c *Config) ResolvePaths() (*Paths, error) {
	base, err := GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	return c.ResolvePathsFrom(base.ExecutableDir), nil
}

// ResolvePathsFrom resolves the configured locations against baseDir.
func (c *Config) ResolvePathsFrom(baseDir string) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	paths := NewPaths(resolve(c.Paths.RawDir), resolve(c.Paths.WarehouseDir))
	paths.ExecutableDir = baseDir
	paths.DataDir = filepath.Join(baseDir, "data")
	paths.LogsDir = resolve(c.Paths.LogsDir)
	if c.Logging.FilePath != "" {
		c.Logging.FilePath = resolve(c.Logging.FilePath)
	}
	return paths
}
