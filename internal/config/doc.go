// Package config provides configuration loading and path management for the
// funnel warehouse pipeline.
//
// # Configuration Sources
//
// Configuration is assembled in order of increasing precedence:
//
//	1. Default() values
//	2. A YAML file: $FUNNEL_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//	3. Environment variables (a ./.env file is loaded into the environment first)
//
// # Environment Variables
//
// All environment variables follow the pattern FUNNEL_<SECTION>_<FIELD>:
//
//	FUNNEL_PATHS_RAW_DIR=/srv/funnel/raw
//	FUNNEL_PATHS_WAREHOUSE_DIR=/srv/funnel/warehouse
//	FUNNEL_OUTPUT_FORMATS=parquet,csv
//	FUNNEL_LOGGING_LEVEL=debug
//	FUNNEL_SCHEDULE_AT=06:00
//
// # Path Management
//
// Paths carries the raw and warehouse directories into every pipeline stage.
// Tests build it directly with NewPaths(t.TempDir(), t.TempDir()).
package config
