package smaq

import (
	"fmt"
	"time"
)

// Config consolidates all tunable settings for the engine: the backing DuckDB connection, the
// economic controller's constants, storage locations, logging, and worker pool sizing.
// Grounded on the teacher's nested Config/DefaultConfig/Validate pattern.
type Config struct {
	DuckDB     DuckDBConfig     `json:"duckdb" yaml:"duckdb"`
	Store      StoreConfig      `json:"store" yaml:"store"`
	Controller ControllerConfig `json:"controller" yaml:"controller"`
	Executor   ExecutorConfig   `json:"executor" yaml:"executor"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Strict     bool             `json:"strict" yaml:"strict"` // validate the config document against JSON Schema; stats.json is not schema-validated
}

// DuckDBConfig mirrors the teacher's forma.DuckDBConfig shape (internal/duckdb_conn.go),
// generalised for the parquet-scanning backend instead of a Postgres-fronting OLAP mirror.
type DuckDBConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	DBPath         string   `json:"dbPath" yaml:"dbPath"` // "" or ":memory:" for in-memory
	MaxConnections int      `json:"maxConnections" yaml:"maxConnections"`
	Extensions     []string `json:"extensions" yaml:"extensions"`
	EnableParquet  bool     `json:"enableParquet" yaml:"enableParquet"`
	EnableS3       bool     `json:"enableS3" yaml:"enableS3"`
	S3Region       string   `json:"s3Region" yaml:"s3Region"`
	S3Endpoint     string   `json:"s3Endpoint" yaml:"s3Endpoint"`
	// S3AccessKey/S3SecretKey are left empty by default: when EnableS3 is set and these are
	// blank, credentials are resolved through the AWS SDK's default provider chain instead of
	// being baked into PRAGMA statements (see internal/backend).
	S3AccessKey string `json:"s3AccessKey,omitempty" yaml:"s3AccessKey,omitempty"`
	S3SecretKey string `json:"s3SecretKey,omitempty" yaml:"s3SecretKey,omitempty"`
}

// StoreConfig configures the on-disk SMA artifact cache and the stats document location.
type StoreConfig struct {
	BaseDir   string `json:"baseDir" yaml:"baseDir"`
	StatsFile string `json:"statsFile" yaml:"statsFile"`
}

// ControllerConfig holds the economic controller's tunables (spec §4.5).
type ControllerConfig struct {
	DepositFactor      float64 `json:"depositFactor" yaml:"depositFactor"`
	ReinvestFactor     float64 `json:"reinvestFactor" yaml:"reinvestFactor"`
	ProbePenaltyFactor float64 `json:"probePenaltyFactor" yaml:"probePenaltyFactor"`
	RecencyWindow      int64   `json:"recencyWindow" yaml:"recencyWindow"`
	IQRMultiplier      float64 `json:"iqrMultiplier" yaml:"iqrMultiplier"`
}

// ExecutorConfig sizes the background build worker pool (spec §9's "task submission").
type ExecutorConfig struct {
	MaxParallelBuilds int           `json:"maxParallelBuilds" yaml:"maxParallelBuilds"`
	BackendTimeout    time.Duration `json:"backendTimeout" yaml:"backendTimeout"`
}

// LoggingConfig carries a logging level and format. Nothing in this module reads it: the CLI
// builds its zap logger before the config is loaded, choosing the format from SMAQ_LOG_FORMAT.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "json" or "console"
}

// DefaultConfig returns a configuration with the constants spec §4.5 and
// original_source/quackdb/core.py name.
func DefaultConfig() *Config {
	return &Config{
		DuckDB: DuckDBConfig{
			Enabled:        true,
			DBPath:         ":memory:",
			MaxConnections: 1,
			EnableParquet:  true,
			EnableS3:       false,
		},
		Store: StoreConfig{
			BaseDir:   "./sma",
			StatsFile: "stats.json",
		},
		Controller: ControllerConfig{
			DepositFactor:      0.1,
			ReinvestFactor:     0.5,
			ProbePenaltyFactor: 0.5,
			RecencyWindow:      5,
			IQRMultiplier:      1.5,
		},
		Executor: ExecutorConfig{
			MaxParallelBuilds: 4,
			BackendTimeout:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.Store.BaseDir == "" {
		return NewConfigError("store.baseDir", "must not be empty")
	}
	if c.Store.StatsFile == "" {
		return NewConfigError("store.statsFile", "must not be empty")
	}
	if c.Controller.DepositFactor < 0 {
		return NewConfigError("controller.depositFactor", "must be >= 0")
	}
	if c.Controller.ReinvestFactor < 0 {
		return NewConfigError("controller.reinvestFactor", "must be >= 0")
	}
	if c.Controller.ProbePenaltyFactor < 0 {
		return NewConfigError("controller.probePenaltyFactor", "must be >= 0")
	}
	if c.Controller.RecencyWindow <= 0 {
		return NewConfigError("controller.recencyWindow", "must be > 0")
	}
	if c.Controller.IQRMultiplier <= 0 {
		return NewConfigError("controller.iqrMultiplier", "must be > 0")
	}
	if c.Executor.MaxParallelBuilds <= 0 {
		return NewConfigError("executor.maxParallelBuilds", "must be > 0")
	}
	return nil
}

// String renders a short human-readable summary, useful in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{baseDir=%s duckdb=%s maxBuilds=%d}", c.Store.BaseDir, c.DuckDB.DBPath, c.Executor.MaxParallelBuilds)
}
