// Package backend wraps the DuckDB backing engine this module accelerates: parquet/httpfs
// extension loading, S3 credential configuration, and the two query shapes the rest of the
// module needs (a full-file read for the SMA Builder, and an arbitrary fallback SQL scan
// for the Query Executor). Adapted from the teacher's internal/duckdb_conn.go.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"

	"github.com/lychee-technology/smaq"
)

// Engine wraps a database/sql DB opened against the DuckDB driver, configured per
// smaq.DuckDBConfig.
type Engine struct {
	db  *sql.DB
	cfg smaq.DuckDBConfig
	log *zap.Logger
}

// Open opens and configures a DuckDB engine: extension loading (parquet/httpfs) and, when
// S3 is enabled, the S3 PRAGMA values resolved by ResolveS3Credentials.
func Open(ctx context.Context, cfg smaq.DuckDBConfig, creds S3Credentials, log *zap.Logger) (*Engine, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("duckdb backend disabled in config")
	}
	if log == nil {
		log = zap.NewNop()
	}

	dsn := cfg.DBPath
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	db.SetMaxOpenConns(1)
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	for _, ext := range cfg.Extensions {
		installLoad(ctx, db, log, ext)
	}

	if cfg.EnableParquet {
		installLoad(ctx, db, log, "parquet")
	}

	if cfg.EnableS3 {
		installLoad(ctx, db, log, "httpfs")
		applyS3Pragmas(ctx, db, log, cfg, creds)
	}

	return &Engine{db: db, cfg: cfg, log: log}, nil
}

func installLoad(ctx context.Context, db *sql.DB, log *zap.Logger, extension string) {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("INSTALL %s;", extension)); err != nil {
		log.Warn("duckdb: install extension failed", zap.String("extension", extension), zap.Error(err))
		return
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("LOAD %s;", extension)); err != nil {
		log.Warn("duckdb: load extension failed", zap.String("extension", extension), zap.Error(err))
	}
}

func applyS3Pragmas(ctx context.Context, db *sql.DB, log *zap.Logger, cfg smaq.DuckDBConfig, creds S3Credentials) {
	accessKey, secretKey, sessionToken := cfg.S3AccessKey, cfg.S3SecretKey, ""
	if accessKey == "" {
		accessKey, secretKey, sessionToken = creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken
	}

	pragmas := map[string]string{
		"s3_access_key": accessKey,
		"s3_secret_key": secretKey,
		"s3_session_token": sessionToken,
		"s3_region":     cfg.S3Region,
		"s3_endpoint":   cfg.S3Endpoint,
	}
	for name, value := range pragmas {
		if value == "" {
			continue
		}
		stmt := fmt.Sprintf("PRAGMA %s='%s';", name, strings.ReplaceAll(value, "'", "''"))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Warn("duckdb: set pragma failed", zap.String("pragma", name), zap.Error(err))
		}
	}
}

// Close closes the underlying database/sql handle.
func (e *Engine) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// HealthCheck performs a cheap round-trip query. Nothing in this module calls it; the
// executor's circuit breaker is driven by build outcomes only.
func (e *Engine) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var v int
	if err := e.db.QueryRowContext(ctx, "SELECT 1;").Scan(&v); err != nil {
		return fmt.Errorf("duckdb health query failed: %w", err)
	}
	return nil
}

// ReadFile reads every column of a single parquet file in source row order, satisfying
// smastore.ColumnReader. Used by the SMA Builder, which needs the whole file to compute
// bounds and select outlier rows.
func (e *Engine) ReadFile(ctx context.Context, path string) (*smaq.Table, error) {
	sqlText := fmt.Sprintf("SELECT * FROM read_parquet(['%s'])", escapeSQLString(path))
	return e.query(ctx, sqlText)
}

// Scan executes the fallback SQL built by the Query Executor for files the controller could
// not skip, returning the Table it produces.
func (e *Engine) Scan(ctx context.Context, sqlText string) (*smaq.Table, time.Duration, error) {
	start := time.Now()
	table, err := e.query(ctx, sqlText)
	duration := time.Since(start)
	if err != nil {
		return nil, duration, smaq.NewBackendFailureError(sqlText, err)
	}
	return table, duration, nil
}

func (e *Engine) query(ctx context.Context, sqlText string) (*smaq.Table, error) {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &smaq.Table{Columns: columns}
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		table.Rows = append(table.Rows, normalizeRow(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// normalizeRow converts driver-returned values (notably []byte for numeric/text types some
// DuckDB driver versions surface) into the plain Go types the rest of the module expects.
func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			out[i] = string(b)
			continue
		}
		out[i] = v
	}
	return out
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
