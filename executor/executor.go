// Package executor is the Query Executor: it parses a query, asks the Economic Controller
// for a per-file decision, batches every file that needs a scan into one fallback SQL
// call against the backing engine, schedules background SMA builds on a bounded worker
// pool, and runs the Eviction Sweeper before persisting stats. Grounded on
// original_source/quackdb's read_parquet_sma orchestration.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/controller"
	"github.com/lychee-technology/smaq/internal"
	"github.com/lychee-technology/smaq/internal/backend"
	"github.com/lychee-technology/smaq/parser"
	"github.com/lychee-technology/smaq/smastore"
	"github.com/lychee-technology/smaq/statsmanager"
)

// Backend is the narrow dependency Engine needs from the backing query engine: reading one
// file in full (for SMA builds) and running an arbitrary fallback scan. Satisfied by
// internal/backend's DuckDB-backed Engine and, in tests, by an in-memory fake.
type Backend interface {
	smastore.ColumnReader
	Scan(ctx context.Context, sqlText string) (*smaq.Table, time.Duration, error)
	Close() error
}

// Engine ties the backend, SMA store, stats manager and economic controller together behind
// a single Execute entry point.
type Engine struct {
	cfg     *smaq.Config
	backend Backend
	store   *smastore.Store
	stats   *statsmanager.Manager
	factors controller.Factors
	log     *zap.Logger

	breaker *internal.CircuitBreaker

	buildJobs chan buildJob
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type buildJob struct {
	path      string
	predicate smaq.Predicate
	key       smaq.PredicateKey
	queryID   int64
}

// Open wires an Engine from cfg: opens the backing engine, the SMA store and the stats
// document, and starts the bounded background-build worker pool.
func Open(ctx context.Context, cfg *smaq.Config, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var creds backend.S3Credentials
	if cfg.DuckDB.EnableS3 && cfg.DuckDB.S3AccessKey == "" {
		resolved, err := backend.ResolveS3Credentials(ctx, cfg.DuckDB.S3Region)
		if err != nil {
			log.Warn("s3 credential resolution failed, proceeding without them", zap.Error(err))
		} else {
			creds = resolved
		}
	}

	eng, err := backend.Open(ctx, cfg.DuckDB, creds, log)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	e, err := newEngine(cfg, eng, log)
	if err != nil {
		eng.Close()
		return nil, err
	}
	return e, nil
}

// openWithBackend wires an Engine around a caller-supplied Backend, skipping the real DuckDB
// connection. Used by tests to exercise Execute's decision/batching/sweep logic against an
// in-memory fake.
func openWithBackend(cfg *smaq.Config, b Backend, log *zap.Logger) (*Engine, error) {
	return newEngine(cfg, b, log)
}

func newEngine(cfg *smaq.Config, b Backend, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}

	store, err := smastore.New(cfg.Store.BaseDir)
	if err != nil {
		return nil, err
	}

	statsPath := filepath.Join(cfg.Store.BaseDir, cfg.Store.StatsFile)
	stats, err := statsmanager.Open(statsPath)
	if err != nil {
		log.Warn("stats document was corrupt, starting fresh", zap.Error(err))
	}

	e := &Engine{
		cfg:     cfg,
		backend: b,
		store:   store,
		stats:   stats,
		factors: controller.Factors{
			DepositFactor:      cfg.Controller.DepositFactor,
			ReinvestFactor:     cfg.Controller.ReinvestFactor,
			ProbePenaltyFactor: cfg.Controller.ProbePenaltyFactor,
		},
		log:       log,
		breaker:   internal.NewCircuitBreaker(5, 30*time.Second, 10*time.Second),
		buildJobs: make(chan buildJob, cfg.Executor.MaxParallelBuilds*4),
	}

	workers := cfg.Executor.MaxParallelBuilds
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.buildWorker()
	}

	return e, nil
}

func (e *Engine) buildWorker() {
	defer e.wg.Done()
	for job := range e.buildJobs {
		e.runBuild(job)
	}
}

func (e *Engine) runBuild(job buildJob) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Executor.BackendTimeout)
	defer cancel()

	artifact, err := smastore.Build(ctx, e.backend, job.path, job.predicate, job.key, job.queryID, e.cfg.Controller.IQRMultiplier)
	if err != nil {
		e.breaker.RecordFailure()
		e.log.Warn("sma build failed", zap.String("key", string(job.key)), zap.Error(err))
		return
	}
	e.breaker.RecordSuccess()
	if artifact == nil {
		return // nothing to index: column had no non-null values.
	}
	if err := e.store.Put(artifact); err != nil {
		e.log.Warn("sma artifact write failed", zap.String("key", string(job.key)), zap.Error(err))
		return
	}
	e.stats.RecordConstruction(job.key)
}

// Execute parses queryText and runs it to completion: per-file skip/outlier/scan decisions,
// one batched fallback scan, background build scheduling, eviction sweep, and a stats save.
func (e *Engine) Execute(ctx context.Context, queryText string) (*smaq.Table, error) {
	parsed, err := parser.Parse(queryText)
	if err != nil {
		return nil, err
	}

	queryID := e.stats.NextQueryID()

	var result *smaq.Table
	var scanFiles []string
	decisions := make(map[string]controller.Decision, len(parsed.Files))
	keys := make(map[string]smaq.PredicateKey, len(parsed.Files))
	debited := internal.NewSet[smaq.PredicateKey]()

	for _, path := range parsed.Files {
		key := smaq.NewPredicateKey(filepath.Base(path), parsed.Predicate.Column, parsed.Predicate.Op, parsed.Predicate.Literal)
		keys[path] = key

		artifact, lookupErr := e.store.Lookup(key)
		if lookupErr != nil {
			// Lookup has already deleted the corrupt file; treat this file as if no
			// artifact had ever been built for it.
			e.log.Warn("sma artifact corrupt, discarded and treated as absent", zap.String("key", string(key)), zap.Error(lookupErr))
			artifact = nil
		}

		decision := controller.Decide(e.stats, e.factors, key, parsed.Predicate, artifact)
		decisions[path] = decision
		internal.EmitDecision(ctx, decision.Action.String())

		switch decision.Action {
		case controller.ActionScanAndBuild:
			debited.Add(key)
			if !e.breaker.IsOpen() {
				select {
				case e.buildJobs <- buildJob{path: path, predicate: parsed.Predicate, key: key, queryID: queryID}:
				default:
					e.log.Warn("sma build queue full, skipping background build", zap.String("key", string(key)))
				}
			}
			scanFiles = append(scanFiles, path)
		case controller.ActionScanOnly:
			scanFiles = append(scanFiles, path)
		case controller.ActionScanWithPenalty:
			debited.Add(key)
			scanFiles = append(scanFiles, path)
		case controller.ActionSkip:
			e.stats.RecordScan(key, 0, true, false)
			controller.Settle(e.stats, e.factors, key, decision, 0)
		case controller.ActionOutlierRead:
			outliers := decision.Artifact.Outliers.Project(parsed.Projection)
			result = result.Union(outliers)
			e.stats.RecordScan(key, 0, false, true)
			controller.Settle(e.stats, e.factors, key, decision, 0)
		}
	}

	if len(scanFiles) > 0 {
		sqlText := buildFallbackSQL(scanFiles, parsed.Projection, parsed.Predicate)
		table, duration, err := e.backend.Scan(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		seconds := duration.Seconds()
		for _, path := range scanFiles {
			key := keys[path]
			e.stats.RecordScan(key, seconds, false, false)
			controller.Settle(e.stats, e.factors, key, decisions[path], seconds)
		}
		result = result.Union(table)
	}

	evicted := sweepStale(e.stats, e.store, e.cfg.Controller.RecencyWindow, queryID, debited)
	for _, key := range evicted {
		e.log.Info("evicted stale sma artifact", zap.String("key", string(key)))
		internal.EmitEviction(ctx, "stale")
	}

	if err := e.stats.Save(); err != nil {
		e.log.Warn("failed to save stats document", zap.Error(err))
	}

	return result, nil
}

// Close drains in-flight background builds, saves the stats document (so construction
// counts recorded by those builds are persisted) and closes the backend connection.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.buildJobs)
		e.wg.Wait()
		if saveErr := e.stats.Save(); saveErr != nil {
			e.log.Warn("failed to save stats document on close", zap.Error(saveErr))
		}
		err = e.backend.Close()
	})
	return err
}

func buildFallbackSQL(files []string, projection []string, predicate smaq.Predicate) string {
	selected := "*"
	if len(projection) > 0 {
		cols := make([]string, len(projection))
		for i, c := range projection {
			cols[i] = internal.SanitizeIdentifier(c)
		}
		selected = strings.Join(cols, ", ")
	}

	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = "'" + strings.ReplaceAll(f, "'", "''") + "'"
	}

	return fmt.Sprintf(
		"SELECT %s FROM read_parquet([%s]) WHERE %s %s %s",
		selected,
		strings.Join(quoted, ", "),
		internal.SanitizeIdentifier(predicate.Column),
		predicate.Op.String(),
		strconv.FormatFloat(predicate.Literal, 'g', -1, 64),
	)
}
