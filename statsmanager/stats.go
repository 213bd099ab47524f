// Package statsmanager tracks, per predicate key, the workload-driven budget and scan
// metrics the Economic Controller and Eviction Sweeper need, and persists them as a single
// JSON document. It is grounded on the RLock-guarded StatsManager this module's predecessor
// used, translated to a sync.Mutex-guarded struct.
package statsmanager

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lychee-technology/smaq"
)

// Metrics is the per-predicate-key counter set spec §5 names.
type Metrics struct {
	ScanCount                 int64   `json:"scan_count"`
	SkippedCount              int64   `json:"skipped_count"`
	OutlierRetrievedCount     int64   `json:"outlier_retrieved_count"`
	ConstructionCount         int64   `json:"construction_count"`
	DeconstructionCount       int64   `json:"deconstruction_count"`
	TotalScanTime             float64 `json:"total_scan_time"`
	LastScanTime              float64 `json:"last_scan_time"`
	LastParquetScannedQueryID int64   `json:"last_parquet_scanned_query_id"`
	LastSmaUsedQueryID        int64   `json:"last_sma_used_query_id"`
}

// document is the on-disk shape, matching the original stats.json layout: a flat budget map
// alongside a per-key metrics map and the monotonic query counter.
type document struct {
	Budgets        map[string]float64 `json:"budgets"`
	Files          map[string]Metrics `json:"files"`
	CurrentQueryID int64              `json:"current_query_id"`
}

func newDocument() *document {
	return &document{
		Budgets: make(map[string]float64),
		Files:   make(map[string]Metrics),
	}
}

// Manager is a mutex-guarded, in-memory stats document backed by a single JSON file on
// disk. All mutating methods are safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	path string
	doc  *document
}

// Open loads the stats document at path, or starts a fresh empty one if the file does not
// exist. A malformed file is treated as spec §7's StatsCorruption: the in-memory document
// resets to empty rather than failing the caller, and the corruption is reported via the
// returned error so the caller can log it.
func Open(path string) (*Manager, error) {
	m := &Manager{path: path, doc: newDocument()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return m, smaq.NewStatsCorruptionError(path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return m, smaq.NewStatsCorruptionError(path, err)
	}
	if doc.Budgets == nil {
		doc.Budgets = make(map[string]float64)
	}
	if doc.Files == nil {
		doc.Files = make(map[string]Metrics)
	}
	m.doc = &doc
	return m, nil
}

// NextQueryID returns the current query id and atomically advances the counter, per spec
// §9's read-then-increment decision.
func (m *Manager) NextQueryID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.doc.CurrentQueryID
	m.doc.CurrentQueryID++
	return id
}

// CurrentQueryID returns the counter's present value without advancing it.
func (m *Manager) CurrentQueryID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.CurrentQueryID
}

// GetBudget returns the current budget for key, defaulting to zero.
func (m *Manager) GetBudget(key smaq.PredicateKey) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Budgets[string(key)]
}

// AddBudget adjusts key's budget by amount, clamped at zero.
func (m *Manager) AddBudget(key smaq.PredicateKey, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.doc.Budgets[string(key)] + amount
	if b < 0 {
		b = 0
	}
	m.doc.Budgets[string(key)] = b
}

func (m *Manager) metrics(key smaq.PredicateKey) Metrics {
	return m.doc.Files[string(key)]
}

// AvgScanTime returns key's average scan time across all recorded scans, or zero if it has
// never been scanned.
func (m *Manager) AvgScanTime(key smaq.PredicateKey) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := m.metrics(key)
	if fm.ScanCount == 0 {
		return 0
	}
	return fm.TotalScanTime / float64(fm.ScanCount)
}

// RecordConstruction marks that an SMA artifact was built for key.
func (m *Manager) RecordConstruction(key smaq.PredicateKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := m.metrics(key)
	fm.ConstructionCount++
	m.doc.Files[string(key)] = fm
}

// RecordDeconstruction marks that key's SMA artifact was evicted.
func (m *Manager) RecordDeconstruction(key smaq.PredicateKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := m.metrics(key)
	fm.DeconstructionCount++
	m.doc.Files[string(key)] = fm
}

// RecordScan records one scan event for key: scanTime seconds spent, and whether the scan
// was satisfied by a skip or an outlier-read rather than a full backend scan. skipped takes
// precedence over outlier per spec §9's skip-dominates decision when both are somehow true.
func (m *Manager) RecordScan(key smaq.PredicateKey, scanTime float64, skipped, outlier bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm := m.metrics(key)
	fm.ScanCount++
	fm.TotalScanTime += scanTime
	fm.LastScanTime = scanTime

	switch {
	case skipped:
		fm.LastSmaUsedQueryID = m.doc.CurrentQueryID
		fm.SkippedCount++
	case outlier:
		fm.LastSmaUsedQueryID = m.doc.CurrentQueryID
		fm.OutlierRetrievedCount++
	default:
		fm.LastParquetScannedQueryID = m.doc.CurrentQueryID
	}
	m.doc.Files[string(key)] = fm
}

// Keys returns every predicate key with recorded metrics, in no particular order, as the
// input for the Eviction Sweeper's scan.
func (m *Manager) Keys() []smaq.PredicateKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]smaq.PredicateKey, 0, len(m.doc.Files))
	for k := range m.doc.Files {
		keys = append(keys, smaq.PredicateKey(k))
	}
	return keys
}

// Snapshot returns the metrics recorded for key, for read-only inspection (the Eviction
// Sweeper's eligibility checks, or diagnostics).
func (m *Manager) Snapshot(key smaq.PredicateKey) Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics(key)
}

// ForgetKey removes all budget and metric state for key. Unlike the Eviction Sweeper (which
// deliberately leaves budget and metrics in place after evicting an artifact, so a rebuild
// picks up where the key left off), ForgetKey is for fully resetting a key, e.g. via the
// `smaq forget` CLI command when the underlying file has been deleted or replaced.
func (m *Manager) ForgetKey(key smaq.PredicateKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.doc.Budgets, string(key))
	delete(m.doc.Files, string(key))
}

// Save persists the current document to disk atomically (temp file + rename), matching the
// SMA Store's write discipline.
func (m *Manager) Save() error {
	m.mu.Lock()
	data, err := json.MarshalIndent(m.doc, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return smaq.NewSmaError(smaq.ErrorTypeInternal, smaq.ErrCodeStatsDocCorrupt, "marshal stats document").WithCause(err)
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return smaq.NewSmaError(smaq.ErrorTypeInternal, smaq.ErrCodeStatsDocCorrupt, "create stats directory").WithCause(err)
	}

	tmp := m.path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return smaq.NewSmaError(smaq.ErrorTypeInternal, smaq.ErrCodeStatsDocCorrupt, "write stats document").WithCause(err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.Remove(tmp)
		return smaq.NewSmaError(smaq.ErrorTypeInternal, smaq.ErrCodeStatsDocCorrupt, "rename stats document into place").WithCause(err)
	}
	return nil
}

// SavedAt is a diagnostic helper reporting the file's last-modified time, used by the CLI's
// `stats` subcommand.
func (m *Manager) SavedAt() (time.Time, error) {
	info, err := os.Stat(m.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
