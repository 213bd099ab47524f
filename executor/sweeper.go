package executor

import (
	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/internal"
	"github.com/lychee-technology/smaq/smastore"
	"github.com/lychee-technology/smaq/statsmanager"
)

// sweepStale runs the Eviction Sweeper after a query completes: every predicate key with a
// stored artifact is evicted if it was debited down to a zero budget this query, if it has
// been scanned at least recencyWindow times and never proven useful (no skip or outlier-read
// in its whole recorded history), or if it has not
// been used in more than recencyWindow queries. debited holds the keys the Economic
// Controller actually applied a budget debit to during this query; a key whose budget is
// zero only because it started the query at zero (no debit applied) is not evicted on that
// branch alone, since a persisted zero budget alone can't distinguish "just exhausted" from
// "long since exhausted and already swept." Returns the keys it evicted.
func sweepStale(stats *statsmanager.Manager, store *smastore.Store, recencyWindow int64, currentQueryID int64, debited *internal.Set[smaq.PredicateKey]) []smaq.PredicateKey {
	var evicted []smaq.PredicateKey

	for _, key := range stats.Keys() {
		if !store.Exists(key) {
			continue
		}

		metrics := stats.Snapshot(key)
		budget := stats.GetBudget(key)

		shouldEvict := false
		switch {
		case budget <= 0 && debited.Contains(key):
			shouldEvict = true
		case metrics.ScanCount >= recencyWindow && metrics.SkippedCount == 0 && metrics.OutlierRetrievedCount == 0:
			shouldEvict = true
		case currentQueryID-metrics.LastSmaUsedQueryID > recencyWindow:
			shouldEvict = true
		}

		if !shouldEvict {
			continue
		}

		if err := store.Remove(key); err != nil {
			continue
		}
		stats.RecordDeconstruction(key)
		evicted = append(evicted, key)
	}
	return evicted
}
