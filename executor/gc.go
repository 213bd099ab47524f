package executor

import (
	"path/filepath"

	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/internal"
	"github.com/lychee-technology/smaq/smastore"
	"github.com/lychee-technology/smaq/statsmanager"
)

// GC runs the Eviction Sweeper outside of a live query: useful as a standalone maintenance
// pass (e.g. a cron job or a CLI subcommand) when no query has touched a stale key recently
// enough to trigger eviction as a side effect of Execute. It evicts against the stats
// document's own current query id, then persists whatever it removed.
func GC(cfg *smaq.Config) ([]smaq.PredicateKey, error) {
	store, err := smastore.New(cfg.Store.BaseDir)
	if err != nil {
		return nil, err
	}

	statsPath := filepath.Join(cfg.Store.BaseDir, cfg.Store.StatsFile)
	stats, openErr := statsmanager.Open(statsPath)
	if stats == nil {
		return nil, openErr
	}
	// openErr (if non-nil) means the stats document was corrupt and Open fell back to a
	// fresh one; GC can still run against that fresh document, so it is not treated as fatal.

	evicted := sweepStale(stats, store, cfg.Controller.RecencyWindow, stats.CurrentQueryID(), internal.NewSet[smaq.PredicateKey]())
	if saveErr := stats.Save(); saveErr != nil {
		return evicted, saveErr
	}
	return evicted, nil
}

// Forget removes key's on-disk artifact (if any) and clears its budget and metrics from the
// stats document, for an operator who wants a predicate key fully reset rather than merely
// evicted — e.g. after the underlying parquet file has been deleted or replaced, so its stale
// budget and scan history stop influencing future Decide calls under a reused key.
func Forget(cfg *smaq.Config, key smaq.PredicateKey) error {
	store, err := smastore.New(cfg.Store.BaseDir)
	if err != nil {
		return err
	}
	if err := store.Remove(key); err != nil {
		return err
	}

	statsPath := filepath.Join(cfg.Store.BaseDir, cfg.Store.StatsFile)
	stats, openErr := statsmanager.Open(statsPath)
	if stats == nil {
		return openErr
	}

	stats.ForgetKey(key)
	return stats.Save()
}
