package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lychee-technology/smaq/statsmanager"
)

func newStatsCmd(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print per-predicate budgets and scan/skip/outlier counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			statsPath := filepath.Join(cfg.Store.BaseDir, cfg.Store.StatsFile)
			mgr, err := statsmanager.Open(statsPath)
			if err != nil {
				log.Warn("stats document was corrupt, reporting an empty document", zap.Error(err))
			}

			type row struct {
				Key     string               `json:"key"`
				Budget  float64              `json:"budget"`
				Metrics statsmanager.Metrics `json:"metrics"`
			}
			var rows []row
			for _, key := range mgr.Keys() {
				rows = append(rows, row{
					Key:     string(key),
					Budget:  mgr.GetBudget(key),
					Metrics: mgr.Snapshot(key),
				})
			}

			savedAt, savedAtErr := mgr.SavedAt()

			out := struct {
				StatsFile string    `json:"statsFile"`
				SavedAt   time.Time `json:"savedAt,omitempty"`
				Keys      []row     `json:"keys"`
			}{
				StatsFile: statsPath,
				Keys:      rows,
			}
			if savedAtErr == nil {
				out.SavedAt = savedAt
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}
