package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lychee-technology/smaq/executor"
)

func newGCCmd(log *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Evict stale or exhausted SMA artifacts without running a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			evicted, err := executor.GC(cfg)
			if err != nil {
				return fmt.Errorf("gc: %w", err)
			}

			log.Info("gc complete", zap.Int("evicted", len(evicted)))
			for _, key := range evicted {
				fmt.Println(string(key))
			}
			return nil
		},
	}
	return cmd
}
