package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lychee-technology/smaq"
	"github.com/lychee-technology/smaq/executor"
)

func newForgetCmd(log *zap.Logger) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Remove a predicate key's artifact and reset its budget/metrics",
		Long:  "forget deletes the on-disk SMA artifact for --key, if any, and clears its stats-document budget and metrics, for a predicate key whose underlying file has been deleted or replaced.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return fmt.Errorf("forget: --key is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := executor.Forget(cfg, smaq.PredicateKey(key)); err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			log.Info("forgot predicate key", zap.String("key", key))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "predicate key to forget, e.g. orders.parquet_price_>_10000")
	return cmd
}
