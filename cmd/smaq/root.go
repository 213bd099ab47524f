package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func newRootCmd(log *zap.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:     "smaq",
		Short:   "Run predicate queries over parquet files with a self-tuning SMA cache",
		Long:    "smaq executes simple read_parquet predicate queries, building and reusing sparse materialised aggregates per (file, predicate) under an economic budget controller.",
		Version: version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (defaults built in if omitted)")

	root.AddCommand(newExecuteCmd(log))
	root.AddCommand(newStatsCmd(log))
	root.AddCommand(newGCCmd(log))
	root.AddCommand(newForgetCmd(log))
	return root
}

// Execute builds and runs the root command. Called from main().
func Execute(log *zap.Logger) error {
	return newRootCmd(log).Execute()
}

const version = "0.1.0"
