// Command smaq is the CLI front-end for the SMA-accelerated query engine: it loads a YAML
// configuration (falling back to defaults), wires up zap, and hands off to the cobra command
// tree in this package.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "smaq: failed to initialise logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := Execute(logger); err != nil {
		logger.Sugar().Fatalf("smaq: %v", err)
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("SMAQ_LOG_FORMAT") == "console" {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	return zap.NewProduction()
}
