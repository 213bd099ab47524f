package main

import (
	"github.com/lychee-technology/smaq"
)

func loadConfig() (*smaq.Config, error) {
	if configPath == "" {
		return smaq.DefaultConfig(), nil
	}
	return smaq.LoadConfig(configPath)
}
