package config

import (
	"time"

	"github.com/spf13/pflag"
)

// IndexConfig holds configuration for the index command.
type IndexConfig struct {
	ChainConfig
	Store          StoreConfig
	CheckpointName string
	Follow         bool
	PollInterval   time.Duration
	ABIFile        string
	IDByteOrder    string
	MetricsAddr    string
	LogLevel       string
}

// LoadIndex merges config file, environment variables, and flags into IndexConfig.
func LoadIndex(cfgFile string, flags *pflag.FlagSet) (IndexConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"checkpoint-name": "claiming-manager",
	})
	if err != nil {
		return IndexConfig{}, err
	}

	cfg := IndexConfig{
		ChainConfig:    chainConfig(v),
		Store:          storeConfig(v),
		CheckpointName: v.GetString("checkpoint-name"),
		Follow:         v.GetBool("follow"),
		PollInterval:   v.GetDuration("poll-interval"),
		ABIFile:        v.GetString("abi-file"),
		IDByteOrder:    v.GetString("id-byte-order"),
		MetricsAddr:    v.GetString("metrics-addr"),
		LogLevel:       v.GetString("log-level"),
	}
	if err := cfg.Store.Validate(); err != nil {
		return IndexConfig{}, err
	}
	return cfg, nil
}
