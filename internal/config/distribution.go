package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DistributionConfig holds configuration for the claimed and verify-root
// commands.
type DistributionConfig struct {
	Store    StoreConfig
	File     string
	LogLevel string
}

// LoadClaimed merges config file, environment variables, and flags into the
// claimed command's DistributionConfig. File is the output path.
func LoadClaimed(cfgFile string, flags *pflag.FlagSet) (DistributionConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out": "./data/claimed.json",
	})
	if err != nil {
		return DistributionConfig{}, err
	}

	cfg := DistributionConfig{
		Store:    storeConfig(v),
		File:     v.GetString("out"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.File == "" {
		return DistributionConfig{}, fmt.Errorf("output path is required")
	}
	if err := cfg.Store.Validate(); err != nil {
		return DistributionConfig{}, err
	}
	return cfg, nil
}

// LoadVerifyRoot merges config file, environment variables, and flags into
// the verify-root command's DistributionConfig. File is the distribution to
// check.
func LoadVerifyRoot(cfgFile string, flags *pflag.FlagSet) (DistributionConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return DistributionConfig{}, err
	}

	cfg := DistributionConfig{
		Store:    storeConfig(v),
		File:     v.GetString("distribution"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.File == "" {
		return DistributionConfig{}, fmt.Errorf("distribution file is required")
	}
	if err := cfg.Store.Validate(); err != nil {
		return DistributionConfig{}, err
	}
	return cfg, nil
}
