package config

import (
	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	In          string
	Errors      string
	Store       StoreConfig
	ABIFile     string
	IDByteOrder string
	LogLevel    string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"errors": "./data/decode_errors.jsonl",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		In:          v.GetString("in"),
		Errors:      v.GetString("errors"),
		Store:       storeConfig(v),
		ABIFile:     v.GetString("abi-file"),
		IDByteOrder: v.GetString("id-byte-order"),
		LogLevel:    v.GetString("log-level"),
	}
	if err := cfg.Store.Validate(); err != nil {
		return ReplayConfig{}, err
	}
	return cfg, nil
}

// MigrateConfig holds configuration for the migrate command.
type MigrateConfig struct {
	Store    StoreConfig
	LogLevel string
}

// LoadMigrate merges config file, environment variables, and flags into MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return MigrateConfig{}, err
	}

	cfg := MigrateConfig{
		Store:    storeConfig(v),
		LogLevel: v.GetString("log-level"),
	}
	if err := cfg.Store.Validate(); err != nil {
		return MigrateConfig{}, err
	}
	return cfg, nil
}
