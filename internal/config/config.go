package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store backends accepted by --store.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// StoreConfig selects and locates the record store.
type StoreConfig struct {
	Kind       string
	PGDSN      string
	SQLitePath string
}

// Validate checks that the selected backend has what it needs.
func (c StoreConfig) Validate() error {
	switch c.Kind {
	case StoreMemory:
		return nil
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for store %q", c.Kind)
		}
		return nil
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for store %q", c.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unsupported store: %q (memory, sqlite, postgres)", c.Kind)
	}
}

// ChainConfig holds the RPC scan settings shared by fetch and index.
type ChainConfig struct {
	RPCURL            string
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []string
	BatchSize         uint64
	Confirmations     uint64
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	ChainConfig
	Topic0   []string
	Out      string
	LogLevel string
}

// LoadFetch merges config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"checkpoint": "./data/fetch_checkpoint.json",
		"out":        "./data/logs.jsonl",
	})
	if err != nil {
		return FetchConfig{}, err
	}

	return FetchConfig{
		ChainConfig: chainConfig(v),
		Topic0:      getStringSlice(v, "topic0"),
		Out:         v.GetString("out"),
		LogLevel:    v.GetString("log-level"),
	}, nil
}

// newViper builds a viper instance with the shared env prefix, defaults and
// optional config file. Command defaults override the shared ones.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("poll-interval", 12*time.Second)
	v.SetDefault("store", StoreMemory)
	v.SetDefault("sqlite-path", "./data/indexer.db")
	v.SetDefault("id-byte-order", "big")
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func chainConfig(v *viper.Viper) ChainConfig {
	return ChainConfig{
		RPCURL:            v.GetString("rpc"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		Addresses:         getStringSlice(v, "address"),
		BatchSize:         v.GetUint64("batch-size"),
		Confirmations:     v.GetUint64("confirmations"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
	}
}

func storeConfig(v *viper.Viper) StoreConfig {
	return StoreConfig{
		Kind:       strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		PGDSN:      v.GetString("pg-dsn"),
		SQLitePath: v.GetString("sqlite-path"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
