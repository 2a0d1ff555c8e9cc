package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "ClaimingManager event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index ClaimingManager events from RPC into the record store",
		RunE:  runIndex,
	}
	addChainFlags(indexCmd)
	addStoreFlags(indexCmd)
	addMappingFlags(indexCmd)
	indexCmd.Flags().String("checkpoint-name", "claiming-manager", "checkpoint row name in the store state table")
	indexCmd.Flags().Bool("follow", false, "keep polling for new blocks after reaching the head")
	indexCmd.Flags().Duration("poll-interval", 12*time.Second, "head polling interval in follow mode")
	indexCmd.Flags().String("metrics-addr", "", "serve /metrics and /healthz on this address (disabled when empty)")
	root.AddCommand(indexCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch raw logs into JSONL",
		RunE:  runFetch,
	}
	addChainFlags(fetchCmd)
	fetchCmd.Flags().StringSlice("topic0", nil, "topic0 hashes or event names (comma-separated), default all ClaimingManager events")
	fetchCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	fetchCmd.Flags().String("checkpoint", "./data/fetch_checkpoint.json", "checkpoint file path")
	root.AddCommand(fetchCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Map raw JSONL logs into the record store",
		RunE:  runReplay,
	}
	addStoreFlags(replayCmd)
	addMappingFlags(replayCmd)
	replayCmd.Flags().String("in", "", "input raw logs JSONL")
	replayCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(replayCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to the record store",
		RunE:  runMigrate,
	}
	addStoreFlags(migrateCmd)
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(migrateCmd)

	claimedCmd := &cobra.Command{
		Use:   "claimed",
		Short: "Write the per-claimer token totals of stored PaymentClaimed records",
		RunE:  runClaimed,
	}
	addStoreFlags(claimedCmd)
	claimedCmd.Flags().String("out", "./data/claimed.json", "output distribution JSON")
	claimedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(claimedCmd)

	verifyRootCmd := &cobra.Command{
		Use:   "verify-root",
		Short: "Check that a distribution file merklizes to a submitted root",
		RunE:  runVerifyRoot,
	}
	addStoreFlags(verifyRootCmd)
	verifyRootCmd.Flags().String("distribution", "", "distribution JSON (account -> token -> amount)")
	verifyRootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.AddCommand(verifyRootCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URL")
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().StringSlice("address", nil, "contract addresses (comma-separated)")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	cmd.Flags().Uint64("confirmations", 0, "blocks to stay behind the head")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", "memory", "record store (memory, sqlite, postgres)")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("sqlite-path", "./data/indexer.db", "SQLite database path")
}

func addMappingFlags(cmd *cobra.Command) {
	cmd.Flags().String("abi-file", "", "ABI JSON overriding the built-in ClaimingManager events")
	cmd.Flags().String("id-byte-order", "big", "log index byte order in record ids (big, little)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
