package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimingIndexer/internal/chain"
	"claimingIndexer/internal/config"
	"claimingIndexer/internal/indexer"
	"claimingIndexer/internal/storage"
)

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ParseAddresses(cfg.Addresses)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("address list is required")
	}

	decoder, err := newDecoder("")
	if err != nil {
		return err
	}
	topic0, err := indexer.ParseTopic0(cfg.Topic0, decoder.TopicFor)
	if err != nil {
		return err
	}
	if len(topic0) == 0 {
		topic0 = decoder.Topic0s()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	var checkpoint indexer.CheckpointStore
	if cfg.CheckpointEnabled {
		checkpoint = &indexer.FileCheckpoint{Path: cfg.Checkpoint}
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:     cfg.FromBlock,
		ToBlock:       cfg.ToBlock,
		Addresses:     addresses,
		Topic0:        topic0,
		BatchSize:     cfg.BatchSize,
		Confirmations: cfg.Confirmations,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, chainClient, storage.NewJsonlStorage(cfg.Out), checkpoint, logger)

	logger.Info("fetch start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}
