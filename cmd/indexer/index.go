package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimingIndexer/internal/chain"
	"claimingIndexer/internal/config"
	"claimingIndexer/internal/indexer"
	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/metrics"
)

func runIndex(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadIndex(cfgFile, cmd.Flags())
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

	order, err := mapping.ParseByteOrder(cfg.IDByteOrder)
	if err != nil {
		return err
	}

	decoder, err := newDecoder(cfg.ABIFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.New()
	mapper := mapping.NewMapper(mapping.Config{IDByteOrder: order}, m.InstrumentStore(store))
	processor := indexer.NewProcessor(decoder, mapper, m, logger)

	var checkpoint indexer.CheckpointStore
	if cfg.CheckpointEnabled && store.state != nil {
		checkpoint = m.InstrumentCheckpoint(&indexer.StateCheckpoint{Store: store.state, Name: cfg.CheckpointName})
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	if err := requireContracts(ctx, chainClient, addresses); err != nil {
		return err
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:     cfg.FromBlock,
		ToBlock:       cfg.ToBlock,
		Addresses:     addresses,
		Topic0:        decoder.Topic0s(),
		BatchSize:     cfg.BatchSize,
		Confirmations: cfg.Confirmations,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
		Follow:        cfg.Follow,
		PollInterval:  cfg.PollInterval,
	}, chainClient, processor, checkpoint, logger)

	logger.Info("index start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Uint64("confirmations", cfg.Confirmations),
		zap.String("store", cfg.Store.Kind),
		zap.String("id_byte_order", order.String()),
		zap.Bool("follow", cfg.Follow),
		zap.Bool("checkpoint_enabled", checkpoint != nil),
	)

	if err := runner.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("index stopped")
			return nil
		}
		return err
	}
	logger.Info("index complete")
	return nil
}

type codeChecker interface {
	HasCode(ctx context.Context, addr common.Address) (bool, error)
}

// requireContracts fails when an address has no deployed code, which usually
// means a wrong address or network.
func requireContracts(ctx context.Context, checker codeChecker, addresses []common.Address) error {
	for _, addr := range addresses {
		ok, err := checker.HasCode(ctx, addr)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no contract deployed at %s", addr.Hex())
		}
	}
	return nil
}
