package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimingIndexer/internal/config"
	"claimingIndexer/internal/distribution"
	"claimingIndexer/internal/model"
)

var errRootNotSubmitted = errors.New("root was never submitted")

func runClaimed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadClaimed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	dist, err := claimedDistribution(ctx, store.reader)
	if err != nil {
		return err
	}
	if err := writeDistribution(cfg.File, dist); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("out", cfg.File),
		zap.Int("accounts", dist.NumAccounts()),
		zap.Int("leaves", dist.NumLeaves()),
	}
	if root, err := dist.Root(); err == nil {
		fields = append(fields, zap.String("root", root.Hex()))
	} else if !errors.Is(err, distribution.ErrEmpty) {
		return err
	}
	logger.Info("claimed distribution written", fields...)
	return nil
}

func runVerifyRoot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadVerifyRoot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dist, err := readDistribution(cfg.File)
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

	root, submitted, err := verifyRoot(ctx, store.reader, dist)
	if err != nil {
		logger.Error("root verification failed", zap.String("root", root.Hex()), zap.Error(err))
		return err
	}
	logger.Info("root verified",
		zap.String("root", root.Hex()),
		zap.Int("leaves", dist.NumLeaves()),
		zap.Uint64("block", submitted.BlockNumber),
		zap.String("tx_hash", submitted.TransactionHash.Hex()),
		zap.Uint32("activated_after", submitted.ActivatedAfter),
		zap.Uint32("payments_calculated_until", submitted.PaymentsCalculatedUntilTimestamp),
	)
	return nil
}

// claimedDistribution tallies every stored PaymentClaimed record.
func claimedDistribution(ctx context.Context, reader recordReader) (*distribution.Distribution, error) {
	claims, err := reader.PaymentClaims(ctx)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	return distribution.FromClaims(claims), nil
}

// verifyRoot merklizes dist and looks its root up among stored
// RootSubmitted records.
func verifyRoot(ctx context.Context, reader recordReader, dist *distribution.Distribution) (common.Hash, model.RootSubmitted, error) {
	root, err := dist.Root()
	if err != nil {
		return common.Hash{}, model.RootSubmitted{}, err
	}
	submitted, ok, err := reader.FindRoot(ctx, root)
	if err != nil {
		return root, model.RootSubmitted{}, fmt.Errorf("find root: %w", err)
	}
	if !ok {
		return root, model.RootSubmitted{}, fmt.Errorf("%w: %s", errRootNotSubmitted, root.Hex())
	}
	return root, submitted, nil
}

func readDistribution(path string) (*distribution.Distribution, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read distribution: %w", err)
	}
	dist := distribution.New()
	if err := json.Unmarshal(raw, dist); err != nil {
		return nil, fmt.Errorf("parse distribution %s: %w", path, err)
	}
	return dist, nil
}

func writeDistribution(path string, dist *distribution.Distribution) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	raw, err := json.MarshalIndent(dist, "", "  ")
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}
	return nil
}
