package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage"
)

// LogSource is the chain access the runner needs.
type LogSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	FromBlock     uint64
	ToBlock       uint64
	Addresses     []common.Address
	Topic0        []common.Hash
	BatchSize     uint64
	Confirmations uint64
	MaxRetries    int
	RetryBackoff  time.Duration
	Follow        bool
	PollInterval  time.Duration
}

// Runner streams logs from the chain into a sink, batch by batch.
type Runner struct {
	cfg        RunConfig
	source     LogSource
	sink       storage.LogSink
	checkpoint CheckpointStore
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner builds a Runner. checkpoint may be nil to disable resuming.
func NewRunner(cfg RunConfig, source LogSource, sink storage.LogSink, checkpoint CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
		now:        time.Now,
	}
}

// Run indexes up to the configured end block, or keeps polling for new
// blocks when Follow is set.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.source.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	from := r.cfg.FromBlock
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	for {
		to, err := r.targetBlock(ctx)
		if err != nil {
			return err
		}

		if from <= to {
			if err := r.syncRange(ctx, chainID.Uint64(), from, to); err != nil {
				return err
			}
			from = to + 1
		} else {
			r.logger.Debug("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		}

		if !r.cfg.Follow || (r.cfg.ToBlock != 0 && from > r.cfg.ToBlock) {
			return nil
		}

		timer := time.NewTimer(r.pollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Runner) pollInterval() time.Duration {
	if r.cfg.PollInterval <= 0 {
		return 12 * time.Second
	}
	return r.cfg.PollInterval
}

func (r *Runner) targetBlock(ctx context.Context) (uint64, error) {
	if r.cfg.ToBlock != 0 {
		return r.cfg.ToBlock, nil
	}
	var latest uint64
	err := r.rpcRetry("block_number").do(ctx, func(ctx context.Context) error {
		var err error
		latest, err = r.source.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get latest block: %w", err)
	}
	if latest < r.cfg.Confirmations {
		return 0, nil
	}
	return latest - r.cfg.Confirmations, nil
}

func (r *Runner) syncRange(ctx context.Context, chainID, from, to uint64) error {
	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.filterLogsWithRetry(ctx, blockRange.From, blockRange.To)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}
		sortLogs(logs)

		ingestedAt := r.now().UTC()
		records := make([]model.LogRecord, 0, len(logs))
		for _, log := range logs {
			ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			records = append(records, NewLogRecord(chainID, log, ts, ingestedAt))
		}

		if err := r.sink.PutLogBatch(ctx, records); err != nil {
			return fmt.Errorf("store logs: %w", err)
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	var logs []types.Log
	policy := r.rpcRetry("filter_logs", zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
	err := policy.do(ctx, func(ctx context.Context) error {
		var err error
		logs, err = r.source.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Addresses, r.cfg.Topic0)
		return err
	})
	return logs, err
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := r.rpcRetry("block_timestamp", zap.Uint64("block_number", blockNumber)).do(ctx, func(ctx context.Context) error {
		var err error
		ts, err = r.source.BlockTimestamp(ctx, blockNumber)
		return err
	})
	return ts, err
}
