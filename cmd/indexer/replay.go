package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"claimingIndexer/internal/config"
	"claimingIndexer/internal/indexer"
	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/metrics"
	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage"
)

const stageParse = "parse"

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Errors == "" {
		return fmt.Errorf("errors path is required")
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

	errFile, err := createErrorFile(cfg.Errors)
	if err != nil {
		return err
	}
	defer errFile.Close()

	m := metrics.New()
	mapper := mapping.NewMapper(mapping.Config{IDByteOrder: order}, m.InstrumentStore(store))
	processor := indexer.NewProcessor(decoder, mapper, m, logger)

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.String("errors", cfg.Errors),
		zap.String("store", cfg.Store.Kind),
		zap.String("id_byte_order", order.String()),
	)

	stats, err := replayLogs(ctx, cfg.In, processor, newErrorLog(errFile, logger))
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int("total", stats.total),
		zap.Int("handled", stats.handled),
		zap.Int("skipped", stats.skipped),
		zap.Int("failed", stats.failed),
		zap.Int("lost_errors", stats.lost),
	}
	if store.memory != nil {
		for _, kind := range model.Kinds() {
			fields = append(fields, zap.Int(string(kind), store.memory.Len(kind)))
		}
	}
	logger.Info("replay complete", fields...)
	if stats.lost > 0 {
		return fmt.Errorf("%d decode errors could not be written to %s", stats.lost, cfg.Errors)
	}
	return nil
}

type replayStats struct {
	total, handled, skipped, failed int
	// lost counts decode errors that could not be written to the error log.
	lost int
}

// replayLogs feeds every line of path through processor. Decode and map
// failures are written to errLog and skipped; a store failure aborts.
func replayLogs(ctx context.Context, path string, processor *indexer.Processor, errLog *errorLog) (replayStats, error) {
	var stats replayStats

	onParseErr := func(line int, err error) {
		stats.total++
		stats.failed++
		errLog.record(model.DecodeError{Stage: stageParse, Error: fmt.Sprintf("line %d: %v", line, err)})
	}

	err := storage.ReadLogs(path, func(record model.LogRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.total++

		outcome, err := processor.Process(ctx, record)
		switch outcome {
		case indexer.OutcomeHandled:
			stats.handled++
		case indexer.OutcomeSkipped, indexer.OutcomeRemoved:
			stats.skipped++
		}
		if err == nil {
			return nil
		}

		var stageErr *indexer.StageError
		if errors.As(err, &stageErr) && stageErr.Stage == indexer.StageStore {
			return fmt.Errorf("log %s: %w", record.Key(), err)
		}
		stats.failed++
		stage := indexer.StageDecode
		if stageErr != nil {
			stage = stageErr.Stage
		}
		errLog.record(model.NewDecodeError(record, stage, err))
		return nil
	}, onParseErr)
	stats.lost = errLog.lostCount()
	return stats, err
}

// errorLog writes decode errors as JSON lines. A failed write is logged and
// counted in lost instead of aborting the replay.
type errorLog struct {
	enc    *json.Encoder
	logger *zap.Logger
	lost   int
}

func newErrorLog(w io.Writer, logger *zap.Logger) *errorLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &errorLog{enc: json.NewEncoder(w), logger: logger}
}

// createErrorFile truncates path, creating its directory when needed.
func createErrorFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create errors dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create errors file: %w", err)
	}
	return file, nil
}

func (l *errorLog) record(rec model.DecodeError) {
	if l == nil {
		return
	}
	if err := l.enc.Encode(rec); err != nil {
		l.lost++
		l.logger.Warn("decode error not written",
			zap.String("stage", rec.Stage),
			zap.String("tx_hash", rec.TxHash),
			zap.Uint64("log_index", rec.LogIndex),
			zap.Error(err),
		)
	}
}

func (l *errorLog) lostCount() int {
	if l == nil {
		return 0
	}
	return l.lost
}
