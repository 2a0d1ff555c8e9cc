package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
)

// Outcome describes what happened to a single log.
type Outcome string

const (
	OutcomeHandled Outcome = "handled"
	OutcomeSkipped Outcome = "skipped"
	OutcomeRemoved Outcome = "removed"
	OutcomeFailed  Outcome = "failed"
)

// Failure stages reported by StageError.
const (
	StageDecode = "decode"
	StageMap    = "map"
	StageStore  = "store"
)

// StageError wraps a processing failure with the stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Observer is notified of every processed log.
type Observer interface {
	ObserveLog(kind model.Kind, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) ObserveLog(model.Kind, Outcome) {}

// Processor runs logs through a Decoder and a Mapper, one log at a time.
type Processor struct {
	decoder  mapping.Decoder
	mapper   *mapping.Mapper
	observer Observer
	logger   *zap.Logger
}

// NewProcessor builds a Processor. observer and logger may be nil.
func NewProcessor(decoder mapping.Decoder, mapper *mapping.Mapper, observer Observer, logger *zap.Logger) *Processor {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{decoder: decoder, mapper: mapper, observer: observer, logger: logger}
}

// Process decodes, maps and stores one log. Logs with an unknown topic0 and
// logs flagged as removed are skipped without error.
func (p *Processor) Process(ctx context.Context, log model.LogRecord) (Outcome, error) {
	if log.Removed {
		p.observer.ObserveLog("", OutcomeRemoved)
		return OutcomeRemoved, nil
	}
	if !p.decoder.CanDecode(log.Topic0()) {
		p.observer.ObserveLog("", OutcomeSkipped)
		return OutcomeSkipped, nil
	}

	event, err := p.decoder.Decode(log)
	if err != nil {
		p.observer.ObserveLog("", OutcomeFailed)
		return OutcomeFailed, &StageError{Stage: StageDecode, Err: err}
	}

	if err := p.mapper.Handle(ctx, event); err != nil {
		p.observer.ObserveLog(event.Kind, OutcomeFailed)
		return OutcomeFailed, &StageError{Stage: failureStage(err), Err: err}
	}

	p.observer.ObserveLog(event.Kind, OutcomeHandled)
	p.logger.Debug("record stored",
		zap.String("kind", string(event.Kind)),
		zap.String("tx_hash", log.TxHash),
		zap.Uint64("log_index", log.LogIndex),
		zap.Uint64("block_number", log.BlockNumber),
	)
	return OutcomeHandled, nil
}

// PutLogBatch processes logs in order and stops at the first failure, so the
// runner's checkpoint never moves past an unprocessed log.
func (p *Processor) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, log := range logs {
		if _, err := p.Process(ctx, log); err != nil {
			return fmt.Errorf("log %s: %w", log.Key(), err)
		}
	}
	return nil
}

func failureStage(err error) string {
	switch {
	case errors.Is(err, mapping.ErrUnknownKind),
		errors.Is(err, mapping.ErrMissingParam),
		errors.Is(err, model.ErrIncompatibleType):
		return StageMap
	default:
		return StageStore
	}
}
