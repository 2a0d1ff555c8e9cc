package storage

import (
	"context"

	"claimingIndexer/internal/model"
)

// LogSink receives batches of raw logs in block order.
type LogSink interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}
