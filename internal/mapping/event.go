package mapping

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/model"
)

// DecodedEvent is a log after ABI decoding: typed parameters plus the
// block and transaction it came from.
type DecodedEvent struct {
	Kind           model.Kind
	Params         map[string]interface{}
	TxHash         common.Hash
	LogIndex       uint
	BlockNumber    uint64
	BlockTimestamp uint64
}

// Decoder turns raw logs into decoded events.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord) (DecodedEvent, error)
}

// Store persists records with create-or-overwrite semantics.
type Store interface {
	Upsert(ctx context.Context, kind model.Kind, id model.RecordID, record model.Record) error
}

// StoreFunc adapts a function to Store.
type StoreFunc func(ctx context.Context, kind model.Kind, id model.RecordID, record model.Record) error

func (f StoreFunc) Upsert(ctx context.Context, kind model.Kind, id model.RecordID, record model.Record) error {
	return f(ctx, kind, id, record)
}
