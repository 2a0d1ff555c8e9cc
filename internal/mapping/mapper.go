package mapping

import (
	"context"
	"errors"
	"fmt"

	"claimingIndexer/internal/model"
)

var (
	ErrUnknownKind  = errors.New("unknown event kind")
	ErrMissingParam = errors.New("missing event parameter")
	ErrKindMismatch = errors.New("event kind mismatch")
)

// Config configures a Mapper.
type Config struct {
	IDByteOrder ByteOrder
}

// Mapper converts decoded events into records and writes each one to a Store.
// It holds no mutable state and is safe for concurrent use.
type Mapper struct {
	store Store
	order ByteOrder
}

// NewMapper builds a Mapper writing to store.
func NewMapper(cfg Config, store Store) *Mapper {
	return &Mapper{store: store, order: cfg.IDByteOrder}
}

// Map builds the record for ev without writing it.
func (m *Mapper) Map(ev DecodedEvent) (model.Record, error) {
	schema, ok := model.SchemaFor(ev.Kind)
	if !ok {
		return model.Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, ev.Kind)
	}

	fields := make([]model.FieldValue, 0, len(schema.Fields))
	for _, field := range schema.Fields {
		raw, ok := ev.Params[field.Source]
		if !ok {
			return model.Record{}, fmt.Errorf("%s.%s: %w", ev.Kind, field.Source, ErrMissingParam)
		}
		value, err := field.Type.Coerce(raw)
		if err != nil {
			return model.Record{}, fmt.Errorf("%s.%s: %w", ev.Kind, field.Source, err)
		}
		fields = append(fields, model.FieldValue{Name: field.Source, Value: value})
	}

	return model.Record{
		Kind:       ev.Kind,
		ID:         DeriveID(ev.TxHash, ev.LogIndex, m.order),
		Fields:     fields,
		Provenance: StampProvenance(ev),
	}, nil
}

// Handle maps ev and issues exactly one upsert for the result.
func (m *Mapper) Handle(ctx context.Context, ev DecodedEvent) error {
	if m.store == nil {
		return fmt.Errorf("store is nil")
	}
	record, err := m.Map(ev)
	if err != nil {
		return err
	}
	if err := m.store.Upsert(ctx, record.Kind, record.ID, record); err != nil {
		return fmt.Errorf("upsert %s %s: %w", record.Kind, record.ID.Hex(), err)
	}
	return nil
}

func (m *Mapper) handleKind(ctx context.Context, kind model.Kind, ev DecodedEvent) error {
	if ev.Kind != kind {
		return fmt.Errorf("%w: want %s, got %s", ErrKindMismatch, kind, ev.Kind)
	}
	return m.Handle(ctx, ev)
}

func (m *Mapper) HandleActivationDelaySet(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindActivationDelaySet, ev)
}

func (m *Mapper) HandleClaimerSet(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindClaimerSet, ev)
}

func (m *Mapper) HandleCommissionSet(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindCommissionSet, ev)
}

func (m *Mapper) HandlePaymentClaimed(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindPaymentClaimed, ev)
}

func (m *Mapper) HandlePaymentUpdaterSet(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindPaymentUpdaterSet, ev)
}

func (m *Mapper) HandleRootSubmitted(ctx context.Context, ev DecodedEvent) error {
	return m.handleKind(ctx, model.KindRootSubmitted, ev)
}
