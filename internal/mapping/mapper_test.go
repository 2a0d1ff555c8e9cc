package mapping

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage/memory"
)

var (
	testTxHash = common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	addrA      = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	addrB      = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func decodedEvent(kind model.Kind, logIndex uint, params map[string]interface{}) DecodedEvent {
	return DecodedEvent{
		Kind:           kind,
		Params:         params,
		TxHash:         testTxHash,
		LogIndex:       logIndex,
		BlockNumber:    1000,
		BlockTimestamp: 1700000000,
	}
}

func sampleEvents() []DecodedEvent {
	return []DecodedEvent{
		decodedEvent(model.KindActivationDelaySet, 0, map[string]interface{}{
			"oldActivationDelay": uint32(3600),
			"newActivationDelay": uint32(7200),
		}),
		decodedEvent(model.KindClaimerSet, 1, map[string]interface{}{
			"account": addrA,
			"claimer": addrB,
		}),
		decodedEvent(model.KindCommissionSet, 2, map[string]interface{}{
			"operator":       addrA,
			"avs":            addrB,
			"commissionBips": uint16(1000),
		}),
		decodedEvent(model.KindPaymentClaimed, 3, map[string]interface{}{
			"token":   addrA,
			"claimer": addrB,
			"amount":  big.NewInt(500),
		}),
		decodedEvent(model.KindPaymentUpdaterSet, 4, map[string]interface{}{
			"oldPaymentUpdater": addrA,
			"newPaymentUpdater": addrB,
		}),
		decodedEvent(model.KindRootSubmitted, 5, map[string]interface{}{
			"root":                             common.HexToHash("0x1234"),
			"paymentsCalculatedUntilTimestamp": uint32(1699990000),
			"activatedAfter":                   uint32(1700003600),
		}),
	}
}

type countingStore struct {
	calls int
	last  model.Record
	err   error
}

func (s *countingStore) Upsert(_ context.Context, _ model.Kind, _ model.RecordID, record model.Record) error {
	s.calls++
	s.last = record
	return s.err
}

func TestMapPaymentClaimedScenario(t *testing.T) {
	mapper := NewMapper(Config{}, nil)
	ev := decodedEvent(model.KindPaymentClaimed, 2, map[string]interface{}{
		"token":   addrA,
		"claimer": addrB,
		"amount":  big.NewInt(500),
	})

	rec, err := mapper.Map(ev)
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	wantID := "0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc00000002"
	if rec.ID.Hex() != wantID {
		t.Fatalf("id mismatch: %s", rec.ID.Hex())
	}

	var typed model.PaymentClaimed
	if err := rec.Decode(&typed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if typed.Token != addrA || typed.Claimer != addrB || typed.Amount.Int64() != 500 {
		t.Fatalf("payload mismatch: %+v", typed)
	}
	if typed.BlockNumber != 1000 || typed.BlockTimestamp != 1700000000 || typed.TransactionHash != testTxHash {
		t.Fatalf("provenance mismatch: %+v", typed.Provenance)
	}
}

func TestMapRootSubmittedSameTransaction(t *testing.T) {
	mapper := NewMapper(Config{}, nil)
	params := map[string]interface{}{
		"root":                             common.HexToHash("0x99"),
		"paymentsCalculatedUntilTimestamp": uint32(1),
		"activatedAfter":                   uint32(2),
	}

	first, err := mapper.Map(decodedEvent(model.KindRootSubmitted, 0, params))
	if err != nil {
		t.Fatalf("map first: %v", err)
	}
	second, err := mapper.Map(decodedEvent(model.KindRootSubmitted, 1, params))
	if err != nil {
		t.Fatalf("map second: %v", err)
	}

	if bytes.Equal(first.ID, second.ID) {
		t.Fatalf("ids must differ")
	}
	prefix := len(first.ID) - 4
	if !bytes.Equal(first.ID[:prefix], second.ID[:prefix]) {
		t.Fatalf("ids must differ only in the final 4 bytes")
	}
}

func TestMapFieldFidelityAllKinds(t *testing.T) {
	mapper := NewMapper(Config{}, nil)
	for _, ev := range sampleEvents() {
		rec, err := mapper.Map(ev)
		if err != nil {
			t.Fatalf("%s: map: %v", ev.Kind, err)
		}
		if rec.Kind != ev.Kind {
			t.Fatalf("%s: kind mismatch: %s", ev.Kind, rec.Kind)
		}
		if len(rec.Fields) != len(ev.Params) {
			t.Fatalf("%s: field count %d != %d", ev.Kind, len(rec.Fields), len(ev.Params))
		}
		for name, want := range ev.Params {
			got, ok := rec.Get(name)
			if !ok {
				t.Fatalf("%s: missing field %s", ev.Kind, name)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("%s.%s: got %v, want %v", ev.Kind, name, got, want)
			}
		}
		if rec.BlockNumber == 0 || rec.BlockTimestamp == 0 || rec.TransactionHash == (common.Hash{}) {
			t.Fatalf("%s: provenance incomplete: %+v", ev.Kind, rec.Provenance)
		}
		if _, err := rec.Typed(); err != nil {
			t.Fatalf("%s: typed: %v", ev.Kind, err)
		}
	}
}

func TestMapDeterministic(t *testing.T) {
	mapper := NewMapper(Config{}, nil)
	for _, ev := range sampleEvents() {
		a, err := mapper.Map(ev)
		if err != nil {
			t.Fatalf("map: %v", err)
		}
		b, err := mapper.Map(ev)
		if err != nil {
			t.Fatalf("map: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("%s: mapping is not deterministic", ev.Kind)
		}
	}
}

func TestMapDoesNotAliasBigInt(t *testing.T) {
	amount := big.NewInt(500)
	ev := decodedEvent(model.KindPaymentClaimed, 0, map[string]interface{}{
		"token":   addrA,
		"claimer": addrB,
		"amount":  amount,
	})
	rec, err := NewMapper(Config{}, nil).Map(ev)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	amount.SetInt64(1)
	got, _ := rec.Get("amount")
	if got.(*big.Int).Int64() != 500 {
		t.Fatalf("record amount changed with input: %v", got)
	}
}

func TestHandleIdempotent(t *testing.T) {
	store := memory.NewStore()
	mapper := NewMapper(Config{}, store)
	ctx := context.Background()

	events := sampleEvents()
	for _, ev := range events {
		if err := mapper.Handle(ctx, ev); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	snapshot := make(map[model.Kind][]model.Record)
	for _, kind := range model.Kinds() {
		snapshot[kind] = store.All(kind)
	}

	for i := 0; i < 3; i++ {
		for _, ev := range events {
			if err := mapper.Handle(ctx, ev); err != nil {
				t.Fatalf("replay: %v", err)
			}
		}
	}

	if store.Writes() != 4*len(events) {
		t.Fatalf("expected one write per invocation, got %d", store.Writes())
	}
	for _, kind := range model.Kinds() {
		if store.Len(kind) != 1 {
			t.Fatalf("%s: expected 1 record, got %d", kind, store.Len(kind))
		}
		if !reflect.DeepEqual(snapshot[kind], store.All(kind)) {
			t.Fatalf("%s: state changed after replay", kind)
		}
	}
}

func TestHandleWritesOnce(t *testing.T) {
	store := &countingStore{}
	mapper := NewMapper(Config{}, store)
	ev := sampleEvents()[1]

	if err := mapper.Handle(context.Background(), ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 upsert, got %d", store.calls)
	}
	if store.last.Kind != model.KindClaimerSet {
		t.Fatalf("unexpected kind: %s", store.last.Kind)
	}
}

func TestHandleStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &countingStore{err: storeErr}
	mapper := NewMapper(Config{}, store)

	err := mapper.Handle(context.Background(), sampleEvents()[0])
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("store errors must not be retried, got %d calls", store.calls)
	}
}

func TestHandleNilStore(t *testing.T) {
	if err := NewMapper(Config{}, nil).Handle(context.Background(), sampleEvents()[0]); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestMapErrors(t *testing.T) {
	mapper := NewMapper(Config{}, nil)

	_, err := mapper.Map(DecodedEvent{Kind: "Transfer"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}

	_, err = mapper.Map(decodedEvent(model.KindClaimerSet, 0, map[string]interface{}{"account": addrA}))
	if !errors.Is(err, ErrMissingParam) {
		t.Fatalf("expected ErrMissingParam, got %v", err)
	}

	_, err = mapper.Map(decodedEvent(model.KindClaimerSet, 0, map[string]interface{}{
		"account": addrA,
		"claimer": "0xbbbb",
	}))
	if !errors.Is(err, model.ErrIncompatibleType) {
		t.Fatalf("expected ErrIncompatibleType, got %v", err)
	}
}

func TestPerKindHandlers(t *testing.T) {
	store := memory.NewStore()
	mapper := NewMapper(Config{IDByteOrder: LittleEndian}, store)
	ctx := context.Background()
	events := sampleEvents()

	handlers := []func(context.Context, DecodedEvent) error{
		mapper.HandleActivationDelaySet,
		mapper.HandleClaimerSet,
		mapper.HandleCommissionSet,
		mapper.HandlePaymentClaimed,
		mapper.HandlePaymentUpdaterSet,
		mapper.HandleRootSubmitted,
	}

	for i, handle := range handlers {
		if err := handle(ctx, events[i]); err != nil {
			t.Fatalf("%s: %v", events[i].Kind, err)
		}
		id := DeriveID(testTxHash, events[i].LogIndex, LittleEndian)
		if _, ok := store.Get(events[i].Kind, id); !ok {
			t.Fatalf("%s: record not stored under little-endian id", events[i].Kind)
		}
	}

	err := mapper.HandlePaymentClaimed(ctx, events[0])
	if !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}
