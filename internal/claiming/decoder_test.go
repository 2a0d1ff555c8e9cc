package claiming

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
)

var (
	txHash = common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	token  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	holder = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	contractABI, err := ClaimingManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewDecoder(contractABI)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return decoder
}

func packData(t *testing.T, event string, values ...interface{}) []byte {
	t.Helper()
	contractABI, err := ClaimingManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	data, err := contractABI.Events[event].Inputs.NonIndexed().Pack(values...)
	if err != nil {
		t.Fatalf("pack %s: %v", event, err)
	}
	return data
}

func buildLogRecord(t *testing.T, event string, logIndex uint64, data []byte, indexed ...common.Hash) model.LogRecord {
	t.Helper()
	contractABI, err := ClaimingManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	topics := []string{contractABI.Events[event].ID.Hex()}
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}
	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 1000,
		BlockHash:   common.HexToHash("0x01").Hex(),
		TxHash:      txHash.Hex(),
		LogIndex:    logIndex,
		Address:     "0x1111111111111111111111111111111111111111",
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodePaymentClaimed(t *testing.T) {
	decoder := newTestDecoder(t)
	log := buildLogRecord(t, "PaymentClaimed", 2,
		packData(t, "PaymentClaimed", big.NewInt(500)),
		topicFromAddress(token), topicFromAddress(holder),
	)

	if !decoder.CanDecode(log.Topic0()) {
		t.Fatalf("decoder should accept PaymentClaimed")
	}

	ev, err := decoder.Decode(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != model.KindPaymentClaimed {
		t.Fatalf("kind mismatch: %s", ev.Kind)
	}
	if ev.Params["token"] != token || ev.Params["claimer"] != holder {
		t.Fatalf("address mismatch: %+v", ev.Params)
	}
	if amount, ok := ev.Params["amount"].(*big.Int); !ok || amount.Int64() != 500 {
		t.Fatalf("amount mismatch: %v", ev.Params["amount"])
	}
	if ev.TxHash != txHash || ev.LogIndex != 2 || ev.BlockNumber != 1000 || ev.BlockTimestamp != 1700000000 {
		t.Fatalf("context mismatch: %+v", ev)
	}

	rec, err := mapping.NewMapper(mapping.Config{}, nil).Map(ev)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if rec.ID.Hex() != txHash.Hex()+"00000002" {
		t.Fatalf("id mismatch: %s", rec.ID.Hex())
	}
}

func TestDecodeAllKinds(t *testing.T) {
	decoder := newTestDecoder(t)
	root := common.HexToHash("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")

	logs := []model.LogRecord{
		buildLogRecord(t, "ActivationDelaySet", 0, packData(t, "ActivationDelaySet", uint32(3600), uint32(7200))),
		buildLogRecord(t, "ClaimerSet", 1, nil, topicFromAddress(token), topicFromAddress(holder)),
		buildLogRecord(t, "CommissionSet", 2, packData(t, "CommissionSet", uint16(1000)), topicFromAddress(token), topicFromAddress(holder)),
		buildLogRecord(t, "PaymentUpdaterSet", 3, nil, topicFromAddress(token), topicFromAddress(holder)),
		buildLogRecord(t, "RootSubmitted", 4, packData(t, "RootSubmitted", uint32(1699990000), uint32(1700003600)), root),
	}

	mapper := mapping.NewMapper(mapping.Config{}, nil)
	wantKinds := []model.Kind{
		model.KindActivationDelaySet,
		model.KindClaimerSet,
		model.KindCommissionSet,
		model.KindPaymentUpdaterSet,
		model.KindRootSubmitted,
	}

	for i, log := range logs {
		ev, err := decoder.Decode(log)
		if err != nil {
			t.Fatalf("%s: decode: %v", wantKinds[i], err)
		}
		if ev.Kind != wantKinds[i] {
			t.Fatalf("kind mismatch: %s != %s", ev.Kind, wantKinds[i])
		}
		rec, err := mapper.Map(ev)
		if err != nil {
			t.Fatalf("%s: map: %v", ev.Kind, err)
		}
		if _, err := rec.Typed(); err != nil {
			t.Fatalf("%s: typed: %v", ev.Kind, err)
		}
	}

	rootEvent, err := decoder.Decode(logs[4])
	if err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if rootEvent.Params["root"] != root {
		t.Fatalf("root mismatch: %v", rootEvent.Params["root"])
	}
	if rootEvent.Params["activatedAfter"] != uint32(1700003600) {
		t.Fatalf("activatedAfter mismatch: %v", rootEvent.Params["activatedAfter"])
	}

	commission, err := decoder.Decode(logs[2])
	if err != nil {
		t.Fatalf("decode commission: %v", err)
	}
	if commission.Params["commissionBips"] != uint16(1000) || commission.Params["avs"] != holder {
		t.Fatalf("commission mismatch: %+v", commission.Params)
	}
}

func TestDecodeRejectsMalformedLogs(t *testing.T) {
	decoder := newTestDecoder(t)

	good := buildLogRecord(t, "ClaimerSet", 1, nil, topicFromAddress(token), topicFromAddress(holder))

	missingTopic := good
	missingTopic.Topics = good.Topics[:2]
	if _, err := decoder.Decode(missingTopic); err == nil {
		t.Fatalf("expected error for missing topic")
	}

	badHash := good
	badHash.TxHash = "0xdef"
	if _, err := decoder.Decode(badHash); err == nil {
		t.Fatalf("expected error for bad tx hash")
	}

	noTopics := good
	noTopics.Topics = nil
	if _, err := decoder.Decode(noTopics); err == nil {
		t.Fatalf("expected error for missing topics")
	}

	unknown := good
	unknown.Topics = []string{common.HexToHash("0x01").Hex()}
	if decoder.CanDecode(unknown.Topic0()) {
		t.Fatalf("unknown topic0 must not be decodable")
	}
	if _, err := decoder.Decode(unknown); err == nil {
		t.Fatalf("expected error for unknown topic0")
	}

	truncated := buildLogRecord(t, "PaymentClaimed", 0, []byte{0x01}, topicFromAddress(token), topicFromAddress(holder))
	if _, err := decoder.Decode(truncated); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}

func TestTopic0s(t *testing.T) {
	decoder := newTestDecoder(t)
	topics := decoder.Topic0s()
	if len(topics) != len(model.Kinds()) {
		t.Fatalf("expected %d topics, got %d", len(model.Kinds()), len(topics))
	}
	for _, topic := range topics {
		if !decoder.CanDecode(topic.Hex()) {
			t.Fatalf("topic %s not decodable", topic.Hex())
		}
	}
}

func TestTopicFor(t *testing.T) {
	decoder := newTestDecoder(t)
	contractABI, err := ClaimingManagerABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	want := contractABI.Events["RootSubmitted"].ID
	for _, name := range []string{"RootSubmitted", " rootsubmitted "} {
		got, ok := decoder.TopicFor(name)
		if !ok || got != want {
			t.Fatalf("TopicFor(%q) = %s, %v", name, got.Hex(), ok)
		}
	}
	if _, ok := decoder.TopicFor("Transfer"); ok {
		t.Fatalf("expected unknown event to be rejected")
	}
}

func TestLoadABI(t *testing.T) {
	builtin, err := LoadABI("")
	if err != nil {
		t.Fatalf("builtin: %v", err)
	}
	if len(builtin.Events) != len(model.Kinds()) {
		t.Fatalf("builtin abi events: %d", len(builtin.Events))
	}

	dir := t.TempDir()
	partial := filepath.Join(dir, "partial.json")
	if err := os.WriteFile(partial, []byte(`[{"anonymous":false,"inputs":[],"name":"ActivationDelaySet","type":"event"}]`), 0o644); err != nil {
		t.Fatalf("write abi: %v", err)
	}
	parsed, err := LoadABI(partial)
	if err != nil {
		t.Fatalf("load partial: %v", err)
	}
	if _, err := NewDecoder(parsed); err == nil {
		t.Fatalf("expected error for incomplete abi")
	}

	if _, err := LoadABI(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
