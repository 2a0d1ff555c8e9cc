package indexer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{
		" 0x1111111111111111111111111111111111111111 ",
		"",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if got[1] != common.HexToAddress("0x2222222222222222222222222222222222222222") {
		t.Fatalf("order mismatch: %v", got)
	}

	if _, err := ParseAddresses([]string{"0x12"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestParseTopic0(t *testing.T) {
	topic := common.HexToHash("0xabc").Hex()
	got, err := ParseTopic0([]string{topic, " ", topic}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Hex() != topic {
		t.Fatalf("topic mismatch: %v", got)
	}

	if _, err := ParseTopic0([]string{"0xabc"}, nil); err == nil {
		t.Fatalf("expected error for short topic")
	}
	if _, err := ParseTopic0([]string{"0xzz"}, nil); err == nil {
		t.Fatalf("expected error for bad hex")
	}
	if _, err := ParseTopic0([]string{"abc"}, nil); err == nil {
		t.Fatalf("expected error for unresolvable name")
	}
}

func TestParseTopic0ResolvesNames(t *testing.T) {
	root := common.HexToHash("0x01")
	resolve := func(name string) (common.Hash, bool) {
		if name == "RootSubmitted" {
			return root, true
		}
		return common.Hash{}, false
	}

	got, err := ParseTopic0([]string{"RootSubmitted", root.Hex()}, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != root {
		t.Fatalf("expected name and hash to dedupe, got %v", got)
	}
	if _, err := ParseTopic0([]string{"PaymentClaimed"}, resolve); err == nil {
		t.Fatalf("expected error for unknown event")
	}
}
