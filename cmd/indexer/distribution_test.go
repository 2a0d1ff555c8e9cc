package main

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/distribution"
	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
	"claimingIndexer/internal/storage/memory"
)

func claimEvent(claimer, token string, amount int64, block uint64, logIndex uint) mapping.DecodedEvent {
	return mapping.DecodedEvent{
		Kind: model.KindPaymentClaimed,
		Params: map[string]interface{}{
			"token":   common.HexToAddress(token),
			"claimer": common.HexToAddress(claimer),
			"amount":  big.NewInt(amount),
		},
		TxHash:         common.BigToHash(new(big.Int).SetUint64(block)),
		LogIndex:       logIndex,
		BlockNumber:    block,
		BlockTimestamp: block * 12,
	}
}

func TestClaimedDistributionAndVerifyRoot(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	mapper := mapping.NewMapper(mapping.Config{}, store)
	for _, ev := range []mapping.DecodedEvent{
		claimEvent("0xb1", "0xa1", 5, 10, 0),
		claimEvent("0xb2", "0xa1", 7, 11, 0),
		claimEvent("0xb1", "0xa1", 3, 12, 1),
		claimEvent("0xb1", "0xa2", 9, 12, 2),
	} {
		if err := mapper.Handle(ctx, ev); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	dist, err := claimedDistribution(ctx, store)
	if err != nil {
		t.Fatalf("claimed: %v", err)
	}
	if dist.NumAccounts() != 2 || dist.NumLeaves() != 3 {
		t.Fatalf("unexpected shape: accounts=%d leaves=%d", dist.NumAccounts(), dist.NumLeaves())
	}
	if got := dist.Get(common.HexToAddress("0xb1"), common.HexToAddress("0xa1")); got.Int64() != 8 {
		t.Fatalf("expected 8, got %s", got)
	}

	path := filepath.Join(t.TempDir(), "out", "claimed.json")
	if err := writeDistribution(path, dist); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := readDistribution(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, _, err := verifyRoot(ctx, store, loaded); !errors.Is(err, errRootNotSubmitted) {
		t.Fatalf("expected unsubmitted root, got %v", err)
	}

	want, err := dist.Root()
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	err = mapper.Handle(ctx, mapping.DecodedEvent{
		Kind: model.KindRootSubmitted,
		Params: map[string]interface{}{
			"root":                             want,
			"paymentsCalculatedUntilTimestamp": uint32(1000),
			"activatedAfter":                   uint32(2000),
		},
		TxHash:      common.HexToHash("0xfe"),
		LogIndex:    0,
		BlockNumber: 20,
	})
	if err != nil {
		t.Fatalf("handle root: %v", err)
	}

	root, submitted, err := verifyRoot(ctx, store, loaded)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if root != want || submitted.ActivatedAfter != 2000 || submitted.BlockNumber != 20 {
		t.Fatalf("unexpected verification: root=%s submitted=%+v", root.Hex(), submitted)
	}
}

func TestVerifyRootEmptyDistribution(t *testing.T) {
	if _, _, err := verifyRoot(context.Background(), memory.NewStore(), distribution.New()); !errors.Is(err, distribution.ErrEmpty) {
		t.Fatalf("expected empty error, got %v", err)
	}
}
