package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type fakeCode map[common.Address]bool

func (f fakeCode) HasCode(_ context.Context, addr common.Address) (bool, error) {
	if addr == (common.Address{}) {
		return false, errors.New("rpc down")
	}
	return f[addr], nil
}

func TestRequireContracts(t *testing.T) {
	deployed := common.HexToAddress("0x01")
	missing := common.HexToAddress("0x02")
	checker := fakeCode{deployed: true}
	ctx := context.Background()

	if err := requireContracts(ctx, checker, []common.Address{deployed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := requireContracts(ctx, checker, []common.Address{deployed, missing})
	if err == nil || !strings.Contains(err.Error(), missing.Hex()) {
		t.Fatalf("expected missing contract error, got %v", err)
	}
	if err := requireContracts(ctx, checker, []common.Address{{}}); err == nil {
		t.Fatalf("expected rpc error")
	}
}
