package sqlstore

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeRow assigns values positionally, like a driver row.
type fakeRow struct {
	values []interface{}
	err    error
}

func (r fakeRow) Scan(dest ...interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *[]byte:
			*target = r.values[i].([]byte)
		case *int64:
			*target = r.values[i].(int64)
		case *string:
			*target = r.values[i].(string)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

func TestQueries(t *testing.T) {
	pgLike := testDialect
	pgLike.TextCast = func(column string) string { return column + "::text" }

	if got := FindRootQuery(pgLike); !strings.Contains(got, "WHERE root = $1") || !strings.HasSuffix(got, "LIMIT 1") {
		t.Fatalf("unexpected root query: %s", got)
	}
	if got := PaymentClaimsQuery(pgLike); !strings.Contains(got, "amount::text") {
		t.Fatalf("expected text cast: %s", got)
	}
	if got := PaymentClaimsQuery(testDialect); strings.Contains(got, "::text") || !strings.Contains(got, "ORDER BY block_number, id") {
		t.Fatalf("unexpected claims query: %s", got)
	}
}

func TestScanPaymentClaimed(t *testing.T) {
	token := common.HexToAddress("0xaa")
	claimer := common.HexToAddress("0xbb")
	tx := common.HexToHash("0xcc")
	row := fakeRow{values: []interface{}{
		[]byte{1, 2}, token.Bytes(), claimer.Bytes(),
		"115792089237316195423570985008687907853269984665640564039457584007913129639935",
		int64(1000), int64(1700000000), tx.Bytes(),
	}}
	claim, err := ScanPaymentClaimed(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if claim.Token != token || claim.Claimer != claimer || claim.TransactionHash != tx {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if claim.Amount.BitLen() != 256 || claim.BlockNumber != 1000 || claim.BlockTimestamp != 1700000000 {
		t.Fatalf("unexpected amount or provenance: %+v", claim)
	}

	row.values[3] = "12.5"
	if _, err := ScanPaymentClaimed(row); err == nil {
		t.Fatalf("expected error for non-integer amount")
	}
}

func TestScanRootSubmitted(t *testing.T) {
	root := common.HexToHash("0xfeed")
	row := fakeRow{values: []interface{}{
		[]byte{9}, root.Bytes(), int64(4294967295), int64(17), int64(5), int64(60), common.HexToHash("0x01").Bytes(),
	}}
	got, err := ScanRootSubmitted(row)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got.Root != root || got.PaymentsCalculatedUntilTimestamp != 4294967295 || got.ActivatedAfter != 17 {
		t.Fatalf("unexpected root: %+v", got)
	}
}

func TestGooseLoggerUsesZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := gooseLogger{sugar: zap.New(core).Sugar()}
	l.Printf("OK   %s (%v)\n", "00001_records.sql", "1ms")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "OK   00001_records.sql (1ms)" {
		t.Fatalf("unexpected message %q", entries[0].Message)
	}
}
