package sqlstore

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/model"
)

// RowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// FindRootQuery selects the earliest root_submitted row with a given root.
func FindRootQuery(d Dialect) string {
	return fmt.Sprintf(
		"SELECT id, root, payments_calculated_until_timestamp, activated_after, block_number, block_timestamp, transaction_hash "+
			"FROM root_submitted WHERE root = %s ORDER BY block_number, id LIMIT 1",
		d.Placeholder(1),
	)
}

// PaymentClaimsQuery selects every payment_claimed row in chain order.
func PaymentClaimsQuery(d Dialect) string {
	return fmt.Sprintf(
		"SELECT id, token, claimer, %s, block_number, block_timestamp, transaction_hash "+
			"FROM payment_claimed ORDER BY block_number, id",
		d.textColumn("amount"),
	)
}

// ScanRootSubmitted reads a row produced by FindRootQuery.
func ScanRootSubmitted(row RowScanner) (model.RootSubmitted, error) {
	var (
		id, root, txHash            []byte
		calculatedUntil, activated  int64
		blockNumber, blockTimestamp int64
	)
	if err := row.Scan(&id, &root, &calculatedUntil, &activated, &blockNumber, &blockTimestamp, &txHash); err != nil {
		return model.RootSubmitted{}, err
	}
	return model.RootSubmitted{
		ID:                               model.RecordID(id),
		Root:                             common.BytesToHash(root),
		PaymentsCalculatedUntilTimestamp: uint32(calculatedUntil),
		ActivatedAfter:                   uint32(activated),
		Provenance:                       provenance(blockNumber, blockTimestamp, txHash),
	}, nil
}

// ScanPaymentClaimed reads a row produced by PaymentClaimsQuery.
func ScanPaymentClaimed(row RowScanner) (model.PaymentClaimed, error) {
	var (
		id, token, claimer, txHash  []byte
		amount                      string
		blockNumber, blockTimestamp int64
	)
	if err := row.Scan(&id, &token, &claimer, &amount, &blockNumber, &blockTimestamp, &txHash); err != nil {
		return model.PaymentClaimed{}, err
	}
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return model.PaymentClaimed{}, fmt.Errorf("invalid stored amount %q", amount)
	}
	return model.PaymentClaimed{
		ID:         model.RecordID(id),
		Token:      common.BytesToAddress(token),
		Claimer:    common.BytesToAddress(claimer),
		Amount:     value,
		Provenance: provenance(blockNumber, blockTimestamp, txHash),
	}, nil
}

func provenance(blockNumber, blockTimestamp int64, txHash []byte) model.Provenance {
	return model.Provenance{
		BlockNumber:     uint64(blockNumber),
		BlockTimestamp:  uint64(blockTimestamp),
		TransactionHash: common.BytesToHash(txHash),
	}
}
