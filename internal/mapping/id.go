package mapping

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"claimingIndexer/internal/model"
)

// IDLength is the byte length of every record id.
const IDLength = common.HashLength + 4

// ByteOrder selects how the log index is encoded into a record id.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// ParseByteOrder accepts "big" or "little" (case-insensitive); "" means big.
func ParseByteOrder(input string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "big", "be", "big-endian":
		return BigEndian, nil
	case "little", "le", "little-endian":
		return LittleEndian, nil
	default:
		return 0, fmt.Errorf("unsupported id byte order: %s", input)
	}
}

func (o ByteOrder) String() string {
	if o == LittleEndian {
		return "little"
	}
	return "big"
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// DeriveID concatenates the transaction hash with the 4-byte log index.
// Indexes above 2^32-1 wrap, matching a 32-bit cast.
func DeriveID(txHash common.Hash, logIndex uint, order ByteOrder) model.RecordID {
	id := make([]byte, IDLength)
	copy(id, txHash[:])
	order.binary().PutUint32(id[common.HashLength:], uint32(logIndex))
	return id
}

// StampProvenance copies the block and transaction context of an event.
func StampProvenance(ev DecodedEvent) model.Provenance {
	return model.Provenance{
		BlockNumber:     ev.BlockNumber,
		BlockTimestamp:  ev.BlockTimestamp,
		TransactionHash: ev.TxHash,
	}
}
