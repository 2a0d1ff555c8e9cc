package model

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mitchellh/mapstructure"
)

// RecordID is the storage key of a record: tx hash followed by the 4-byte log index.
type RecordID []byte

// Hex returns the 0x-prefixed hex encoding of the id.
func (id RecordID) Hex() string {
	return hexutil.Encode(id)
}

func (id RecordID) String() string {
	return id.Hex()
}

// MarshalText encodes the id as hex.
func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex id.
func (id *RecordID) UnmarshalText(text []byte) error {
	data, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}
	*id = data
	return nil
}

// Provenance locates the log a record was produced from.
type Provenance struct {
	BlockNumber     uint64      `json:"block_number" mapstructure:"blockNumber"`
	BlockTimestamp  uint64      `json:"block_timestamp" mapstructure:"blockTimestamp"`
	TransactionHash common.Hash `json:"transaction_hash" mapstructure:"transactionHash"`
}

// FieldValue is one payload field of a record.
type FieldValue struct {
	Name  string
	Value interface{}
}

// Record is the kind-tagged output of mapping one decoded event.
type Record struct {
	Kind   Kind
	ID     RecordID
	Fields []FieldValue
	Provenance
}

// Get returns the payload field with the given name.
func (r Record) Get(name string) (interface{}, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of r. Byte slices and *big.Int values are
// duplicated; other field values are immutable value types.
func (r Record) Clone() Record {
	out := r
	if r.ID != nil {
		out.ID = bytes.Clone(r.ID)
	}
	if r.Fields != nil {
		out.Fields = make([]FieldValue, len(r.Fields))
		for i, f := range r.Fields {
			out.Fields[i] = FieldValue{Name: f.Name, Value: cloneValue(f.Value)}
		}
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch typed := v.(type) {
	case *big.Int:
		if typed == nil {
			return typed
		}
		return new(big.Int).Set(typed)
	case []byte:
		return bytes.Clone(typed)
	case RecordID:
		return RecordID(bytes.Clone(typed))
	default:
		return v
	}
}

// Values flattens the record into a map keyed by field name, including id
// and provenance.
func (r Record) Values() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields)+4)
	for _, f := range r.Fields {
		out[f.Name] = f.Value
	}
	out["id"] = r.ID
	out["blockNumber"] = r.BlockNumber
	out["blockTimestamp"] = r.BlockTimestamp
	out["transactionHash"] = r.TransactionHash
	return out
}

// Decode fills out, a pointer to one of the typed record structs, from r.
func (r Record) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(r.Values()); err != nil {
		return fmt.Errorf("decode %s record: %w", r.Kind, err)
	}
	return nil
}

// Typed returns r as a pointer to its kind's typed struct.
func (r Record) Typed() (interface{}, error) {
	out, err := NewTyped(r.Kind)
	if err != nil {
		return nil, err
	}
	if err := r.Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}
