package model

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrIncompatibleType is returned when a decoded value cannot be stored in a field.
var ErrIncompatibleType = errors.New("incompatible field type")

// FieldType is the storage type of a record field.
type FieldType int

const (
	TypeAddress FieldType = iota + 1
	TypeUint16
	TypeUint32
	TypeUint256
	TypeBytes32
)

func (t FieldType) String() string {
	switch t {
	case TypeAddress:
		return "address"
	case TypeUint16:
		return "uint16"
	case TypeUint32:
		return "uint32"
	case TypeUint256:
		return "uint256"
	case TypeBytes32:
		return "bytes32"
	default:
		return fmt.Sprintf("FieldType(%d)", int(t))
	}
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Coerce returns v as the Go type of t. Unsigned integers of any width are
// accepted as long as the value fits; nothing else is converted.
func (t FieldType) Coerce(v interface{}) (interface{}, error) {
	switch t {
	case TypeAddress:
		if addr, ok := v.(common.Address); ok {
			return addr, nil
		}
	case TypeBytes32:
		switch typed := v.(type) {
		case common.Hash:
			return typed, nil
		case [32]byte:
			return common.Hash(typed), nil
		}
	case TypeUint16:
		n, ok := unsignedValue(v)
		if ok && n.IsUint64() && n.Uint64() <= 0xffff {
			return uint16(n.Uint64()), nil
		}
	case TypeUint32:
		n, ok := unsignedValue(v)
		if ok && n.IsUint64() && n.Uint64() <= 0xffffffff {
			return uint32(n.Uint64()), nil
		}
	case TypeUint256:
		n, ok := unsignedValue(v)
		if ok && n.Cmp(maxUint256) <= 0 {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %T as %s", ErrIncompatibleType, v, t)
}

func unsignedValue(v interface{}) (*big.Int, bool) {
	switch typed := v.(type) {
	case uint8:
		return new(big.Int).SetUint64(uint64(typed)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(typed)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(typed)), true
	case uint64:
		return new(big.Int).SetUint64(typed), true
	case uint:
		return new(big.Int).SetUint64(uint64(typed)), true
	case *big.Int:
		if typed == nil || typed.Sign() < 0 {
			return nil, false
		}
		return new(big.Int).Set(typed), true
	default:
		return nil, false
	}
}
