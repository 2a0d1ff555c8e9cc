// Package distribution tallies token amounts per account and merklizes them
// into the account/token tree whose root the payment updater submits.
package distribution

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"claimingIndexer/internal/model"
)

var (
	ErrEmpty          = errors.New("distribution is empty")
	ErrAmountOverflow = errors.New("amount does not fit in uint256")
)

// Amount is a base-10 JSON number backed by big.Int.
type Amount struct {
	*big.Int
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Int == nil {
		return []byte("0"), nil
	}
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(p []byte) error {
	if string(p) == "null" {
		return nil
	}
	n, ok := new(big.Int).SetString(string(p), 10)
	if !ok {
		return fmt.Errorf("not a valid amount: %s", p)
	}
	if n.Sign() < 0 {
		return fmt.Errorf("negative amount: %s", p)
	}
	a.Int = n
	return nil
}

type tokenAmounts = orderedmap.OrderedMap[common.Address, *Amount]

// Distribution maps account -> token -> amount, keeping insertion order. The
// order decides leaf positions in the merkle trees.
type Distribution struct {
	data *orderedmap.OrderedMap[common.Address, *tokenAmounts]
}

func New() *Distribution {
	return &Distribution{data: orderedmap.New[common.Address, *tokenAmounts]()}
}

// FromClaims sums claimed amounts per claimer and token, in claim order.
func FromClaims(claims []model.PaymentClaimed) *Distribution {
	d := New()
	for _, claim := range claims {
		if claim.Amount == nil {
			continue
		}
		current := d.Get(claim.Claimer, claim.Token)
		d.Set(claim.Claimer, claim.Token, current.Add(current, claim.Amount))
	}
	return d
}

// Set stores a copy of amount for account and token.
func (d *Distribution) Set(account, token common.Address, amount *big.Int) {
	tokens, ok := d.data.Get(account)
	if !ok {
		tokens = orderedmap.New[common.Address, *Amount]()
		d.data.Set(account, tokens)
	}
	tokens.Set(token, &Amount{Int: new(big.Int).Set(amount)})
}

// Get returns a copy of the amount for account and token, zero when unset.
func (d *Distribution) Get(account, token common.Address) *big.Int {
	tokens, ok := d.data.Get(account)
	if !ok {
		return new(big.Int)
	}
	amount, ok := tokens.Get(token)
	if !ok || amount.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount.Int)
}

// Add adds every amount of other into d.
func (d *Distribution) Add(other *Distribution) {
	for accountPair := other.data.Oldest(); accountPair != nil; accountPair = accountPair.Next() {
		for tokenPair := accountPair.Value.Oldest(); tokenPair != nil; tokenPair = tokenPair.Next() {
			if tokenPair.Value.Int == nil {
				continue
			}
			current := d.Get(accountPair.Key, tokenPair.Key)
			d.Set(accountPair.Key, tokenPair.Key, current.Add(current, tokenPair.Value.Int))
		}
	}
}

// NumAccounts returns the number of account leaves.
func (d *Distribution) NumAccounts() int {
	return d.data.Len()
}

// NumLeaves returns the number of token leaves across all accounts.
func (d *Distribution) NumLeaves() int {
	n := 0
	for pair := d.data.Oldest(); pair != nil; pair = pair.Next() {
		n += pair.Value.Len()
	}
	return n
}

func (d *Distribution) MarshalJSON() ([]byte, error) {
	return d.data.MarshalJSON()
}

func (d *Distribution) UnmarshalJSON(p []byte) error {
	data := orderedmap.New[common.Address, *tokenAmounts]()
	if err := data.UnmarshalJSON(p); err != nil {
		return err
	}
	d.data = data
	return nil
}

// Trees holds the merklized distribution. TokenTrees follow account order.
type Trees struct {
	Account *merkletree.MerkleTree
	Tokens  []*merkletree.MerkleTree
}

// Root returns the account tree root.
func (t *Trees) Root() common.Hash {
	return common.BytesToHash(t.Account.Root())
}

// Merklize builds one keccak256 tree of (token || amount) leaves per account
// and an account tree of (account || tokenRoot) leaves.
func (d *Distribution) Merklize() (*Trees, error) {
	if d.NumLeaves() == 0 {
		return nil, ErrEmpty
	}

	trees := &Trees{Tokens: make([]*merkletree.MerkleTree, 0, d.data.Len())}
	accountLeaves := make([][]byte, 0, d.data.Len())
	for accountPair := d.data.Oldest(); accountPair != nil; accountPair = accountPair.Next() {
		if accountPair.Value.Len() == 0 {
			continue
		}
		tokenLeaves := make([][]byte, 0, accountPair.Value.Len())
		for tokenPair := accountPair.Value.Oldest(); tokenPair != nil; tokenPair = tokenPair.Next() {
			leaf, err := EncodeTokenLeaf(tokenPair.Key, tokenPair.Value.Int)
			if err != nil {
				return nil, fmt.Errorf("account %s token %s: %w", accountPair.Key.Hex(), tokenPair.Key.Hex(), err)
			}
			tokenLeaves = append(tokenLeaves, leaf)
		}

		tokenTree, err := newTree(tokenLeaves)
		if err != nil {
			return nil, fmt.Errorf("token tree for %s: %w", accountPair.Key.Hex(), err)
		}
		trees.Tokens = append(trees.Tokens, tokenTree)
		accountLeaves = append(accountLeaves, EncodeAccountLeaf(accountPair.Key, tokenTree.Root()))
	}

	accountTree, err := newTree(accountLeaves)
	if err != nil {
		return nil, fmt.Errorf("account tree: %w", err)
	}
	trees.Account = accountTree
	return trees, nil
}

// Root merklizes d and returns the account tree root.
func (d *Distribution) Root() (common.Hash, error) {
	trees, err := d.Merklize()
	if err != nil {
		return common.Hash{}, err
	}
	return trees.Root(), nil
}

// EncodeAccountLeaf returns account (20 bytes) || tokenRoot.
func EncodeAccountLeaf(account common.Address, tokenRoot []byte) []byte {
	leaf := make([]byte, 0, common.AddressLength+len(tokenRoot))
	leaf = append(leaf, account.Bytes()...)
	return append(leaf, tokenRoot...)
}

// EncodeTokenLeaf returns token (20 bytes) || amount as a 32-byte big-endian word.
func EncodeTokenLeaf(token common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil {
		amount = new(big.Int)
	}
	word, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, amount)
	}
	amountBytes := word.Bytes32()
	leaf := make([]byte, 0, common.AddressLength+len(amountBytes))
	leaf = append(leaf, token.Bytes()...)
	return append(leaf, amountBytes[:]...), nil
}

func newTree(leaves [][]byte) (*merkletree.MerkleTree, error) {
	return merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
}
