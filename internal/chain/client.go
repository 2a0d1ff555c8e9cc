// Package chain reads ClaimingManager logs and block data over JSON-RPC.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// timestampCacheSize bounds the number of block timestamps kept in memory.
const timestampCacheSize = 100_000

// headerReader is the subset of ethclient.Client used for timestamps.
type headerReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// timestampCache resolves block timestamps, keeping the most recently used
// ones. Logs of one batch share few blocks, so hits are common.
type timestampCache struct {
	headers headerReader
	cache   *lru.Cache[uint64, uint64]
}

func newTimestampCache(headers headerReader, size int) *timestampCache {
	return &timestampCache{headers: headers, cache: lru.NewCache[uint64, uint64](size)}
}

func (c *timestampCache) get(ctx context.Context, number uint64) (uint64, error) {
	if ts, ok := c.cache.Get(number); ok {
		return ts, nil
	}
	header, err := c.headers.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}
	c.cache.Add(number, header.Time)
	return header.Time, nil
}

// Client wraps go-ethereum RPC with the calls the indexer needs.
type Client struct {
	rpcClient  *rpc.Client
	eth        *ethclient.Client
	timestamps *timestampCache
}

// NewClient dials rpcURL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	eth := ethclient.NewClient(rpcClient)
	return &Client{
		rpcClient:  rpcClient,
		eth:        eth,
		timestamps: newTimestampCache(eth, timestampCacheSize),
	}, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

// BlockTimestamp returns the timestamp of block number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return c.timestamps.get(ctx, number)
}

// HasCode reports whether a contract is deployed at addr on the latest block.
func (c *Client) HasCode(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}

// FilterLogs returns ClaimingManager logs in [fromBlock, toBlock] emitted by
// addresses whose topic0 is one of topic0.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	return c.eth.FilterLogs(ctx, filterQuery(fromBlock, toBlock, addresses, topic0))
}

func filterQuery(fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return query
}
