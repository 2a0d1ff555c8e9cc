package model

import "fmt"

// LogRecord is the normalized representation of a chain log as written by
// fetch and read back by replay.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	IngestedAt  string   `json:"ingested_at"`
}

// Topic0 returns the event signature topic, or "" for anonymous logs.
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// Key identifies the log within its chain.
func (lr LogRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", lr.BlockNumber, lr.TxHash, lr.LogIndex)
}
