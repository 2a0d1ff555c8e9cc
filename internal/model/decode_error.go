package model

// DecodeError records a log that could not be turned into a record.
type DecodeError struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Stage       string `json:"stage"`
	Error       string `json:"error"`
}

// NewDecodeError builds a DecodeError for the given log and failing stage.
func NewDecodeError(lr LogRecord, stage string, err error) DecodeError {
	return DecodeError{
		ChainID:     lr.ChainID,
		BlockNumber: lr.BlockNumber,
		TxHash:      lr.TxHash,
		LogIndex:    lr.LogIndex,
		Address:     lr.Address,
		Topic0:      lr.Topic0(),
		Stage:       stage,
		Error:       err.Error(),
	}
}
