package claiming

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const claimingManagerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "oldActivationDelay", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "newActivationDelay", "type": "uint32"}
    ],
    "name": "ActivationDelaySet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "account", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "claimer", "type": "address"}
    ],
    "name": "ClaimerSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "operator", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "avs", "type": "address"},
      {"indexed": false, "internalType": "uint16", "name": "commissionBips", "type": "uint16"}
    ],
    "name": "CommissionSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "contract IERC20", "name": "token", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "claimer", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "PaymentClaimed",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "oldPaymentUpdater", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "newPaymentUpdater", "type": "address"}
    ],
    "name": "PaymentUpdaterSet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "bytes32", "name": "root", "type": "bytes32"},
      {"indexed": false, "internalType": "uint32", "name": "paymentsCalculatedUntilTimestamp", "type": "uint32"},
      {"indexed": false, "internalType": "uint32", "name": "activatedAfter", "type": "uint32"}
    ],
    "name": "RootSubmitted",
    "type": "event"
  }
]`

var (
	claimingManagerABI     abi.ABI
	claimingManagerABIOnce sync.Once
	claimingManagerABIErr  error
)

// ClaimingManagerABI returns the parsed built-in ClaimingManager event ABI.
func ClaimingManagerABI() (abi.ABI, error) {
	claimingManagerABIOnce.Do(func() {
		claimingManagerABI, claimingManagerABIErr = abi.JSON(strings.NewReader(claimingManagerABIJSON))
	})
	return claimingManagerABI, claimingManagerABIErr
}

// LoadABI parses a contract ABI JSON file. An empty path returns the built-in ABI.
func LoadABI(path string) (abi.ABI, error) {
	if path == "" {
		return ClaimingManagerABI()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("read abi: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(string(data)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse abi: %w", err)
	}
	return parsed, nil
}
