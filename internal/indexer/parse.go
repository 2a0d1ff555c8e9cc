package indexer

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddresses converts string addresses into common.Address, dropping
// blanks and duplicates.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	seen := make(map[common.Address]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addr := common.HexToAddress(input)
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// TopicResolver maps an event name to its topic0.
type TopicResolver func(name string) (common.Hash, bool)

// ParseTopic0 converts topic0 inputs into hashes, dropping blanks and
// duplicates. An input without a 0x prefix is looked up by event name through
// resolve.
func ParseTopic0(inputs []string, resolve TopicResolver) ([]common.Hash, error) {
	topics := make([]common.Hash, 0, len(inputs))
	seen := make(map[common.Hash]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		topic, err := parseTopic(input, resolve)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	return topics, nil
}

func parseTopic(input string, resolve TopicResolver) (common.Hash, error) {
	if !has0xPrefix(input) {
		if resolve != nil {
			if topic, ok := resolve(input); ok {
				return topic, nil
			}
		}
		return common.Hash{}, fmt.Errorf("unknown event: %s", input)
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid topic0: %s", input)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid topic0 length: %s", input)
	}
	return common.BytesToHash(data), nil
}

func has0xPrefix(input string) bool {
	return len(input) >= 2 && input[0] == '0' && (input[1] == 'x' || input[1] == 'X')
}
