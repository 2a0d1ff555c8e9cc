package claiming

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"claimingIndexer/internal/mapping"
	"claimingIndexer/internal/model"
)

// Decoder decodes ClaimingManager logs into mapping.DecodedEvent values.
type Decoder struct {
	events map[string]decodable
	// names maps lowercased event names and record kinds to topic0.
	names map[string]common.Hash
}

type decodable struct {
	kind  model.Kind
	event abi.Event
}

// NewDecoder builds a decoder for every record kind found in contractABI.
// All kinds must be present.
func NewDecoder(contractABI abi.ABI) (*Decoder, error) {
	events := make(map[string]decodable, len(model.Kinds()))
	names := make(map[string]common.Hash, 2*len(model.Kinds()))
	for _, schema := range model.Schemas() {
		event, ok := contractABI.Events[schema.Event]
		if !ok {
			return nil, fmt.Errorf("abi is missing event %s", schema.Event)
		}
		for _, field := range schema.Fields {
			if !hasInput(event, field.Source) {
				return nil, fmt.Errorf("abi event %s is missing input %s", schema.Event, field.Source)
			}
		}
		events[strings.ToLower(event.ID.Hex())] = decodable{kind: schema.Kind, event: event}
		names[strings.ToLower(schema.Event)] = event.ID
		names[strings.ToLower(string(schema.Kind))] = event.ID
	}
	return &Decoder{events: events, names: names}, nil
}

// TopicFor resolves an event name such as "RootSubmitted", or a record kind,
// to its topic0. Matching ignores case.
func (d *Decoder) TopicFor(name string) (common.Hash, bool) {
	topic, ok := d.names[strings.ToLower(strings.TrimSpace(name))]
	return topic, ok
}

// Topic0s returns the event signatures handled by the decoder, sorted.
func (d *Decoder) Topic0s() []common.Hash {
	out := make([]common.Hash, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.event.ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// CanDecode checks if the topic0 is a known ClaimingManager event.
func (d *Decoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.events[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a DecodedEvent.
func (d *Decoder) Decode(log model.LogRecord) (mapping.DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return mapping.DecodedEvent{}, fmt.Errorf("missing topics")
	}
	target, ok := d.events[strings.ToLower(log.Topics[0])]
	if !ok {
		return mapping.DecodedEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	txHash, err := parseHash(log.TxHash)
	if err != nil {
		return mapping.DecodedEvent{}, fmt.Errorf("tx hash: %w", err)
	}

	params, err := decodeParams(target.event, log)
	if err != nil {
		return mapping.DecodedEvent{}, err
	}

	return mapping.DecodedEvent{
		Kind:           target.kind,
		Params:         params,
		TxHash:         txHash,
		LogIndex:       uint(log.LogIndex),
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: log.Timestamp,
	}, nil
}

func decodeParams(event abi.Event, log model.LogRecord) (map[string]interface{}, error) {
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return nil, fmt.Errorf("%s: expected %d topics, got %d", event.Name, len(indexed)+1, len(log.Topics))
	}

	topics := make([]common.Hash, 0, len(indexed))
	for _, topic := range log.Topics[1:] {
		hash, err := parseHash(topic)
		if err != nil {
			return nil, fmt.Errorf("%s: topic: %w", event.Name, err)
		}
		topics = append(topics, hash)
	}

	params := make(map[string]interface{}, len(event.Inputs))
	if err := abi.ParseTopicsIntoMap(params, indexed, topics); err != nil {
		return nil, fmt.Errorf("%s: parse topics: %w", event.Name, err)
	}

	data, err := hexutil.Decode(normalizeData(log.Data))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid data: %w", event.Name, err)
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(params, data); err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	for name, value := range params {
		if raw, ok := value.([32]byte); ok {
			params[name] = common.Hash(raw)
		}
	}
	return params, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func hasInput(event abi.Event, name string) bool {
	for _, arg := range event.Inputs {
		if arg.Name == name {
			return true
		}
	}
	return false
}

func parseHash(input string) (common.Hash, error) {
	data, err := hexutil.Decode(input)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid hash %q: %w", input, err)
	}
	if len(data) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid hash length %d", len(data))
	}
	return common.BytesToHash(data), nil
}

// normalizeData maps an empty data field to "0x" so hexutil accepts it.
func normalizeData(data string) string {
	if data == "" {
		return "0x"
	}
	return data
}
