package contracts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ruteri/identity-registry-backend/interfaces"
)

// EventLog encodes a registry event emission into a ledger log entry.
// Topic zero is the event id, indexed inputs become topics in declaration
// order, and the remaining inputs pack into the data payload. Arguments
// are positional and must match the event's ABI inputs.
func (s *Set) EventLog(contract, event string, args ...any) (types.Log, error) {
	spec, ok := s.byName[contract]
	if !ok {
		return types.Log{}, fmt.Errorf("unknown contract %q", contract)
	}
	ev, ok := spec.ABI.Events[event]
	if !ok {
		return types.Log{}, fmt.Errorf("contract %s has no event %q", contract, event)
	}
	if len(args) != len(ev.Inputs) {
		return types.Log{}, fmt.Errorf("event %s.%s takes %d arguments, got %d",
			contract, event, len(ev.Inputs), len(args))
	}

	topics := []common.Hash{ev.ID}
	var dataArgs abi.Arguments
	var dataValues []any
	for i, input := range ev.Inputs {
		value := eventWireValue(args[i])
		if !input.Indexed {
			dataArgs = append(dataArgs, input)
			dataValues = append(dataValues, value)
			continue
		}
		packed, err := abi.MakeTopics([]any{value})
		if err != nil {
			return types.Log{}, fmt.Errorf("event %s.%s argument %s: %w", contract, event, input.Name, err)
		}
		topics = append(topics, packed[0][0])
	}

	data, err := dataArgs.Pack(dataValues...)
	if err != nil {
		return types.Log{}, fmt.Errorf("packing event %s.%s data: %w", contract, event, err)
	}
	return types.Log{Address: spec.Address, Topics: topics, Data: data}, nil
}

// DecodeEventLog maps a ledger log back to its contract spec, event and
// input values in declaration order. Indexed values come from the topics,
// the rest unpack from the data payload; tuple values arrive as anonymous
// structs and convert to the wire types via abi.ConvertType.
func (s *Set) DecodeEventLog(lg types.Log) (*Spec, *abi.Event, []any, error) {
	spec, ok := s.byAddress[lg.Address]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no contract at %s", lg.Address.Hex())
	}
	if len(lg.Topics) == 0 {
		return nil, nil, nil, fmt.Errorf("log without topics")
	}
	ev, err := spec.ABI.EventByID(lg.Topics[0])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("contract %s: %w", spec.Name, err)
	}

	var dataArgs abi.Arguments
	for _, input := range ev.Inputs {
		if !input.Indexed {
			dataArgs = append(dataArgs, input)
		}
	}
	dataValues, err := dataArgs.Unpack(lg.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("unpacking event %s.%s data: %w", spec.Name, ev.Name, err)
	}

	values := make([]any, len(ev.Inputs))
	topicIdx, dataIdx := 1, 0
	for i, input := range ev.Inputs {
		if !input.Indexed {
			values[i] = dataValues[dataIdx]
			dataIdx++
			continue
		}
		if topicIdx >= len(lg.Topics) {
			return nil, nil, nil, fmt.Errorf("event %s.%s: missing topic for %s", spec.Name, ev.Name, input.Name)
		}
		value, err := topicValue(input, lg.Topics[topicIdx])
		if err != nil {
			return nil, nil, nil, fmt.Errorf("event %s.%s: %w", spec.Name, ev.Name, err)
		}
		values[i] = value
		topicIdx++
	}
	return spec, ev, values, nil
}

func eventWireValue(v any) any {
	switch tv := v.(type) {
	case interfaces.RevocationRegistryEntry:
		return EntryToWire(tv)
	default:
		return v
	}
}

func topicValue(input abi.Argument, topic common.Hash) (any, error) {
	switch input.Type.T {
	case abi.AddressTy:
		return common.BytesToAddress(topic.Bytes()), nil
	case abi.FixedBytesTy:
		return topic, nil
	case abi.UintTy:
		switch input.Type.Size {
		case 8:
			return uint8(topic.Big().Uint64()), nil
		case 32:
			return uint32(topic.Big().Uint64()), nil
		case 64:
			return topic.Big().Uint64(), nil
		default:
			return topic.Big(), nil
		}
	default:
		return nil, fmt.Errorf("unsupported indexed type %s for %s", input.Type.String(), input.Name)
	}
}
