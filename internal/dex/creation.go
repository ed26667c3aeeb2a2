package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolwatch/internal/model"
)

// PoolCreatedTopic returns the topic0 hash of the factory PoolCreated event.
func PoolCreatedTopic() (common.Hash, error) {
	factory, err := FactoryABI()
	if err != nil {
		return common.Hash{}, err
	}
	return factory.Events["PoolCreated"].ID, nil
}

// DecodePoolCreated converts a raw factory log into a CreationEvent. All
// addresses in the result are lowercase hex.
func DecodePoolCreated(log types.Log) (model.CreationEvent, error) {
	factory, err := FactoryABI()
	if err != nil {
		return model.CreationEvent{}, fmt.Errorf("parse factory abi: %w", err)
	}
	event := factory.Events["PoolCreated"]

	if len(log.Topics) != 4 {
		return model.CreationEvent{}, fmt.Errorf("unexpected topic count: %d", len(log.Topics))
	}
	if log.Topics[0] != event.ID {
		return model.CreationEvent{}, fmt.Errorf("unexpected topic0: %s", log.Topics[0].Hex())
	}

	var indexed struct {
		Token0 common.Address
		Token1 common.Address
		Fee    *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return model.CreationEvent{}, fmt.Errorf("parse indexed topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return model.CreationEvent{}, fmt.Errorf("unpack data: %w", err)
	}
	if len(values) != 2 {
		return model.CreationEvent{}, fmt.Errorf("unexpected data field count: %d", len(values))
	}
	pool, ok := values[1].(common.Address)
	if !ok {
		return model.CreationEvent{}, fmt.Errorf("pool field is not an address")
	}

	return model.CreationEvent{
		Token0:      NormalizeAddress(indexed.Token0),
		Token1:      NormalizeAddress(indexed.Token1),
		Fee:         uint32(indexed.Fee.Uint64()),
		Pool:        NormalizeAddress(pool),
		BlockNumber: log.BlockNumber,
	}, nil
}

// NormalizeAddress renders an address in the canonical lowercase form used
// for storage and comparison.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// NormalizeHexAddress normalizes a string address, validating hex format.
func NormalizeHexAddress(input string) (string, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return "", fmt.Errorf("invalid address: %s", input)
	}
	return NormalizeAddress(common.HexToAddress(input)), nil
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
