package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func buildPoolCreatedLog(t *testing.T, token0, token1 common.Address, fee int64, tickSpacing int64, pool common.Address) types.Log {
	t.Helper()

	factory, err := FactoryABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	event := factory.Events["PoolCreated"]

	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(tickSpacing), pool)
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	return types.Log{
		Address: common.HexToAddress(DefaultFactoryAddress),
		Topics: []common.Hash{
			event.ID,
			topicFromAddress(token0),
			topicFromAddress(token1),
			common.BigToHash(big.NewInt(fee)),
		},
		Data:        data,
		BlockNumber: 12345,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func TestDecodePoolCreated(t *testing.T) {
	token0 := common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	token1 := common.HexToAddress("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB")
	pool := common.HexToAddress("0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC")

	log := buildPoolCreatedLog(t, token0, token1, 3000, 60, pool)

	event, err := DecodePoolCreated(log)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if event.Token0 != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("token0 mismatch: %s", event.Token0)
	}
	if event.Token1 != "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Fatalf("token1 mismatch: %s", event.Token1)
	}
	if event.Pool != "0xcccccccccccccccccccccccccccccccccccccccc" {
		t.Fatalf("pool mismatch: %s", event.Pool)
	}
	if event.Fee != 3000 {
		t.Fatalf("fee mismatch: %d", event.Fee)
	}
	if event.BlockNumber != 12345 {
		t.Fatalf("block mismatch: %d", event.BlockNumber)
	}
}

func TestDecodePoolCreatedRejectsWrongTopicCount(t *testing.T) {
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pool := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	log := buildPoolCreatedLog(t, token0, token1, 500, 10, pool)
	log.Topics = log.Topics[:3]

	if _, err := DecodePoolCreated(log); err == nil {
		t.Fatalf("expected error for truncated topics")
	}
}

func TestDecodePoolCreatedRejectsForeignEvent(t *testing.T) {
	token0 := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	pool := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

	log := buildPoolCreatedLog(t, token0, token1, 500, 10, pool)
	log.Topics[0] = common.HexToHash("0x01")

	if _, err := DecodePoolCreated(log); err == nil {
		t.Fatalf("expected error for foreign topic0")
	}
}

func TestNormalizeHexAddress(t *testing.T) {
	got, err := NormalizeHexAddress("  0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("normalize mismatch: %s", got)
	}

	if _, err := NormalizeHexAddress("not-an-address"); err == nil {
		t.Fatalf("expected error for invalid address")
	}
	if _, err := NormalizeHexAddress("0x123"); err == nil {
		t.Fatalf("expected error for short address")
	}
}
