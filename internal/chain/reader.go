package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolwatch/internal/dex"
	"poolwatch/internal/model"
)

// ErrProbeFailed marks a liquidity read whose retries were exhausted. It is
// distinct from a successful read of zero liquidity: callers must skip the
// pool and retry on a later cycle instead of recording a zero value.
var ErrProbeFailed = errors.New("liquidity probe failed")

// ReaderConfig holds retry budgets for the chain reader. Event retrieval is
// the most failure-prone call and gets the highest budget.
type ReaderConfig struct {
	Factory       common.Address
	CallAttempts  int
	EventAttempts int
	RetryBase     time.Duration
	RetryCap      time.Duration
}

func (c *ReaderConfig) applyDefaults() {
	if c.CallAttempts == 0 {
		c.CallAttempts = 3
	}
	if c.EventAttempts == 0 {
		c.EventAttempts = 5
	}
	if c.RetryBase == 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.RetryCap == 0 {
		c.RetryCap = 8 * time.Second
	}
}

// Reader exposes the chain operations the monitor needs, with bounded retry
// on every call. Exhausted retries surface to the caller, which logs and
// skips the cycle rather than crashing.
type Reader struct {
	client *Client
	cfg    ReaderConfig
	topic  common.Hash
	logger *zap.Logger
}

// NewReader builds a Reader over the given client.
func NewReader(client *Client, cfg ReaderConfig, logger *zap.Logger) (*Reader, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	topic, err := dex.PoolCreatedTopic()
	if err != nil {
		return nil, fmt.Errorf("factory abi: %w", err)
	}

	return &Reader{client: client, cfg: cfg, topic: topic, logger: logger}, nil
}

// LatestBlock returns the current chain head.
func (r *Reader) LatestBlock(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, r.cfg.CallAttempts, r.cfg.RetryBase, r.cfg.RetryCap, func(ctx context.Context) error {
		var err error
		latest, err = r.client.LatestBlockNumber(ctx)
		if err != nil {
			r.logger.Warn("latest block fetch failed", zap.Error(err))
		}
		return err
	})
	return latest, err
}

// FilterPoolCreated returns decoded PoolCreated events emitted by the
// factory in the inclusive block range, in provider order.
func (r *Reader) FilterPoolCreated(ctx context.Context, fromBlock, toBlock uint64) ([]model.CreationEvent, error) {
	var events []model.CreationEvent
	err := withRetry(ctx, r.cfg.EventAttempts, r.cfg.RetryBase, r.cfg.RetryCap, func(ctx context.Context) error {
		logs, err := r.client.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Factory, []common.Hash{r.topic})
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
			return err
		}

		events = events[:0]
		for _, log := range logs {
			event, err := dex.DecodePoolCreated(log)
			if err != nil {
				r.logger.Warn("skip undecodable log",
					zap.Error(err),
					zap.Uint64("block", log.BlockNumber),
					zap.String("tx", log.TxHash.Hex()),
				)
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	return events, err
}

// PoolLiquidity reads the pool's liquidity view function. After retries are
// exhausted the error wraps ErrProbeFailed so callers can distinguish a
// failed probe from zero liquidity.
func (r *Reader) PoolLiquidity(ctx context.Context, poolAddress string) (*big.Int, error) {
	if !common.IsHexAddress(poolAddress) {
		return nil, fmt.Errorf("invalid pool address: %s", poolAddress)
	}
	pool := common.HexToAddress(poolAddress)

	poolABI, err := dex.PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	data, err := poolABI.Pack("liquidity")
	if err != nil {
		return nil, fmt.Errorf("pack liquidity: %w", err)
	}

	var liquidity *big.Int
	err = withRetry(ctx, r.cfg.CallAttempts, r.cfg.RetryBase, r.cfg.RetryCap, func(ctx context.Context) error {
		resp, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
		if err != nil {
			r.logger.Warn("liquidity call failed", zap.String("pool", poolAddress), zap.Error(err))
			return err
		}
		values, err := poolABI.Unpack("liquidity", resp)
		if err != nil {
			return fmt.Errorf("unpack liquidity: %w", err)
		}
		value, ok := values[0].(*big.Int)
		if !ok {
			return fmt.Errorf("liquidity value is not an integer")
		}
		liquidity = value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pool %s: %v", ErrProbeFailed, poolAddress, err)
	}
	return liquidity, nil
}
