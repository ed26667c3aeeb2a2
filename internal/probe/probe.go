// Package probe layers the tradeable-threshold semantics over raw liquidity
// reads. A probe error means "unknown", never "zero": callers skip the pool
// and retry on a later cycle.
package probe

import (
	"context"
	"fmt"
	"math/big"
)

// LiquidityReader is the single chain call the probe needs.
type LiquidityReader interface {
	PoolLiquidity(ctx context.Context, poolAddress string) (*big.Int, error)
}

// Result is one successful liquidity observation.
type Result struct {
	Liquidity *big.Int
	Tradeable bool
}

// LiquidityProbe reads a pool's current liquidity and compares it against
// the configured minimum threshold.
type LiquidityProbe struct {
	reader    LiquidityReader
	threshold *big.Int
}

func NewLiquidityProbe(reader LiquidityReader, threshold *big.Int) (*LiquidityProbe, error) {
	if reader == nil {
		return nil, fmt.Errorf("liquidity reader is nil")
	}
	if threshold == nil || threshold.Sign() < 0 {
		return nil, fmt.Errorf("threshold must be a non-negative integer")
	}
	return &LiquidityProbe{reader: reader, threshold: new(big.Int).Set(threshold)}, nil
}

// Check reads the pool's liquidity. The returned error wraps the reader's
// failure unchanged, so chain.ErrProbeFailed stays detectable.
func (p *LiquidityProbe) Check(ctx context.Context, poolAddress string) (Result, error) {
	liquidity, err := p.reader.PoolLiquidity(ctx, poolAddress)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Liquidity: liquidity,
		Tradeable: liquidity.Cmp(p.threshold) >= 0,
	}, nil
}

// Threshold returns a copy of the configured minimum liquidity.
func (p *LiquidityProbe) Threshold() *big.Int {
	return new(big.Int).Set(p.threshold)
}
