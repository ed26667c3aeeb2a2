package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poolwatch/internal/model"
	"poolwatch/internal/store"
)

// RecheckerConfig holds rescan settings.
type RecheckerConfig struct {
	MaxWorkers int
}

func (c *RecheckerConfig) applyDefaults() {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = 5
	}
}

// recheckResult is one worker's observation of a pool that now clears the
// threshold. Workers only probe; the transition and the notification happen
// on the consumer side, off the worker pool.
type recheckResult struct {
	pool      model.Pool
	liquidity *big.Int
}

// TradeabilityRechecker re-probes all stored non-tradeable pools with a
// bounded worker pool and transitions the ones that crossed the threshold.
// One pool's probe failure never aborts the others.
type TradeabilityRechecker struct {
	cfg        RecheckerConfig
	prober     Prober
	store      store.Store
	dispatcher Dispatcher
	metrics    *Metrics
	logger     *zap.Logger
}

func NewTradeabilityRechecker(
	cfg RecheckerConfig,
	prober Prober,
	poolStore store.Store,
	dispatcher Dispatcher,
	metrics *Metrics,
	logger *zap.Logger,
) (*TradeabilityRechecker, error) {
	if prober == nil {
		return nil, fmt.Errorf("prober is nil")
	}
	if poolStore == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &TradeabilityRechecker{
		cfg:        cfg,
		prober:     prober,
		store:      poolStore,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Recheck probes every non-tradeable pool once and fires the tradeable
// transition for pools that now clear the threshold. Re-probing a pool that
// was marked tradeable by a concurrent cycle is a safe no-op: the store's
// compare-and-set reports no transition and the notification is suppressed.
func (r *TradeabilityRechecker) Recheck(ctx context.Context) error {
	pools, err := r.store.ListNonTradeable(ctx)
	if err != nil {
		r.metrics.ErrorsTotal.WithLabelValues("store").Inc()
		return fmt.Errorf("list non-tradeable pools: %w", err)
	}
	if len(pools) == 0 {
		return nil
	}

	r.logger.Debug("rechecking pools for liquidity", zap.Int("count", len(pools)))

	results := make(chan recheckResult, len(pools))
	group := new(errgroup.Group)
	group.SetLimit(r.cfg.MaxWorkers)

	for _, pool := range pools {
		pool := pool
		group.Go(func() error {
			result, err := r.prober.Check(ctx, pool.Address)
			if err != nil {
				// Probe failure leaves the pool untouched; it is
				// retried on the next cycle.
				r.logger.Warn("liquidity recheck failed",
					zap.String("pool", pool.Address),
					zap.Error(err),
				)
				r.metrics.LiquidityChecks.WithLabelValues(checkFailed).Inc()
				return nil
			}
			if !result.Tradeable {
				r.metrics.LiquidityChecks.WithLabelValues(checkInsufficient).Inc()
				return nil
			}
			r.metrics.LiquidityChecks.WithLabelValues(checkSufficient).Inc()
			results <- recheckResult{pool: pool, liquidity: result.Liquidity}
			return nil
		})
	}

	group.Wait()
	close(results)

	for result := range results {
		r.transition(ctx, result)
	}
	return nil
}

func (r *TradeabilityRechecker) transition(ctx context.Context, result recheckResult) {
	transitioned, err := r.store.MarkTradeable(ctx, result.pool.Address, result.liquidity)
	if err != nil {
		r.logger.Error("mark tradeable failed",
			zap.String("pool", result.pool.Address),
			zap.Error(err),
		)
		r.metrics.ErrorsTotal.WithLabelValues("store").Inc()
		return
	}
	if !transitioned {
		return
	}

	r.logger.Info("pool became tradeable",
		zap.String("pool", result.pool.Address),
		zap.String("token0", result.pool.Token0),
		zap.String("token1", result.pool.Token1),
		zap.Uint32("fee", result.pool.Fee),
		zap.String("liquidity", result.liquidity.String()),
	)

	pool := result.pool
	pool.IsTradeable = true
	pool.CurrentLiquidity = result.liquidity
	pool.LastChecked = time.Now().UTC()
	pool.LastUpdated = pool.LastChecked

	dispatch := r.dispatcher.Dispatch(ctx, pool, model.NotificationLiquidityAdded)
	r.metrics.NotificationLatency.Observe(dispatch.Duration.Seconds())
	if dispatch.Success {
		r.metrics.NotificationsSent.WithLabelValues(model.NotificationLiquidityAdded, "multi").Inc()
	} else {
		r.metrics.ErrorsTotal.WithLabelValues("notification").Inc()
	}
}
