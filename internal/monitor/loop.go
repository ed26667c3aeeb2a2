// Package monitor contains the pool discovery and liquidity tracking loop:
// a discovery scanner that advances a block cursor over factory creation
// events, a rechecker that re-probes stored pools with a bounded worker
// pool, and the loop that schedules both and contains their failures.
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"poolwatch/internal/store"
)

// Loop states.
const (
	StateStarting = iota
	StateRunning
	StateShuttingDown
)

// LoopConfig holds scheduling settings for the monitor loop.
type LoopConfig struct {
	TargetToken     string
	TokenSymbol     string
	Threshold       *big.Int
	PollInterval    time.Duration
	RecheckInterval time.Duration
	ErrorCooldown   time.Duration
}

func (c *LoopConfig) applyDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 12 * time.Second
	}
	if c.RecheckInterval == 0 {
		c.RecheckInterval = 30 * time.Second
	}
	if c.ErrorCooldown == 0 {
		c.ErrorCooldown = 30 * time.Second
	}
}

// MonitorLoop schedules discovery scans and liquidity rechecks on
// independent timers. A failing tick is logged and followed by a cooldown;
// the loop itself only exits on context cancellation.
type MonitorLoop struct {
	cfg       LoopConfig
	scanner   *DiscoveryScanner
	rechecker *TradeabilityRechecker
	reader    ChainReader
	store     store.Store
	metrics   *Metrics
	logger    *zap.Logger

	state       atomic.Int32
	lastRecheck time.Time
}

func NewMonitorLoop(
	cfg LoopConfig,
	scanner *DiscoveryScanner,
	rechecker *TradeabilityRechecker,
	reader ChainReader,
	poolStore store.Store,
	metrics *Metrics,
	logger *zap.Logger,
) (*MonitorLoop, error) {
	if scanner == nil {
		return nil, fmt.Errorf("scanner is nil")
	}
	if rechecker == nil {
		return nil, fmt.Errorf("rechecker is nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if poolStore == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &MonitorLoop{
		cfg:       cfg,
		scanner:   scanner,
		rechecker: rechecker,
		reader:    reader,
		store:     poolStore,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// State returns the loop's current lifecycle state.
func (l *MonitorLoop) State() int32 {
	return l.state.Load()
}

// Run executes the monitor until the context is cancelled, then logs final
// statistics and returns nil. Transient tick failures never terminate it.
func (l *MonitorLoop) Run(ctx context.Context) error {
	l.state.Store(StateStarting)

	if err := l.resolveCursor(ctx); err != nil {
		return fmt.Errorf("resolve scan cursor: %w", err)
	}

	l.logger.Info("monitor started",
		zap.String("token", l.cfg.TargetToken),
		zap.String("symbol", l.cfg.TokenSymbol),
		zap.String("min_liquidity", l.cfg.Threshold.String()),
		zap.Uint64("cursor", l.scanner.Cursor()),
		zap.Duration("poll_interval", l.cfg.PollInterval),
		zap.Duration("recheck_interval", l.cfg.RecheckInterval),
	)

	l.state.Store(StateRunning)
	for {
		if ctx.Err() != nil {
			break
		}

		if err := l.tick(ctx); err != nil && ctx.Err() == nil {
			l.logger.Error("monitor tick failed", zap.Error(err))
			l.metrics.ErrorsTotal.WithLabelValues("tick").Inc()
			if !sleepCtx(ctx, l.cfg.ErrorCooldown) {
				break
			}
			continue
		}

		if !sleepCtx(ctx, l.cfg.PollInterval) {
			break
		}
	}

	l.state.Store(StateShuttingDown)
	l.logFinalStats()
	return nil
}

// tick runs one scheduling cycle: a discovery scan, then a liquidity
// recheck when enough wall-clock time has passed. Panics inside a tick are
// converted to errors so a bad cycle cannot take the process down.
func (l *MonitorLoop) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()

	if err := l.scanner.Scan(ctx); err != nil {
		return err
	}

	if time.Since(l.lastRecheck) >= l.cfg.RecheckInterval {
		if err := l.rechecker.Recheck(ctx); err != nil {
			return err
		}
		l.lastRecheck = time.Now()
	}

	if stats, err := l.store.Stats(ctx); err == nil {
		l.metrics.ActivePools.Set(float64(stats.TotalPools))
	}
	return nil
}

// resolveCursor loads the persisted cursor, falling back to the current
// chain head on first run so only new blocks are scanned.
func (l *MonitorLoop) resolveCursor(ctx context.Context) error {
	cursor, ok, err := l.store.LoadCursor(ctx, store.ScanCursorName)
	if err != nil {
		return err
	}
	if ok {
		l.logger.Info("resume from persisted cursor", zap.Uint64("block", cursor))
		l.scanner.SetCursor(cursor)
		return nil
	}

	head, err := l.reader.LatestBlock(ctx)
	if err != nil {
		return err
	}
	l.scanner.SetCursor(head)
	return nil
}

func (l *MonitorLoop) logFinalStats() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := l.store.Stats(ctx)
	if err != nil {
		l.logger.Warn("final statistics unavailable", zap.Error(err))
		return
	}
	l.logger.Info("monitor stopped",
		zap.Int64("total_pools", stats.TotalPools),
		zap.Int64("tradeable_pools", stats.TradeablePools),
		zap.Int64("notifications_ok", stats.SuccessfulNotifications),
		zap.Int64("notifications_failed", stats.FailedNotifications),
	)
}

// sleepCtx sleeps for d, returning false if the context was cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
