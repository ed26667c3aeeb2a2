package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"poolwatch/internal/model"
	"poolwatch/internal/notify"
	"poolwatch/internal/probe"
	"poolwatch/internal/store"
)

// ChainReader is the slice of chain access the monitor needs.
type ChainReader interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FilterPoolCreated(ctx context.Context, fromBlock, toBlock uint64) ([]model.CreationEvent, error)
}

// Prober checks a pool's current liquidity against the threshold.
type Prober interface {
	Check(ctx context.Context, poolAddress string) (probe.Result, error)
}

// Dispatcher delivers milestone notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, pool model.Pool, kind string) notify.Result
}

// ScannerConfig holds discovery scan settings.
type ScannerConfig struct {
	TargetToken string
	ChunkSize   uint64
	ChunkDelay  time.Duration
}

func (c *ScannerConfig) applyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkDelay == 0 {
		c.ChunkDelay = 100 * time.Millisecond
	}
}

// DiscoveryScanner advances a block cursor over factory creation events,
// keeps only pools involving the target token, and emits discovery
// notifications. Scanning is sequential per chunk and the cursor is
// persisted only after a chunk's events are fully handled, so a mid-scan
// crash replays at most the unfinished chunk.
type DiscoveryScanner struct {
	cfg        ScannerConfig
	reader     ChainReader
	prober     Prober
	store      store.Store
	dispatcher Dispatcher
	metrics    *Metrics
	logger     *zap.Logger

	cursor uint64
}

func NewDiscoveryScanner(
	cfg ScannerConfig,
	reader ChainReader,
	prober Prober,
	poolStore store.Store,
	dispatcher Dispatcher,
	metrics *Metrics,
	logger *zap.Logger,
) (*DiscoveryScanner, error) {
	if reader == nil {
		return nil, fmt.Errorf("chain reader is nil")
	}
	if prober == nil {
		return nil, fmt.Errorf("prober is nil")
	}
	if poolStore == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is nil")
	}
	if cfg.TargetToken == "" {
		return nil, fmt.Errorf("target token is required")
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()

	return &DiscoveryScanner{
		cfg:        cfg,
		reader:     reader,
		prober:     prober,
		store:      poolStore,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Cursor returns the last fully processed block.
func (s *DiscoveryScanner) Cursor() uint64 {
	return s.cursor
}

// SetCursor positions the scanner. Called once at startup with the
// persisted cursor or the current chain head.
func (s *DiscoveryScanner) SetCursor(block uint64) {
	s.cursor = block
}

// Scan processes all blocks between the cursor and the chain head.
func (s *DiscoveryScanner) Scan(ctx context.Context) error {
	latest, err := s.reader.LatestBlock(ctx)
	if err != nil {
		return fmt.Errorf("latest block: %w", err)
	}
	if latest <= s.cursor {
		return nil
	}

	ranges, err := SplitRange(s.cursor+1, latest, s.cfg.ChunkSize)
	if err != nil {
		return err
	}
	if len(ranges) > 1 {
		s.logger.Info("large block range, scanning in chunks",
			zap.Uint64("from", s.cursor+1),
			zap.Uint64("to", latest),
			zap.Int("chunks", len(ranges)),
		)
	}

	for i, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.scanChunk(ctx, blockRange); err != nil {
			return err
		}

		s.cursor = blockRange.To
		s.metrics.LastProcessedBlock.Set(float64(s.cursor))
		if err := s.store.SaveCursor(ctx, store.ScanCursorName, s.cursor); err != nil {
			// The in-memory cursor still advanced; a restart replays
			// from the last persisted block, which is safe because
			// upserts are idempotent.
			s.logger.Warn("persist cursor failed", zap.Uint64("block", s.cursor), zap.Error(err))
			s.metrics.ErrorsTotal.WithLabelValues("store").Inc()
		}

		if i < len(ranges)-1 && s.cfg.ChunkDelay > 0 {
			timer := time.NewTimer(s.cfg.ChunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil
}

func (s *DiscoveryScanner) scanChunk(ctx context.Context, blockRange BlockRange) error {
	events, err := s.reader.FilterPoolCreated(ctx, blockRange.From, blockRange.To)
	if err != nil {
		return fmt.Errorf("filter creation events [%d,%d]: %w", blockRange.From, blockRange.To, err)
	}

	for _, event := range events {
		if !event.InvolvesToken(s.cfg.TargetToken) {
			continue
		}
		if err := s.processDiscovery(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// processDiscovery probes, persists, and announces one new pool. A store
// failure aborts the chunk so the event is replayed next cycle; a probe
// failure does not, because the rechecker repairs the liquidity reading.
func (s *DiscoveryScanner) processDiscovery(ctx context.Context, event model.CreationEvent) error {
	s.logger.Info("new pool discovered",
		zap.String("pool", event.Pool),
		zap.String("token0", event.Token0),
		zap.String("token1", event.Token1),
		zap.Uint32("fee", event.Fee),
		zap.Uint64("block", event.BlockNumber),
	)
	s.metrics.PoolsDiscovered.Inc()

	liquidity := big.NewInt(0)
	tradeable := false
	result, err := s.prober.Check(ctx, event.Pool)
	if err != nil {
		// Unknown liquidity is recorded as zero and non-tradeable; the
		// rechecker probes again next cycle. Never confirmed state.
		s.logger.Warn("initial liquidity probe failed, pool left for recheck",
			zap.String("pool", event.Pool),
			zap.Error(err),
		)
		s.metrics.LiquidityChecks.WithLabelValues(checkFailed).Inc()
	} else {
		liquidity = result.Liquidity
		tradeable = result.Tradeable
		status := checkInsufficient
		if tradeable {
			status = checkSufficient
		}
		s.metrics.LiquidityChecks.WithLabelValues(status).Inc()
	}

	now := time.Now().UTC()
	pool := model.Pool{
		Address:          event.Pool,
		Token0:           event.Token0,
		Token1:           event.Token1,
		Fee:              event.Fee,
		InitialLiquidity: liquidity,
		CurrentLiquidity: liquidity,
		IsTradeable:      tradeable,
		DiscoveredAt:     now,
		LastChecked:      now,
		LastUpdated:      now,
	}
	if err := s.store.UpsertPool(ctx, pool); err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("store").Inc()
		return fmt.Errorf("persist pool %s: %w", event.Pool, err)
	}

	kind := model.NotificationPoolCreated
	if tradeable {
		kind = model.NotificationLiquidityAdded
		s.logger.Info("pool tradeable at discovery",
			zap.String("pool", event.Pool),
			zap.String("liquidity", liquidity.String()),
		)
	} else {
		s.logger.Info("pool below threshold, monitoring for liquidity",
			zap.String("pool", event.Pool),
			zap.String("liquidity", liquidity.String()),
		)
	}

	dispatch := s.dispatcher.Dispatch(ctx, pool, kind)
	s.observeDispatch(kind, dispatch)
	return nil
}

func (s *DiscoveryScanner) observeDispatch(kind string, result notify.Result) {
	s.metrics.NotificationLatency.Observe(result.Duration.Seconds())
	if result.Success {
		s.metrics.NotificationsSent.WithLabelValues(kind, "multi").Inc()
	} else {
		s.metrics.ErrorsTotal.WithLabelValues("notification").Inc()
	}
}
