package store

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolwatch/internal/model"
)

func makePool(address string, liquidity int64, discoveredAt time.Time) model.Pool {
	return model.Pool{
		Address:          address,
		Token0:           "0x00000000000000000000000000000000000000aa",
		Token1:           "0x00000000000000000000000000000000000000bb",
		Fee:              3000,
		InitialLiquidity: big.NewInt(liquidity),
		CurrentLiquidity: big.NewInt(liquidity),
		DiscoveredAt:     discoveredAt,
		LastChecked:      discoveredAt,
		LastUpdated:      discoveredAt,
	}
}

func TestUpsertPoolPreservesDiscovery(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	pool := makePool("0x01", 500, first)
	require.NoError(t, s.UpsertPool(ctx, pool))

	// A replayed discovery carries a newer timestamp; the original must
	// survive.
	replay := makePool("0x01", 800, first.Add(time.Hour))
	require.NoError(t, s.UpsertPool(ctx, replay))

	pools, err := s.ListNonTradeable(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, first, pools[0].DiscoveredAt)
	assert.Equal(t, int64(800), pools[0].CurrentLiquidity.Int64())
}

func TestUpsertPoolNeverClearsTradeable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now().UTC()
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, now)))

	ok, err := s.MarkTradeable(ctx, "0x01", big.NewInt(2000))
	require.NoError(t, err)
	require.True(t, ok)

	// A replay upserts the pre-transition snapshot; tradeability is
	// monotonic and must stick.
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, now)))

	pools, err := s.ListNonTradeable(ctx)
	require.NoError(t, err)
	assert.Empty(t, pools)
}

func TestMarkTradeableSingleTransition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, time.Now().UTC())))

	ok, err := s.MarkTradeable(ctx, "0x01", big.NewInt(2000))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkTradeable(ctx, "0x01", big.NewInt(3000))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkTradeableUnknownPool(t *testing.T) {
	s := NewMemoryStore()
	ok, err := s.MarkTradeable(context.Background(), "0xmissing", big.NewInt(1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkTradeableConcurrentWinners(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, time.Now().UTC())))

	const racers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			ok, err := s.MarkTradeable(ctx, "0x01", big.NewInt(2000))
			if err != nil {
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestListNonTradeableNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, base)))
	require.NoError(t, s.UpsertPool(ctx, makePool("0x02", 500, base.Add(time.Hour))))

	pools, err := s.ListNonTradeable(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "0x02", pools[0].Address)
	assert.Equal(t, "0x01", pools[1].Address)
}

func TestStatsCountsPoolsAndNotifications(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now().UTC()
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, now)))
	require.NoError(t, s.UpsertPool(ctx, makePool("0x02", 500, now)))
	_, err := s.MarkTradeable(ctx, "0x02", big.NewInt(5000))
	require.NoError(t, err)

	require.NoError(t, s.RecordNotification(ctx, model.NotificationLogEntry{
		PoolAddress: "0x01", Type: model.NotificationPoolCreated, Success: true,
	}))
	require.NoError(t, s.RecordNotification(ctx, model.NotificationLogEntry{
		PoolAddress: "0x02", Type: model.NotificationLiquidityAdded, Success: false,
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalPools)
	assert.Equal(t, int64(1), stats.TradeablePools)
	assert.Equal(t, int64(1), stats.SuccessfulNotifications)
	assert.Equal(t, int64(1), stats.FailedNotifications)
}

func TestCursorRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.LoadCursor(ctx, ScanCursorName)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveCursor(ctx, ScanCursorName, 12345))
	block, ok, err := s.LoadCursor(ctx, ScanCursorName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12345), block)

	require.NoError(t, s.SaveCursor(ctx, ScanCursorName, 12400))
	block, _, err = s.LoadCursor(ctx, ScanCursorName)
	require.NoError(t, err)
	assert.Equal(t, uint64(12400), block)
}

func TestClonePoolIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.UpsertPool(ctx, makePool("0x01", 500, time.Now().UTC())))

	pools, err := s.ListNonTradeable(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	// Mutating the returned copy must not leak into the store.
	pools[0].CurrentLiquidity.SetInt64(999999)

	fresh, err := s.ListNonTradeable(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(500), fresh[0].CurrentLiquidity.Int64())
}
