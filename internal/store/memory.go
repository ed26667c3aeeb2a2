package store

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"poolwatch/internal/model"
)

// MemoryStore is an in-process Store used by tests and ephemeral runs where
// no database location is configured. All operations are serialized by a
// single mutex, which also provides the first-writer-wins guarantee for
// MarkTradeable.
type MemoryStore struct {
	mu            sync.Mutex
	pools         map[string]model.Pool
	notifications []model.NotificationLogEntry
	cursors       map[string]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pools:   make(map[string]model.Pool),
		cursors: make(map[string]uint64),
	}
}

func (s *MemoryStore) UpsertPool(_ context.Context, pool model.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.pools[pool.Address]; ok {
		pool.DiscoveredAt = existing.DiscoveredAt
		pool.IsTradeable = pool.IsTradeable || existing.IsTradeable
	}
	s.pools[pool.Address] = clonePool(pool)
	return nil
}

func (s *MemoryStore) ListNonTradeable(_ context.Context) ([]model.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pools := make([]model.Pool, 0)
	for _, pool := range s.pools {
		if !pool.IsTradeable {
			pools = append(pools, clonePool(pool))
		}
	}
	sort.Slice(pools, func(i, j int) bool {
		return pools[i].DiscoveredAt.After(pools[j].DiscoveredAt)
	})
	return pools, nil
}

func (s *MemoryStore) MarkTradeable(_ context.Context, address string, liquidity *big.Int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, ok := s.pools[address]
	if !ok || pool.IsTradeable {
		return false, nil
	}

	now := time.Now().UTC()
	pool.IsTradeable = true
	pool.CurrentLiquidity = new(big.Int).Set(liquidity)
	pool.LastChecked = now
	pool.LastUpdated = now
	s.pools[address] = pool
	return true, nil
}

func (s *MemoryStore) RecordNotification(_ context.Context, entry model.NotificationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now().UTC()
	}
	s.notifications = append(s.notifications, entry)
	return nil
}

func (s *MemoryStore) Stats(_ context.Context) (model.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats model.Stats
	for _, pool := range s.pools {
		stats.TotalPools++
		if pool.IsTradeable {
			stats.TradeablePools++
		}
	}
	for _, entry := range s.notifications {
		if entry.Success {
			stats.SuccessfulNotifications++
		} else {
			stats.FailedNotifications++
		}
	}
	return stats, nil
}

func (s *MemoryStore) LoadCursor(_ context.Context, name string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.cursors[name]
	return block, ok, nil
}

func (s *MemoryStore) SaveCursor(_ context.Context, name string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cursors[name] = block
	return nil
}

// Notifications returns a copy of the audit log, oldest first.
func (s *MemoryStore) Notifications() []model.NotificationLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]model.NotificationLogEntry, len(s.notifications))
	copy(entries, s.notifications)
	return entries
}

func clonePool(pool model.Pool) model.Pool {
	if pool.InitialLiquidity != nil {
		pool.InitialLiquidity = new(big.Int).Set(pool.InitialLiquidity)
	}
	if pool.CurrentLiquidity != nil {
		pool.CurrentLiquidity = new(big.Int).Set(pool.CurrentLiquidity)
	}
	return pool
}
