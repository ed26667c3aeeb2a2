// Package postgres provides the pgx-backed Store used by long-lived
// deployments. Liquidity values are kept as NUMERIC(78,0) so full uint128
// readings survive the round trip.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolwatch/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS pools (
	address TEXT PRIMARY KEY,
	token0 TEXT NOT NULL,
	token1 TEXT NOT NULL,
	fee BIGINT NOT NULL,
	initial_liquidity NUMERIC(78,0) NOT NULL DEFAULT 0,
	current_liquidity NUMERIC(78,0) NOT NULL DEFAULT 0,
	is_tradeable BOOLEAN NOT NULL DEFAULT FALSE,
	discovered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_checked TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_pools_tradeable ON pools (is_tradeable);

CREATE TABLE IF NOT EXISTS notification_log (
	id BIGSERIAL PRIMARY KEY,
	pool_address TEXT NOT NULL,
	notification_type TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	channels TEXT,
	error_message TEXT,
	sent_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS monitor_state (
	name TEXT PRIMARY KEY,
	last_processed_block BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pools, notifications, and the
// scan cursor.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	store := &Store{pool: pool}
	if err := store.init(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *Store) init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertPool inserts or replaces a pool record. Discovery time and initial
// liquidity are set once on first insert; the tradeable flag never reverts.
func (s *Store) UpsertPool(ctx context.Context, pool model.Pool) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pools (
			address, token0, token1, fee,
			initial_liquidity, current_liquidity, is_tradeable,
			discovered_at, last_checked, last_updated
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, now(), now(), now())
		ON CONFLICT (address) DO UPDATE SET
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			fee = EXCLUDED.fee,
			current_liquidity = EXCLUDED.current_liquidity,
			is_tradeable = pools.is_tradeable OR EXCLUDED.is_tradeable,
			last_checked = now(),
			last_updated = now()
	`,
		pool.Address,
		pool.Token0,
		pool.Token1,
		int64(pool.Fee),
		bigString(pool.InitialLiquidity),
		bigString(pool.CurrentLiquidity),
		pool.IsTradeable,
	)
	if err != nil {
		return fmt.Errorf("upsert pool %s: %w", pool.Address, err)
	}
	return nil
}

// ListNonTradeable returns pools below the threshold, newest first.
func (s *Store) ListNonTradeable(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, token0, token1, fee,
			initial_liquidity::text, current_liquidity::text, is_tradeable,
			discovered_at, last_checked, last_updated
		FROM pools
		WHERE is_tradeable = FALSE
		ORDER BY discovered_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list non-tradeable pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var (
			pool       model.Pool
			fee        int64
			initialStr string
			currentStr string
		)
		if err := rows.Scan(
			&pool.Address, &pool.Token0, &pool.Token1, &fee,
			&initialStr, &currentStr, &pool.IsTradeable,
			&pool.DiscoveredAt, &pool.LastChecked, &pool.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pool.Fee = uint32(fee)
		if pool.InitialLiquidity, err = parseBig(initialStr); err != nil {
			return nil, err
		}
		if pool.CurrentLiquidity, err = parseBig(currentStr); err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list non-tradeable pools rows: %w", err)
	}
	return pools, nil
}

// MarkTradeable performs the single false->true transition via a conditional
// update. Concurrent callers racing on the same address see at most one
// affected row, so only the winner reports true.
func (s *Store) MarkTradeable(ctx context.Context, address string, liquidity *big.Int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE pools
		SET is_tradeable = TRUE,
			current_liquidity = $2::numeric,
			last_checked = now(),
			last_updated = now()
		WHERE address = $1 AND is_tradeable = FALSE
	`, address, bigString(liquidity))
	if err != nil {
		return false, fmt.Errorf("mark tradeable %s: %w", address, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RecordNotification appends a dispatch attempt to the audit log.
func (s *Store) RecordNotification(ctx context.Context, entry model.NotificationLogEntry) error {
	var errMsg *string
	if entry.Error != "" {
		errMsg = &entry.Error
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_log (pool_address, notification_type, success, channels, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.PoolAddress, entry.Type, entry.Success, entry.Channels, errMsg)
	if err != nil {
		return fmt.Errorf("record notification for %s: %w", entry.PoolAddress, err)
	}
	return nil
}

// Stats returns store-wide counters.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM pools),
			(SELECT count(*) FROM pools WHERE is_tradeable),
			(SELECT count(*) FROM notification_log WHERE success),
			(SELECT count(*) FROM notification_log WHERE NOT success)
	`)
	if err := row.Scan(
		&stats.TotalPools,
		&stats.TradeablePools,
		&stats.SuccessfulNotifications,
		&stats.FailedNotifications,
	); err != nil {
		return model.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

// LoadCursor returns the last processed block for a named cursor.
func (s *Store) LoadCursor(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("cursor name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_block FROM monitor_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(block), true, nil
}

// SaveCursor upserts the last processed block for a named cursor.
func (s *Store) SaveCursor(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitor_state (name, last_processed_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_block = EXCLUDED.last_processed_block, updated_at = now()
	`, name, int64(block))
	return err
}

func bigString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func parseBig(input string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(input, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q", input)
	}
	return value, nil
}
