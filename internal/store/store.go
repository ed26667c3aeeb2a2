// Package store persists discovered pools, the notification audit log, and
// the scan cursor. Implementations must make MarkTradeable race-safe: when
// concurrent rescans of the same address both observe sufficient liquidity,
// exactly one caller wins the transition.
package store

import (
	"context"
	"math/big"

	"poolwatch/internal/model"
)

// ScanCursorName is the monitor state row holding the last fully processed
// block of the discovery scanner.
const ScanCursorName = "scan_cursor"

// Store is the durable record store shared by the scanner, the rechecker,
// and the dispatcher.
type Store interface {
	// UpsertPool inserts or replaces a pool record keyed by lowercase
	// address. Re-inserting an existing pool keeps its original
	// discovery time and never reverts a tradeable flag.
	UpsertPool(ctx context.Context, pool model.Pool) error

	// ListNonTradeable returns pools still below the threshold, newest
	// discoveries first. This is the rescan work list.
	ListNonTradeable(ctx context.Context) ([]model.Pool, error)

	// MarkTradeable flips the pool's tradeable flag and updates its
	// liquidity. It reports whether this call performed the transition;
	// a pool that is already tradeable is left untouched and returns
	// false, which suppresses duplicate notifications.
	MarkTradeable(ctx context.Context, address string, liquidity *big.Int) (bool, error)

	// RecordNotification appends one dispatch attempt to the audit log.
	RecordNotification(ctx context.Context, entry model.NotificationLogEntry) error

	// Stats returns store-wide counters.
	Stats(ctx context.Context) (model.Stats, error)

	// LoadCursor returns the saved block for a named cursor, reporting
	// whether one exists.
	LoadCursor(ctx context.Context, name string) (uint64, bool, error)

	// SaveCursor upserts the block for a named cursor.
	SaveCursor(ctx context.Context, name string, block uint64) error
}
