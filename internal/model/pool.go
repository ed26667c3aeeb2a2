package model

import (
	"math/big"
	"time"
)

// Notification kinds written to the notification log. A pool produces a
// pool_created notification when it is first discovered and a single
// liquidity_added notification when it crosses the tradeable threshold.
const (
	NotificationPoolCreated    = "pool_created"
	NotificationLiquidityAdded = "liquidity_added"
)

// Pool is a discovered liquidity pool tracked by the monitor. The address is
// the lowercase on-chain pool address and acts as the record key. IsTradeable
// transitions false->true at most once over the pool's lifetime.
type Pool struct {
	Address          string    `json:"address"`
	Token0           string    `json:"token0"`
	Token1           string    `json:"token1"`
	Fee              uint32    `json:"fee"`
	InitialLiquidity *big.Int  `json:"initial_liquidity"`
	CurrentLiquidity *big.Int  `json:"current_liquidity"`
	IsTradeable      bool      `json:"is_tradeable"`
	DiscoveredAt     time.Time `json:"discovered_at"`
	LastChecked      time.Time `json:"last_checked"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NotificationLogEntry is an append-only record of one dispatch attempt.
type NotificationLogEntry struct {
	PoolAddress string    `json:"pool_address"`
	Type        string    `json:"notification_type"`
	Success     bool      `json:"success"`
	Channels    string    `json:"channels"`
	Error       string    `json:"error,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// Stats summarizes the store for the stats command and shutdown logging.
type Stats struct {
	TotalPools              int64 `json:"total_pools"`
	TradeablePools          int64 `json:"tradeable_pools"`
	SuccessfulNotifications int64 `json:"successful_notifications"`
	FailedNotifications     int64 `json:"failed_notifications"`
}
