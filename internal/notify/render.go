package notify

import (
	"fmt"
	"math/big"
	"time"

	"poolwatch/internal/model"
)

// Content is a notification rendered once per channel family: a rich embed
// for chat webhooks, HTML for email, and a plain-text fallback for
// everything else.
type Content struct {
	Subject string
	Plain   string
	HTML    string
	Embed   map[string]any
}

// RenderFunc turns a pool milestone into per-channel-family content. The
// default implementation is Renderer.Render; tests substitute their own.
type RenderFunc func(kind string, pool model.Pool) Content

// Renderer produces notification content for a monitored token.
type Renderer struct {
	TokenSymbol  string
	TokenAddress string
	Threshold    *big.Int
}

// Render builds the content for a milestone. pool_created announces a
// discovery still below the threshold; liquidity_added announces the pool
// becoming tradeable.
func (r Renderer) Render(kind string, pool model.Pool) Content {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 UTC")
	tradeURL := fmt.Sprintf("https://app.uniswap.org/#/swap?inputCurrency=ETH&outputCurrency=%s", r.TokenAddress)
	liquidity := "0"
	if pool.CurrentLiquidity != nil {
		liquidity = pool.CurrentLiquidity.String()
	}
	feePct := float64(pool.Fee) / 10000

	if kind == model.NotificationLiquidityAdded {
		subject := fmt.Sprintf("%s NOW TRADEABLE", r.TokenSymbol)
		plain := fmt.Sprintf(
			"%s pool has sufficient liquidity!\n\nTime: %s\nPool: %s\nLiquidity: %s\n\nTrade: %s",
			r.TokenSymbol, timestamp, pool.Address, liquidity, tradeURL,
		)
		return Content{
			Subject: subject,
			Plain:   plain,
			HTML:    r.html(subject, pool, liquidity, feePct, tradeURL),
			Embed: map[string]any{
				"title":       subject,
				"description": "Pool liquidity crossed the minimum threshold.",
				"color":       0x2ecc71,
				"fields": []map[string]any{
					{"name": "Pool", "value": pool.Address, "inline": false},
					{"name": "Liquidity", "value": liquidity, "inline": true},
					{"name": "Fee", "value": fmt.Sprintf("%.2f%%", feePct), "inline": true},
				},
			},
		}
	}

	subject := fmt.Sprintf("%s Pool Discovered", r.TokenSymbol)
	plain := fmt.Sprintf(
		"New %s pool discovered.\n\nTime: %s\nPool: %s\nPair: %s / %s\nFee: %.2f%% (%d)\nLiquidity: %s (monitoring until it reaches %s)\n\nTrade: %s",
		r.TokenSymbol, timestamp, pool.Address, pool.Token0, pool.Token1, feePct, pool.Fee, liquidity, r.Threshold, tradeURL,
	)
	return Content{
		Subject: subject,
		Plain:   plain,
		HTML:    r.html(subject, pool, liquidity, feePct, tradeURL),
		Embed: map[string]any{
			"title":       subject,
			"description": "A new pool involving the target token was created.",
			"color":       0x3498db,
			"fields": []map[string]any{
				{"name": "Pool", "value": pool.Address, "inline": false},
				{"name": "Pair", "value": fmt.Sprintf("%s / %s", pool.Token0, pool.Token1), "inline": false},
				{"name": "Fee", "value": fmt.Sprintf("%.2f%%", feePct), "inline": true},
				{"name": "Liquidity", "value": liquidity, "inline": true},
			},
		},
	}
}

func (r Renderer) html(subject string, pool model.Pool, liquidity string, feePct float64, tradeURL string) string {
	return fmt.Sprintf(
		`<html><body><h2>%s</h2><table>`+
			`<tr><td>Pool</td><td><code>%s</code></td></tr>`+
			`<tr><td>Pair</td><td><code>%s</code> / <code>%s</code></td></tr>`+
			`<tr><td>Fee</td><td>%.2f%%</td></tr>`+
			`<tr><td>Liquidity</td><td>%s</td></tr>`+
			`</table><p><a href="%s">Open Uniswap</a></p></body></html>`,
		subject, pool.Address, pool.Token0, pool.Token1, feePct, liquidity, tradeURL,
	)
}
