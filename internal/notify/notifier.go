// Package notify dispatches pool milestone notifications to the configured
// channels. Delivery is at-least-once: the whole dispatch is retried on
// failure and every attempt lands in the audit log, so duplicates are
// diagnosable after the fact.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"poolwatch/internal/model"
)

// Sender is one delivery channel for rendered notifications.
type Sender interface {
	Send(ctx context.Context, content Content) error
	Name() string
}

// AuditLog records dispatch attempts; the store satisfies this.
type AuditLog interface {
	RecordNotification(ctx context.Context, entry model.NotificationLogEntry) error
}

// Result is the outcome of one dispatch, after retries.
type Result struct {
	Success  bool
	Channels int
	Duration time.Duration
}

// DispatcherConfig holds dispatch retry settings.
type DispatcherConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

func (c *DispatcherConfig) applyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 2 * time.Second
	}
}

// Dispatcher renders a milestone once per channel family and delivers it to
// every configured sender. Overall success tracks the primary (email)
// channel when one is configured; other channels are best-effort and logged
// individually.
type Dispatcher struct {
	render  RenderFunc
	primary Sender
	others  []Sender
	audit   AuditLog
	logger  *zap.Logger
	cfg     DispatcherConfig
}

func NewDispatcher(render RenderFunc, primary Sender, others []Sender, audit AuditLog, cfg DispatcherConfig, logger *zap.Logger) (*Dispatcher, error) {
	if render == nil {
		return nil, fmt.Errorf("render function is nil")
	}
	if audit == nil {
		return nil, fmt.Errorf("audit log is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	return &Dispatcher{
		render:  render,
		primary: primary,
		others:  others,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// Dispatch delivers a milestone notification for the pool. Notification
// failures never roll back pool state; the caller has already committed the
// transition and this is best-effort delivery with an audit trail.
func (d *Dispatcher) Dispatch(ctx context.Context, pool model.Pool, kind string) Result {
	start := time.Now()
	content := d.render(kind, pool)

	var (
		success   bool
		delivered int
		summary   string
		lastErr   string
	)

	delay := d.cfg.RetryBackoff
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		success, delivered, summary, lastErr = d.deliverAll(ctx, content)

		entry := model.NotificationLogEntry{
			PoolAddress: pool.Address,
			Type:        kind,
			Success:     success,
			Channels:    summary,
			Error:       lastErr,
			SentAt:      time.Now().UTC(),
		}
		if err := d.audit.RecordNotification(ctx, entry); err != nil {
			d.logger.Error("record notification failed", zap.String("pool", pool.Address), zap.Error(err))
		}

		if success {
			break
		}
		d.logger.Warn("dispatch attempt failed",
			zap.String("pool", pool.Address),
			zap.String("kind", kind),
			zap.Int("attempt", attempt),
			zap.String("channels", summary),
		)
		if attempt == d.cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{Success: false, Channels: delivered, Duration: time.Since(start)}
		case <-timer.C:
		}
		delay *= 2
	}

	return Result{Success: success, Channels: delivered, Duration: time.Since(start)}
}

// deliverAll sends the content to every channel and folds the per-channel
// outcomes into the overall verdict: primary decides when configured,
// otherwise any successful channel counts.
func (d *Dispatcher) deliverAll(ctx context.Context, content Content) (success bool, delivered int, summary string, lastErr string) {
	type outcome struct {
		name string
		err  error
	}

	outcomes := make([]outcome, 0, len(d.others)+1)
	if d.primary != nil {
		outcomes = append(outcomes, outcome{d.primary.Name(), d.primary.Send(ctx, content)})
	}
	for _, sender := range d.others {
		outcomes = append(outcomes, outcome{sender.Name(), sender.Send(ctx, content)})
	}

	if len(outcomes) == 0 {
		return true, 0, "", ""
	}

	parts := make([]string, 0, len(outcomes))
	anyOK := false
	for _, o := range outcomes {
		if o.err != nil {
			parts = append(parts, o.name+"=fail")
			lastErr = o.err.Error()
			d.logger.Warn("channel delivery failed", zap.String("channel", o.name), zap.Error(o.err))
			continue
		}
		parts = append(parts, o.name+"=ok")
		delivered++
		anyOK = true
	}
	summary = strings.Join(parts, ",")

	if d.primary != nil {
		success = outcomes[0].err == nil
	} else {
		success = anyOK
	}
	return success, delivered, summary, lastErr
}
