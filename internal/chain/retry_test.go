package chain

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Millisecond, 4*time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("call count mismatch: %d", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, 4*time.Millisecond, func(context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("error mismatch: %v", err)
	}
	if calls != 3 {
		t.Fatalf("call count mismatch: %d", calls)
	}
}

func TestWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := withRetry(ctx, 5, time.Hour, 0, func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got: %v", err)
	}
	if calls != 1 {
		t.Fatalf("call count mismatch: %d", calls)
	}
}

func TestWithRetryNoRetryOnSuccess(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, 0, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("call count mismatch: %d", calls)
	}
}
