package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(3, func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("Retry() = %q after %d calls, want ok after 3", got, calls)
	}
}

func TestRetry_ReturnsLastError(t *testing.T) {
	wantErr := errors.New("persistent")
	calls := 0
	_, err := Retry(2, func() (int, error) {
		calls++
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retry() error = %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Fatalf("Retry() calls = %d, want 2", calls)
	}
}

func TestRetryWithContext_CancellationNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryWithContext(ctx, 5, func(ctx context.Context) (int, error) {
		calls++
		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RetryWithContext() error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("RetryWithContext() ran %d times after cancellation, want 0", calls)
	}
}

func TestRetryErrWithContext_StopsOnDeadline(t *testing.T) {
	calls := 0
	err := RetryErrWithContext(context.Background(), 5, func(ctx context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RetryErrWithContext() error = %v, want deadline exceeded", err)
	}
	if calls != 1 {
		t.Fatalf("RetryErrWithContext() calls = %d, want 1 (no retry on deadline)", calls)
	}
}

func TestRetry_ZeroTriesDefaultsToOne(t *testing.T) {
	calls := 0
	if err := RetryErr(0, func() error {
		calls++
		return nil
	}); err != nil {
		t.Fatalf("RetryErr() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("RetryErr(0, ...) calls = %d, want 1", calls)
	}
}
