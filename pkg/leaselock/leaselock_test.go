package leaselock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	c := New(t.TempDir())
	ctx := context.Background()

	lease, err := c.Acquire(ctx, "resolver", Options{})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// Held lease blocks a second acquirer.
	if _, err := c.Acquire(ctx, "resolver", Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Acquire() error = %v, want ErrBusy", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	// Released lease is immediately available again.
	lease2, err := c.Acquire(ctx, "resolver", Options{})
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	_ = lease2.Release(ctx)
}

func TestAcquire_DistinctKeysIndependent(t *testing.T) {
	c := New(t.TempDir())
	ctx := context.Background()

	a, err := c.Acquire(ctx, "resolver", Options{})
	if err != nil {
		t.Fatalf("Acquire(resolver) error = %v", err)
	}
	defer a.Release(ctx)

	b, err := c.Acquire(ctx, "migrator", Options{})
	if err != nil {
		t.Fatalf("Acquire(migrator) error = %v", err)
	}
	_ = b.Release(ctx)
}

func TestAcquire_ReclaimsExpiredLease(t *testing.T) {
	c := New(t.TempDir())
	ctx := context.Background()

	// Plant an expired lock as a crashed holder would leave behind.
	if err := c.writeLock("resolver", "dead-token", -time.Minute); err != nil {
		t.Fatalf("writeLock() error = %v", err)
	}

	lease, err := c.Acquire(ctx, "resolver", Options{})
	if err != nil {
		t.Fatalf("Acquire() over expired lease error = %v", err)
	}
	_ = lease.Release(ctx)
}

func TestWithLease_RunsAndReleases(t *testing.T) {
	c := New(t.TempDir())
	ctx := context.Background()

	ran := false
	err := c.WithLease(ctx, "resolver", Options{}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithLease() error = %v", err)
	}
	if !ran {
		t.Fatal("WithLease() did not invoke fn")
	}

	// The lease must be gone afterwards.
	lease, err := c.Acquire(ctx, "resolver", Options{})
	if err != nil {
		t.Fatalf("Acquire() after WithLease error = %v", err)
	}
	_ = lease.Release(ctx)
}

func TestWithLease_PropagatesError(t *testing.T) {
	c := New(t.TempDir())

	wantErr := errors.New("pipeline failed")
	err := c.WithLease(context.Background(), "resolver", Options{}, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithLease() error = %v, want %v", err, wantErr)
	}
}
