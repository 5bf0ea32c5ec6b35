package leaselock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrBusy = errors.New("lease lock busy")
	ErrLost = errors.New("lease lock lost")
)

// Client acquires leases as lock files inside a directory. A lease protects
// the artifact set of one resolution run from a concurrently started run on
// the same host or shared volume.
type Client struct {
	dir string
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	TokenPrefix string
}

type Lease struct {
	Key   string
	Token string

	Context context.Context

	client *Client
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// lockRecord is the lock file payload. ExpiresAt makes a crashed holder's
// lock reclaimable without manual cleanup.
type lockRecord struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func New(dir string) *Client {
	return &Client{dir: dir}
}

// WithLease acquires the lease, runs fn under it, and always releases.
// fn receives a context that is canceled if the lease is lost mid-run.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		_ = lease.Release(context.Background())
	}()
	return fn(lease.Context)
}

func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease lock key is empty")
	}

	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.RenewEvery <= 0 || opts.RenewEvery >= opts.TTL {
		opts.RenewEvery = max(opts.TTL/2, time.Second)
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = 250 * time.Millisecond
	}
	if opts.WaitJitter < 0 {
		opts.WaitJitter = 0
	}

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	token := opts.TokenPrefix + tok

	for {
		ok, err := c.tryAcquire(key, token, opts.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Token:   token,
		Context: leaseCtx,
		client:  c,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}

	go l.renewLoop(opts)

	return l, nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})

	record, err := l.client.readLock(l.Key)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if record.Token != l.Token {
		// Someone else reclaimed an expired lease; their file stays.
		return nil
	}
	return os.Remove(l.client.lockPath(l.Key))
}

func (l *Lease) renewLoop(opts Options) {
	t := time.NewTicker(opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(opts.TTL); err != nil {
				l.cancel(err)
				return
			}
		}
	}
}

func (l *Lease) renewOnce(ttl time.Duration) error {
	record, err := l.client.readLock(l.Key)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrLost
		}
		return err
	}
	if record.Token != l.Token {
		return ErrLost
	}
	return l.client.writeLock(l.Key, l.Token, ttl)
}

func (c *Client) lockPath(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s.lock", key))
}

// tryAcquire claims the lock with an exclusive create, or reclaims it when
// the recorded lease has expired. The reclaim path has a small race window
// between read and rewrite, acceptable for crash recovery on one volume.
func (c *Client) tryAcquire(key, token string, ttl time.Duration) (bool, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return false, err
	}

	path := c.lockPath(key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err == nil {
		defer f.Close()
		data, marshalErr := json.Marshal(lockRecord{Token: token, ExpiresAt: time.Now().Add(ttl)})
		if marshalErr != nil {
			return false, marshalErr
		}
		if _, writeErr := f.Write(data); writeErr != nil {
			return false, writeErr
		}
		return true, nil
	}
	if !os.IsExist(err) {
		return false, err
	}

	record, readErr := c.readLock(key)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			// Holder released between our create attempt and read.
			return false, nil
		}
		return false, readErr
	}
	if time.Now().Before(record.ExpiresAt) {
		return false, nil
	}

	// Expired lease: reclaim in place.
	if err := c.writeLock(key, token, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) readLock(key string) (*lockRecord, error) {
	data, err := os.ReadFile(c.lockPath(key))
	if err != nil {
		return nil, err
	}
	var record lockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("corrupt lock file %s: %w", c.lockPath(key), err)
	}
	return &record, nil
}

func (c *Client) writeLock(key, token string, ttl time.Duration) error {
	data, err := json.Marshal(lockRecord{Token: token, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return err
	}
	return os.WriteFile(c.lockPath(key), data, 0o644)
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
