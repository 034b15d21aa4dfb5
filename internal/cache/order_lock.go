package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/oilhub/backend-go/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	orderLockKeyPrefix = "order_lock"
	lockRetryInterval  = 50 * time.Millisecond
)

// ErrLockTimeout is returned when a per-order lock cannot be obtained in time.
var ErrLockTimeout = errors.New("order lock wait timed out")

// OrderLocker serializes writers on the same order id.
type OrderLocker interface {
	// Lock blocks until the order is exclusively held and returns the release func.
	Lock(ctx context.Context, orderID int64) (func(), error)
}

// NewOrderLocker returns a Redis lease lock when caching is enabled, otherwise an in-process lock.
func NewOrderLocker(cfg config.CacheConfig) (OrderLocker, error) {
	if !cfg.Enabled {
		return NewLocalOrderLocker(), nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	ttl, wait := lockDurations(cfg)
	return NewRedisOrderLocker(client, ttl, wait), nil
}

type localLockEntry struct {
	ch   chan struct{}
	refs int
}

type localOrderLocker struct {
	mu      sync.Mutex
	entries map[int64]*localLockEntry
}

// NewLocalOrderLocker keys a mutex per order id inside this process.
func NewLocalOrderLocker() OrderLocker {
	return &localOrderLocker{entries: make(map[int64]*localLockEntry)}
}

func (l *localOrderLocker) Lock(ctx context.Context, orderID int64) (func(), error) {
	l.mu.Lock()
	entry, ok := l.entries[orderID]
	if !ok {
		entry = &localLockEntry{ch: make(chan struct{}, 1)}
		l.entries[orderID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(orderID, entry, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(orderID, entry, true) })
	}, nil
}

func (l *localOrderLocker) release(orderID int64, entry *localLockEntry, held bool) {
	if held {
		<-entry.ch
	}
	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, orderID)
	}
	l.mu.Unlock()
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisOrderLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisOrderLocker holds a SET NX lease per order so several API instances share one writer.
func NewRedisOrderLocker(client *redis.Client, ttl, wait time.Duration) OrderLocker {
	return &redisOrderLocker{client: client, ttl: ttl, wait: wait}
}

func (l *redisOrderLocker) Lock(ctx context.Context, orderID int64) (func(), error) {
	key := fmt.Sprintf("%s:%d", orderLockKeyPrefix, orderID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("order %d: %w", orderID, ErrLockTimeout)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		})
	}, nil
}
