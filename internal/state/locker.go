package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPrefix = "interview:lock:"

	// DefaultLockTTL must outlive the slowest collaborator call made while a
	// user's lock is held.
	DefaultLockTTL = 2 * time.Minute
	// DefaultLockWait is how long a request queues behind another one for
	// the same user before giving up with ErrStateLocked.
	DefaultLockWait = 30 * time.Second

	lockRetryInterval = 25 * time.Millisecond
)

// Locker serializes operations per user id. Different users never block
// each other.
type Locker interface {
	// Lock blocks until the user's lock is held or the wait budget is spent.
	// The returned function releases the lock and is safe to call once.
	Lock(ctx context.Context, userID string) (func(), error)
}

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a distributed per-user lock built on SET NX.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker creates a Locker shared by every process using the same Redis.
func NewRedisLocker(client *redis.Client, log *slog.Logger, ttl, wait time.Duration) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}

	return &RedisLocker{client: client, log: log, ttl: ttl, wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, userID string) (func(), error) {
	key := userLockKeyPrefix + userID
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			l.log.Error("failed to acquire user lock", slog.String("user_id", userID), slog.Any("error", err))
			return nil, err
		}
		if acquired {
			return l.releaser(key, token, userID), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			l.log.Warn("user lock wait exceeded", slog.String("user_id", userID))
			return nil, ErrStateLocked
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token, userID string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled; the lock must still go.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
				l.log.Error("failed to release user lock", slog.String("user_id", userID), slog.Any("error", err))
			}
		})
	}
}

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a Locker valid within a single process.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*userLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &userLock{ch: make(chan struct{}, 1)}
		l.locks[userID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, lock, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(userID, lock, true) })
	}, nil
}

func (l *LocalLocker) release(userID string, lock *userLock, held bool) {
	if held {
		<-lock.ch
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, userID)
	}
}
