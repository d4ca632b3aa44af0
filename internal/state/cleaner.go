package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ExpiryHook releases per-user data kept outside the session store.
type ExpiryHook func(ctx context.Context, userID string) error

// Cleaner removes sessions that have been idle for longer than the TTL.
type Cleaner struct {
	storage Storage
	locker  Locker
	log     *slog.Logger
	ttl     time.Duration
	hooks   []ExpiryHook
	now     func() time.Time
}

// NewCleaner constructs a Cleaner. Each expired user is handled under the
// user's lock from locker; a nil locker disables locking. Hooks run for
// every expired user after the session itself has been deleted.
func NewCleaner(storage Storage, locker Locker, log *slog.Logger, ttl time.Duration, hooks ...ExpiryHook) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &Cleaner{
		storage: storage,
		locker:  locker,
		log:     log,
		ttl:     ttl,
		hooks:   hooks,
		now:     time.Now,
	}
}

// Run sweeps on every tick until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			if _, err := c.Sweep(ctx); err != nil {
				c.log.Error("session sweep failed", slog.Any("error", err))
			}
		}
	}
}

// Sweep deletes every expired session and returns how many were removed.
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	sessions, err := c.storage.ListSessions(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !c.expired(session) {
			continue
		}

		ok, err := c.expire(ctx, session.UserID)
		if err != nil {
			c.log.Error("session cleaner failed to expire session", slog.String("user_id", session.UserID), slog.Any("error", err))
			continue
		}
		if !ok {
			continue
		}

		removed++
		c.log.Info("idle session cleared", slog.String("user_id", session.UserID))
	}

	return removed, nil
}

func (c *Cleaner) expired(session *Session) bool {
	return c.now().Sub(session.UpdatedAt) > c.ttl
}

// expire deletes the user's session under the user's lock. The session is
// read again once the lock is held, so activity since the listing keeps it.
func (c *Cleaner) expire(ctx context.Context, userID string) (bool, error) {
	if c.locker != nil {
		unlock, err := c.locker.Lock(ctx, userID)
		if err != nil {
			return false, err
		}
		defer unlock()
	}

	current, err := c.storage.GetSession(ctx, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !c.expired(current) {
		return false, nil
	}

	if err := c.storage.DeleteSession(ctx, userID); err != nil {
		return false, err
	}
	for _, hook := range c.hooks {
		if err := hook(ctx, userID); err != nil {
			c.log.Warn("session expiry hook failed", slog.String("user_id", userID), slog.Any("error", err))
		}
	}
	return true, nil
}
