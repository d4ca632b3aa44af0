// Package idempotency replays the stored reply of a request that was already
// handled, keyed by a client-supplied idempotency key.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrRequestInProgress = errors.New("request with this key is already in progress")

const (
	DefaultTTL     = 24 * time.Hour
	defaultLockTTL = 5 * time.Minute
)

// Operation produces the reply to cache. It must be JSON-encodable.
type Operation func(ctx context.Context) (any, error)

// Result is the JSON encoding of an operation's reply.
type Result struct {
	Response  json.RawMessage
	FromCache bool
}

// Decode unmarshals the cached or fresh reply into v.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Response) == 0 {
		return errors.New("idempotency: empty response")
	}
	return json.Unmarshal(r.Response, v)
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	lockTTL time.Duration
	log     *slog.Logger
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		lockTTL: defaultLockTTL,
		log:     log,
	}
}

// Execute runs fn once per key. A completed key replays its stored reply; a
// key whose first request is still running fails with ErrRequestInProgress.
// Failed operations are not stored so the client may retry them.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == StatusCompleted {
		return &Result{Response: record.Response, FromCache: true}, nil
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		// The holder may have finished between Get and Lock.
		if record, err = m.store.Get(ctx, key); err == nil && record != nil && record.Status == StatusCompleted {
			return &Result{Response: record.Response, FromCache: true}, nil
		}
		return nil, ErrRequestInProgress
	}

	defer func() {
		// Release with a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := m.store.ReleaseLock(releaseCtx, key); err != nil {
			m.log.Warn("idempotency lock release failed", slog.String("key", key), slog.Any("error", err))
		}
	}()

	response, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	responseBytes, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("encode idempotent response: %w", err)
	}

	if err := m.store.Set(ctx, key, &Record{Status: StatusCompleted, Response: responseBytes}, ttl); err != nil {
		// The reply was produced; losing the cache entry only weakens replay.
		m.log.Error("failed to store idempotent response", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{Response: responseBytes}, nil
}
