package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Shutdown coordinates graceful shutdown hooks in parallel.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Closer registers a hook for a component closed without a context.
func (s *Shutdown) Closer(name string, fn func() error) {
	if fn == nil {
		return
	}
	s.Register(name, func(context.Context) error { return fn() })
}

// Execute runs all registered hooks concurrently and waits for completion or
// for ctx to end. Hooks still running when ctx ends are reported as failed.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  []error
	)

	for _, h := range hooks {
		h := h

		wg.Add(1)
		go func() {
			defer wg.Done()

			s.log.Debug("running shutdown hook", slog.String("hook", h.Name))
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				errMu.Unlock()
				return
			}
			s.log.Debug("shutdown hook completed", slog.String("hook", h.Name))
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var timeoutErr error
	select {
	case <-done:
	case <-ctx.Done():
		timeoutErr = fmt.Errorf("shutdown interrupted: %w", ctx.Err())
	}

	errMu.Lock()
	result := errors.Join(append([]error{timeoutErr}, errs...)...)
	errMu.Unlock()

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))
	return result
}
