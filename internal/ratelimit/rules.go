package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Proton-105/interview-coach/pkg/config"
)

// Rules encapsulates the configured per-user limit and whitelist.
type Rules struct {
	config    config.RateLimitConfig
	whitelist map[string]struct{}
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		if id = strings.TrimSpace(id); id != "" {
			whitelist[id] = struct{}{}
		}
	}

	return &Rules{config: cfg, whitelist: whitelist}
}

// Enabled reports whether limits are enforced at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID string) bool {
	_, ok := r.whitelist[userID]
	return ok
}

// PerUser returns the per-user rate limiting rule.
func (r *Rules) PerUser() (int, time.Duration, error) {
	if r.config.Window <= 0 {
		return r.config.Limit, 0, errors.New("window duration is not set")
	}
	return r.config.Limit, r.config.Window, nil
}

// Guard applies Rules through a Limiter.
type Guard struct {
	limiter Limiter
	rules   *Rules
}

func NewGuard(limiter Limiter, rules *Rules) *Guard {
	return &Guard{limiter: limiter, rules: rules}
}

// Allow checks one message of userID. It returns ErrLimitExceeded together
// with the result when the user is over the limit.
func (g *Guard) Allow(ctx context.Context, userID string) (*Result, error) {
	if g == nil || !g.rules.Enabled() || g.rules.IsWhitelisted(userID) {
		return &Result{Allowed: true}, nil
	}

	limit, window, err := g.rules.PerUser()
	if err != nil {
		return nil, err
	}

	result, err := g.limiter.Check(ctx, "user:"+userID, limit, window)
	if err != nil {
		return nil, err
	}
	if !result.Allowed {
		return result, ErrLimitExceeded
	}
	return result, nil
}
