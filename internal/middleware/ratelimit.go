package middleware

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/ratelimit"
)

// RateLimit enforces per-user rate limits for incoming Telegram updates.
// Limiter failures let the update through.
func RateLimit(guard *ratelimit.Guard, texts i18n.Translator, log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			sender := c.Sender()
			if guard == nil || sender == nil {
				return next(c)
			}

			userID := strconv.FormatInt(sender.ID, 10)
			result, err := guard.Allow(RequestContext(c), userID)
			switch {
			case errors.Is(err, ratelimit.ErrLimitExceeded):
				log.Warn("rate limit exceeded", slog.String("user_id", userID))
				return c.Send(texts.Tf("bot.errors.rate_limited", result.RetryAfter(time.Now())))
			case err != nil:
				log.Warn("rate limiter error", slog.String("user_id", userID), slog.Any("error", err))
			}

			return next(c)
		}
	}
}
