package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update, so
// updates redelivered after a poller restart are not answered twice.
func Idempotency(manager idempotency.Manager, ttl time.Duration, log *slog.Logger) telebot.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		if manager == nil {
			return next
		}

		return func(c telebot.Context) error {
			key := UpdateKey(c)
			if key == "" {
				return next(c)
			}

			result, err := manager.Execute(RequestContext(c), key, ttl, func(context.Context) (any, error) {
				return true, next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					log.Debug("duplicate update dropped", slog.String("key", key))
					return nil
				}
				return err
			}

			if result.FromCache {
				log.Debug("update already handled", slog.String("key", key))
			}
			return nil
		}
	}
}

// UpdateKey identifies an update independently of redelivery.
func UpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.GenerateKey("telegram", "callback", cb.ID)
	}

	if msg := c.Message(); msg != nil && msg.ID != 0 {
		var chatID int64
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		return idempotency.GenerateKey("telegram", "message", chatID, msg.ID)
	}

	return ""
}
