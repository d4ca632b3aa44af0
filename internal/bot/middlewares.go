package bot

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/handlers"
	apperrors "github.com/Proton-105/interview-coach/internal/errors"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/middleware"
)

// RecoveryMiddleware catches panics, reports them via the centralized handler, and notifies the user.
func RecoveryMiddleware(log *slog.Logger, errHandler *apperrors.Handler, texts i18n.Translator) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					userMsg := texts.T("bot.errors.generic")
					if errHandler != nil {
						errHandler.Handle(middleware.RequestContext(c), fmt.Errorf("panic recovered: %v", r))
					}

					if c != nil {
						if sendErr := c.Send(userMsg); sendErr != nil {
							log.Error("failed to notify user about panic", slog.Any("error", sendErr))
						}
					}

					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *apperrors.Handler, texts i18n.Translator) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := texts.T("bot.errors.generic")
			if errHandler != nil {
				if msg, _ := errHandler.Handle(middleware.RequestContext(c), err); msg != "" {
					userMsg = msg
				}
			}

			if c != nil {
				_ = c.Send(userMsg)
			}

			return nil
		}
	}
}

// LoggingMiddleware logs basic telemetry about incoming updates.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()
			ctx := middleware.RequestContext(c)

			userID := ""
			if c != nil && c.Sender() != nil {
				userID = strconv.FormatInt(c.Sender().ID, 10)
			}

			action := "text"
			if c != nil {
				if cb := c.Callback(); cb != nil {
					action = "callback:" + cb.Data
				} else if text := c.Text(); len(text) > 0 && text[0] == '/' {
					action = text
				}
			}

			log.InfoContext(ctx, "handling update", slog.String("user_id", userID), slog.String("action", action))
			err := next(c)
			log.InfoContext(ctx, "handled update",
				slog.String("user_id", userID),
				slog.String("action", action),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)

			return err
		}
	}
}
