package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/middleware"
)

// NewResetHandler asks for confirmation before wiping the interview.
func NewResetHandler(texts i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		markup, err := keyboard.NewInlineKeyboard().
			AddRow(
				keyboard.InlineButton{Text: texts.T("bot.reset.accept"), Unique: keyboard.ActionReset, Data: keyboard.ResetAccept},
				keyboard.InlineButton{Text: texts.T("bot.reset.decline"), Unique: keyboard.ActionReset, Data: keyboard.ResetDecline},
			).
			Build()
		if err != nil {
			log.Error("failed to build reset keyboard", slog.Any("error", err))
			return err
		}

		return c.Send(texts.T("bot.reset.confirm"), markup)
	}
}

// NewResetCallbackHandler performs or cancels the reset chosen on the
// confirmation keyboard.
func NewResetCallbackHandler(svc Interviewer, texts i18n.Translator, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID, ok := senderID(c)
		if !ok {
			return nil
		}

		_, choice, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return err
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to answer callback", slog.String("user_id", userID), slog.Any("error", err))
		}

		if choice != keyboard.ResetAccept {
			return c.Edit(texts.T("bot.reset.cancelled"))
		}

		reply, err := svc.Reset(middleware.RequestContext(c), userID)
		if err != nil {
			return err
		}

		if err := c.Delete(); err != nil {
			log.Debug("failed to remove reset prompt", slog.String("user_id", userID), slog.Any("error", err))
		}
		return c.Send(reply.Response, keyboard.ForState(texts, reply.State))
	}
}
