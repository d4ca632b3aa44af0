package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/middleware"
)

// NewMessageHandler feeds plain text into the interview and answers with the
// reply and the keyboard of the resulting stage.
func NewMessageHandler(svc Interviewer, texts i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID, ok := senderID(c)
		if !ok {
			return nil
		}

		text := c.Text()
		if text == "" {
			return nil
		}

		reply, err := svc.HandleMessage(middleware.RequestContext(c), userID, text)
		if err != nil {
			return err
		}

		log.Debug("interview reply",
			slog.String("user_id", userID),
			slog.String("state", string(reply.State)),
			slog.Int64("session_id", reply.SessionID),
		)

		return c.Send(reply.Response, keyboard.ForState(texts, reply.State))
	}
}

// NewSummaryHandler sends the closing summary of the user's interview.
func NewSummaryHandler(svc Interviewer) Handler {
	return func(c telebot.Context) error {
		userID, ok := senderID(c)
		if !ok {
			return nil
		}

		summary, err := svc.Summary(middleware.RequestContext(c), userID)
		if err != nil {
			return err
		}
		return c.Send(summary)
	}
}
