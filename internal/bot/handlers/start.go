package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/middleware"
	"github.com/Proton-105/interview-coach/internal/state"
)

// NewStartHandler greets the user and offers the keyboard of the stage they
// are in. It never changes the session.
func NewStartHandler(svc Interviewer, texts i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		userID, ok := senderID(c)
		if !ok {
			log.Warn("start handler invoked without sender")
			return nil
		}

		session, err := svc.Session(middleware.RequestContext(c), userID)
		if err != nil {
			return err
		}

		if session.State == state.StateWaiting {
			return c.Send(texts.T("interview.waiting.welcome"), keyboard.ForState(texts, session.State))
		}

		stage := texts.T("bot.states." + string(session.State))
		return c.Send(texts.Tf("bot.start.resume", stage), keyboard.ForState(texts, session.State))
	}
}

// NewHelpHandler lists the commands and keywords.
func NewHelpHandler(texts i18n.Translator) Handler {
	return func(c telebot.Context) error {
		return c.Send(texts.T("bot.help"))
	}
}
