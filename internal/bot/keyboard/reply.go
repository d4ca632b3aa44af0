package keyboard

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/state"
)

// ForState builds the reply keyboard offered in st. Every button sends a
// phrase the interview flow understands as a keyword.
func ForState(t i18n.Translator, st state.State) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: false,
	}

	lookup := func(key string) telebot.Btn {
		if t == nil {
			return markup.Text(key)
		}
		return markup.Text(t.T(key))
	}

	restart := lookup("bot.buttons.restart")

	switch st {
	case state.StateIntro:
		markup.Reply(
			markup.Row(lookup("bot.buttons.intro_done")),
			markup.Row(restart),
		)
	case state.StateIntroAnalysis:
		markup.Reply(
			markup.Row(lookup("bot.buttons.begin_questions")),
			markup.Row(restart),
		)
	case state.StateQuestioning:
		markup.Reply(
			markup.Row(lookup("bot.buttons.next_question"), lookup("bot.buttons.finish")),
			markup.Row(restart),
		)
	case state.StateCompleted:
		markup.Reply(markup.Row(restart))
	default:
		markup.Reply(markup.Row(lookup("bot.buttons.start")))
	}

	return markup
}
