package handlers

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/bot/keyboard"
	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/middleware"
)

// HistoryPageSize is the number of exchanges shown per history page.
const HistoryPageSize = 3

const historyPreviewRunes = 120

// NewHistoryHandler shows the first page of the user's conversation log.
func NewHistoryHandler(svc Interviewer, texts i18n.Translator) Handler {
	return func(c telebot.Context) error {
		return sendHistoryPage(c, svc, texts, 1, false)
	}
}

// NewHistoryPageHandler flips history pages from the pagination buttons.
func NewHistoryPageHandler(svc Interviewer, texts i18n.Translator) CallbackHandler {
	return func(c telebot.Context) error {
		_, data, err := keyboard.DecodeCallback(c.Callback().Data)
		if err != nil {
			return err
		}

		page, err := strconv.Atoi(data)
		if err != nil {
			page = 1
		}

		_ = c.Respond()
		return sendHistoryPage(c, svc, texts, page, true)
	}
}

func sendHistoryPage(c telebot.Context, svc Interviewer, texts i18n.Translator, page int, edit bool) error {
	userID, ok := senderID(c)
	if !ok {
		return nil
	}

	records, err := svc.History(middleware.RequestContext(c), userID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return c.Send(texts.T("bot.history.empty"))
	}

	text, markup, err := renderHistoryPage(texts, records, page)
	if err != nil {
		return err
	}

	if edit {
		return c.Edit(text, markup)
	}
	return c.Send(text, markup)
}

func renderHistoryPage(texts i18n.Translator, records []domain.ConversationRecord, page int) (string, *telebot.ReplyMarkup, error) {
	totalPages := keyboard.Pages(len(records), HistoryPageSize)
	page = keyboard.ClampPage(page, totalPages)

	start := (page - 1) * HistoryPageSize
	end := min(start+HistoryPageSize, len(records))

	var b strings.Builder
	b.WriteString(texts.T("bot.history.header"))
	for i, r := range records[start:end] {
		b.WriteString("\n\n")
		stage := texts.T("bot.states." + r.State)
		b.WriteString(texts.Tf("bot.history.entry", start+i+1, stage, preview(r.UserMessage), preview(r.AIResponse)))
	}

	markup, err := keyboard.NewInlineKeyboard().
		AddRow(keyboard.PaginationButtons(texts, keyboard.ActionHistory, page, totalPages)...).
		Build()
	if err != nil {
		return "", nil, err
	}

	return b.String(), markup, nil
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= historyPreviewRunes {
		return s
	}
	return string(runes[:historyPreviewRunes]) + "…"
}
