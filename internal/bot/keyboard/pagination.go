package keyboard

import (
	"strconv"

	"github.com/Proton-105/interview-coach/internal/i18n"
)

// Pages returns how many pages of size perPage are needed for total items.
func Pages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// ClampPage keeps page within 1..totalPages.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// PaginationButtons returns up to three inline buttons (prev, current page, next)
// allowing the caller to paginate lists using a shared action prefix.
func PaginationButtons(t i18n.Translator, action string, page, totalPages int) []InlineButton {
	if totalPages < 1 {
		totalPages = 1
	}
	page = ClampPage(page, totalPages)

	buttons := make([]InlineButton, 0, 3)

	if page > 1 {
		buttons = append(buttons, InlineButton{
			Text:   t.T("bot.pagination.prev"),
			Unique: action,
			Data:   strconv.Itoa(page - 1),
		})
	}

	buttons = append(buttons, InlineButton{
		Text:   t.Tf("bot.pagination.page", page, totalPages),
		Unique: action,
		Data:   strconv.Itoa(page),
	})

	if page < totalPages {
		buttons = append(buttons, InlineButton{
			Text:   t.T("bot.pagination.next"),
			Unique: action,
			Data:   strconv.Itoa(page + 1),
		})
	}

	return buttons
}
