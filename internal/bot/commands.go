package bot

// Command constants for Telegram bot commands.
const (
	CommandStart   = "/start"
	CommandReset   = "/reset"
	CommandCancel  = "/cancel"
	CommandSummary = "/summary"
	CommandHistory = "/history"
	CommandHelp    = "/help"
)

// Callback prefix constants for inline button interactions.
const (
	CallbackReset   = "reset"
	CallbackHistory = "history"
)
