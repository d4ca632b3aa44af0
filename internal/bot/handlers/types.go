package handlers

import (
	"context"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/interview"
	"github.com/Proton-105/interview-coach/internal/state"
)

// Handler processes bot commands and messages.
type Handler = telebot.HandlerFunc

// CallbackHandler processes inline callback events.
type CallbackHandler = telebot.HandlerFunc

// Middleware wraps handlers with additional behavior.
type Middleware = telebot.MiddlewareFunc

// Interviewer is the interview service as seen by the bot.
type Interviewer interface {
	HandleMessage(ctx context.Context, userID, message string) (*interview.Reply, error)
	Reset(ctx context.Context, userID string) (*interview.Reply, error)
	Session(ctx context.Context, userID string) (*state.Session, error)
	Summary(ctx context.Context, userID string) (string, error)
	History(ctx context.Context, userID string) ([]domain.ConversationRecord, error)
}

// senderID returns the Telegram user id as the interview user id.
func senderID(c telebot.Context) (string, bool) {
	if c == nil || c.Sender() == nil {
		return "", false
	}
	return strconv.FormatInt(c.Sender().ID, 10), true
}
