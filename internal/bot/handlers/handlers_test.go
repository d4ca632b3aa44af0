package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/interview"
	"github.com/Proton-105/interview-coach/internal/state"
)

type mockInterviewer struct{ mock.Mock }

func (m *mockInterviewer) HandleMessage(ctx context.Context, userID, message string) (*interview.Reply, error) {
	args := m.Called(ctx, userID, message)
	res, _ := args.Get(0).(*interview.Reply)
	return res, args.Error(1)
}

func (m *mockInterviewer) Reset(ctx context.Context, userID string) (*interview.Reply, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*interview.Reply)
	return res, args.Error(1)
}

func (m *mockInterviewer) Session(ctx context.Context, userID string) (*state.Session, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*state.Session)
	return res, args.Error(1)
}

func (m *mockInterviewer) Summary(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *mockInterviewer) History(ctx context.Context, userID string) ([]domain.ConversationRecord, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]domain.ConversationRecord)
	return res, args.Error(1)
}

type sent struct {
	what any
	opts []any
}

type fakeContext struct {
	telebot.Context

	sender    *telebot.User
	text      string
	callback  *telebot.Callback
	sent      []sent
	edited    []sent
	responded bool
	deleted   bool
}

func newFakeContext(text string) *fakeContext {
	return &fakeContext{sender: &telebot.User{ID: 42}, text: text}
}

func (c *fakeContext) Sender() *telebot.User       { return c.sender }
func (c *fakeContext) Text() string                { return c.text }
func (c *fakeContext) Callback() *telebot.Callback { return c.callback }
func (c *fakeContext) Get(string) interface{}      { return nil }

func (c *fakeContext) Delete() error {
	c.deleted = true
	return nil
}

func (c *fakeContext) Respond(...*telebot.CallbackResponse) error {
	c.responded = true
	return nil
}

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, sent{what: what, opts: opts})
	return nil
}

func (c *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	c.edited = append(c.edited, sent{what: what, opts: opts})
	return nil
}

func testTexts() i18n.Translator {
	return i18n.MustLoad(i18n.DefaultLang).Translator(i18n.DefaultLang)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func markupOf(t *testing.T, s sent) *telebot.ReplyMarkup {
	t.Helper()
	require.Len(t, s.opts, 1)
	markup, ok := s.opts[0].(*telebot.ReplyMarkup)
	require.True(t, ok)
	return markup
}

func TestMessageHandler_SendsReplyWithStageKeyboard(t *testing.T) {
	svc := &mockInterviewer{}
	svc.On("HandleMessage", mock.Anything, "42", "開始面試").
		Return(&interview.Reply{Response: "請開始自我介紹", State: state.StateIntro, SessionID: 1}, nil).Once()

	c := newFakeContext("開始面試")
	require.NoError(t, NewMessageHandler(svc, testTexts(), testLogger())(c))

	require.Len(t, c.sent, 1)
	assert.Equal(t, "請開始自我介紹", c.sent[0].what)
	assert.Equal(t, "介紹完了", markupOf(t, c.sent[0]).ReplyKeyboard[0][0].Text)
	svc.AssertExpectations(t)
}

func TestMessageHandler_PropagatesErrors(t *testing.T) {
	svc := &mockInterviewer{}
	svc.On("HandleMessage", mock.Anything, "42", "hi").Return(nil, errors.New("down")).Once()

	c := newFakeContext("hi")
	assert.Error(t, NewMessageHandler(svc, testTexts(), testLogger())(c))
	assert.Empty(t, c.sent)
}

func TestMessageHandler_IgnoresAnonymousUpdates(t *testing.T) {
	svc := &mockInterviewer{}
	c := newFakeContext("hi")
	c.sender = nil

	require.NoError(t, NewMessageHandler(svc, testTexts(), testLogger())(c))
	svc.AssertNotCalled(t, "HandleMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestStartHandler(t *testing.T) {
	t.Run("new user gets the welcome", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("Session", mock.Anything, "42").Return(state.NewSession("42"), nil).Once()

		c := newFakeContext("/start")
		require.NoError(t, NewStartHandler(svc, testTexts(), testLogger())(c))
		require.Len(t, c.sent, 1)
		assert.Contains(t, c.sent[0].what, "歡迎使用智能面試系統")
		assert.Equal(t, "開始面試", markupOf(t, c.sent[0]).ReplyKeyboard[0][0].Text)
	})

	t.Run("returning user resumes", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("Session", mock.Anything, "42").Return(&state.Session{UserID: "42", State: state.StateQuestioning}, nil).Once()

		c := newFakeContext("/start")
		require.NoError(t, NewStartHandler(svc, testTexts(), testLogger())(c))
		require.Len(t, c.sent, 1)
		assert.Contains(t, c.sent[0].what, "面試問答")
	})
}

func TestResetFlow(t *testing.T) {
	texts := testTexts()

	c := newFakeContext("/reset")
	require.NoError(t, NewResetHandler(texts, testLogger())(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, texts.T("bot.reset.confirm"), c.sent[0].what)

	buttons := markupOf(t, c.sent[0]).InlineKeyboard[0]
	require.Len(t, buttons, 2)
	assert.Equal(t, "reset:yes", buttons[0].Data)
	assert.Equal(t, "reset:no", buttons[1].Data)

	t.Run("accept", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("Reset", mock.Anything, "42").
			Return(&interview.Reply{Response: texts.T("interview.reset.done"), State: state.StateWaiting, ResetComplete: true}, nil).Once()

		cb := newFakeContext("")
		cb.callback = &telebot.Callback{Data: buttons[0].Data}
		require.NoError(t, NewResetCallbackHandler(svc, texts, testLogger())(cb))

		assert.True(t, cb.responded)
		assert.True(t, cb.deleted)
		require.Len(t, cb.sent, 1)
		assert.Contains(t, cb.sent[0].what, "面試已完全重置")
		svc.AssertExpectations(t)
	})

	t.Run("decline", func(t *testing.T) {
		svc := &mockInterviewer{}

		cb := newFakeContext("")
		cb.callback = &telebot.Callback{Data: buttons[1].Data}
		require.NoError(t, NewResetCallbackHandler(svc, texts, testLogger())(cb))

		require.Len(t, cb.edited, 1)
		assert.Equal(t, texts.T("bot.reset.cancelled"), cb.edited[0].what)
		svc.AssertNotCalled(t, "Reset", mock.Anything, mock.Anything)
	})
}

func TestSummaryHandler(t *testing.T) {
	svc := &mockInterviewer{}
	svc.On("Summary", mock.Anything, "42").Return("總結", nil).Once()

	c := newFakeContext("/summary")
	require.NoError(t, NewSummaryHandler(svc)(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "總結", c.sent[0].what)
}

func historyRecords(n int) []domain.ConversationRecord {
	records := make([]domain.ConversationRecord, 0, n)
	for i := 1; i <= n; i++ {
		records = append(records, domain.ConversationRecord{
			ID:          int64(i),
			UserMessage: fmt.Sprintf("問題 %d", i),
			AIResponse:  fmt.Sprintf("回覆 %d", i),
			State:       string(state.StateQuestioning),
		})
	}
	return records
}

func TestHistoryHandler(t *testing.T) {
	texts := testTexts()

	t.Run("empty", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("History", mock.Anything, "42").Return([]domain.ConversationRecord(nil), nil).Once()

		c := newFakeContext("/history")
		require.NoError(t, NewHistoryHandler(svc, texts)(c))
		require.Len(t, c.sent, 1)
		assert.Equal(t, texts.T("bot.history.empty"), c.sent[0].what)
	})

	t.Run("first page", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("History", mock.Anything, "42").Return(historyRecords(7), nil).Once()

		c := newFakeContext("/history")
		require.NoError(t, NewHistoryHandler(svc, texts)(c))
		require.Len(t, c.sent, 1)

		text := c.sent[0].what.(string)
		assert.Contains(t, text, "問題 1")
		assert.Contains(t, text, "問題 3")
		assert.NotContains(t, text, "問題 4")

		buttons := markupOf(t, c.sent[0]).InlineKeyboard[0]
		require.Len(t, buttons, 2)
		assert.Equal(t, "history:2", buttons[1].Data)
	})

	t.Run("page callback edits in place", func(t *testing.T) {
		svc := &mockInterviewer{}
		svc.On("History", mock.Anything, "42").Return(historyRecords(7), nil).Once()

		c := newFakeContext("")
		c.callback = &telebot.Callback{Data: "history:3"}
		require.NoError(t, NewHistoryPageHandler(svc, texts)(c))

		require.Len(t, c.edited, 1)
		text := c.edited[0].what.(string)
		assert.Contains(t, text, "#7")
		assert.Contains(t, text, "問題 7")
		assert.True(t, c.responded)
	})
}

func TestPreview(t *testing.T) {
	long := ""
	for i := 0; i < historyPreviewRunes+10; i++ {
		long += "字"
	}
	got := preview(long)
	assert.Equal(t, historyPreviewRunes+1, len([]rune(got)))
	assert.Equal(t, "短", preview(" 短 "))
}
