package interview

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/intro"
	"github.com/Proton-105/interview-coach/internal/state"
)

var errCollaborator = errors.New("collaborator unavailable")

type mockIntroAnalyzer struct{ mock.Mock }

func (m *mockIntroAnalyzer) AnalyzeIntro(ctx context.Context, userID, text string) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, userID, text)
	res, _ := args.Get(0).(*domain.AnalysisResult)
	return res, args.Error(1)
}

type mockQuestionBank struct{ mock.Mock }

func (m *mockQuestionBank) NextQuestion(ctx context.Context) (*domain.QuestionResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*domain.QuestionResult)
	return res, args.Error(1)
}

type mockAnswerAnalyzer struct{ mock.Mock }

func (m *mockAnswerAnalyzer) AnalyzeAnswer(ctx context.Context, answer, question, standardAnswer string) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, answer, question, standardAnswer)
	res, _ := args.Get(0).(*domain.AnalysisResult)
	return res, args.Error(1)
}

type mockSummarizer struct{ mock.Mock }

func (m *mockSummarizer) Summarize(ctx context.Context, records []domain.ConversationRecord) (*domain.AnalysisResult, error) {
	args := m.Called(ctx, records)
	res, _ := args.Get(0).(*domain.AnalysisResult)
	return res, args.Error(1)
}

// memoryLog mirrors the SQL addressing: numeric ids own their rows, every
// other id shares the NULL bucket.
type memoryLog struct {
	mu         sync.Mutex
	nextID     int64
	rows       map[string][]domain.ConversationRecord
	appendErr  error
	deleteErr  error
	recordsErr error
}

func newMemoryLog() *memoryLog {
	return &memoryLog{rows: make(map[string][]domain.ConversationRecord)}
}

func bucket(userID string) string {
	if userID == "" || strings.TrimLeft(userID, "0123456789") != "" {
		return "<null>"
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return "<null>"
	}
	return strconv.FormatInt(id, 10)
}

func (l *memoryLog) Append(_ context.Context, userID string, record domain.ConversationRecord) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return 0, l.appendErr
	}
	l.nextID++
	record.ID = l.nextID
	l.rows[bucket(userID)] = append(l.rows[bucket(userID)], record)
	return l.nextID, nil
}

func (l *memoryLog) DeleteRecords(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deleteErr != nil {
		return l.deleteErr
	}
	delete(l.rows, bucket(userID))
	return nil
}

func (l *memoryLog) Records(_ context.Context, userID string) ([]domain.ConversationRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.recordsErr != nil {
		return nil, l.recordsErr
	}
	out := append([]domain.ConversationRecord(nil), l.rows[bucket(userID)]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type failingCollector struct{ *intro.MemoryCollector }

func (failingCollector) Collect(context.Context, string, string) error { return errCollaborator }

type fixture struct {
	fsm       state.StateMachine
	collector IntroCollector
	intros    *mockIntroAnalyzer
	bank      *mockQuestionBank
	answers   *mockAnswerAnalyzer
	summaries *mockSummarizer
	convlog   *memoryLog
	texts     i18n.Translator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return &fixture{
		fsm:       state.NewStateMachine(state.NewMemoryStorage(), testLogger()),
		collector: intro.NewMemoryCollector(),
		intros:    &mockIntroAnalyzer{},
		bank:      &mockQuestionBank{},
		answers:   &mockAnswerAnalyzer{},
		summaries: &mockSummarizer{},
		convlog:   newMemoryLog(),
		texts:     i18n.MustLoad(i18n.DefaultLang).Translator(i18n.DefaultLang),
	}
}

func (f *fixture) collaborators() Collaborators {
	return Collaborators{
		Collector:      f.collector,
		IntroAnalyzer:  f.intros,
		QuestionBank:   f.bank,
		AnswerAnalyzer: f.answers,
		Summarizer:     f.summaries,
		Log:            f.convlog,
	}
}

func (f *fixture) processor() *Processor {
	return NewProcessor(f.fsm, f.collaborators(), f.texts, testLogger())
}

func (f *fixture) service() *Service {
	return NewService(f.fsm, state.NewLocalLocker(), f.collaborators(), f.texts, testLogger())
}

func (f *fixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.intros.AssertExpectations(t)
	f.bank.AssertExpectations(t)
	f.answers.AssertExpectations(t)
	f.summaries.AssertExpectations(t)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
