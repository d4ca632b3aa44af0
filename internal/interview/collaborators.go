// Package interview implements the mock interview flow: message handling
// per state, reset, and the conversation log bookkeeping around them.
package interview

import (
	"context"

	"github.com/Proton-105/interview-coach/internal/domain"
)

// IntroCollector accumulates the user's self-introduction across messages.
type IntroCollector interface {
	Collect(ctx context.Context, userID, message string) error
	Collected(ctx context.Context, userID string) (string, error)
	Clear(ctx context.Context, userID string) error
}

// IntroAnalyzer reviews a complete self-introduction.
type IntroAnalyzer interface {
	AnalyzeIntro(ctx context.Context, userID, text string) (*domain.AnalysisResult, error)
}

// QuestionBank hands out interview questions.
type QuestionBank interface {
	NextQuestion(ctx context.Context) (*domain.QuestionResult, error)
}

// AnswerAnalyzer grades an answer against the question's reference answer.
type AnswerAnalyzer interface {
	AnalyzeAnswer(ctx context.Context, answer, question, standardAnswer string) (*domain.AnalysisResult, error)
}

// Summarizer writes the closing summary of an interview.
type Summarizer interface {
	Summarize(ctx context.Context, records []domain.ConversationRecord) (*domain.AnalysisResult, error)
}

// ConversationLog is the append-only history of exchanges.
type ConversationLog interface {
	// Append stores a record and returns its id.
	Append(ctx context.Context, userID string, record domain.ConversationRecord) (int64, error)
	// DeleteRecords removes every record addressed by userID.
	DeleteRecords(ctx context.Context, userID string) error
	// Records returns the records addressed by userID, oldest first.
	Records(ctx context.Context, userID string) ([]domain.ConversationRecord, error)
}

// Collaborators groups the dependencies injected into the Service.
type Collaborators struct {
	Collector      IntroCollector
	IntroAnalyzer  IntroAnalyzer
	QuestionBank   QuestionBank
	AnswerAnalyzer AnswerAnalyzer
	Summarizer     Summarizer
	Log            ConversationLog
}
