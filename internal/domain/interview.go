package domain

import "time"

// Question is an interview question issued to a user. It is immutable once issued.
type Question struct {
	Question       string `json:"question"`
	StandardAnswer string `json:"standard_answer"`
	Category       string `json:"category,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	Source         string `json:"source,omitempty"`
}

// AnalysisResult is returned by the intro and answer analyzers.
type AnalysisResult struct {
	Success bool
	Result  string
}

// QuestionResult is returned by the question bank. Result carries a
// pre-rendered presentation of the question, or a failure description.
type QuestionResult struct {
	Success  bool
	Question Question
	Result   string
}

// ConversationRecord is one stored exchange between the user and the coach.
type ConversationRecord struct {
	ID          int64     `json:"-"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	State       string    `json:"current_state"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"-"`
}
