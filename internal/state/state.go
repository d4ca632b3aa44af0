package state

import (
	"time"

	"github.com/Proton-105/interview-coach/internal/domain"
)

// State represents a stage of the interview flow.
type State string

const (
	// StateWaiting indicates that the user has not started an interview yet.
	StateWaiting State = "waiting"
	// StateIntro indicates that the user is giving a self-introduction.
	StateIntro State = "intro"
	// StateIntroAnalysis indicates that the collected introduction is being analyzed.
	StateIntroAnalysis State = "intro_analysis"
	// StateQuestioning indicates that the user is answering interview questions.
	StateQuestioning State = "questioning"
	// StateCompleted indicates that the interview is over.
	StateCompleted State = "completed"
)

// All returns every interview state in flow order.
func All() []State {
	return []State{StateWaiting, StateIntro, StateIntroAnalysis, StateQuestioning, StateCompleted}
}

// IsValid reports whether s is one of the known interview states.
func (s State) IsValid() bool {
	switch s {
	case StateWaiting, StateIntro, StateIntroAnalysis, StateQuestioning, StateCompleted:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}

// Session captures the interview progress of a single user.
type Session struct {
	UserID          string           `json:"user_id"`
	State           State            `json:"state"`
	CurrentQuestion *domain.Question `json:"current_question,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewSession returns the implicit session of a user that has no stored entry.
func NewSession(userID string) *Session {
	return &Session{UserID: userID, State: StateWaiting}
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}

	copied := *s
	if s.CurrentQuestion != nil {
		q := *s.CurrentQuestion
		copied.CurrentQuestion = &q
	}
	return &copied
}
