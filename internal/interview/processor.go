package interview

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Proton-105/interview-coach/internal/i18n"
	"github.com/Proton-105/interview-coach/internal/state"
	"github.com/Proton-105/interview-coach/pkg/metrics"
)

var (
	// questionRequestKeywords ask for a new question while questioning.
	questionRequestKeywords = state.Keywords{"請給我問題", "開始問答", "開始面試", "下一題", "下一個問題", "給我問題"}
	// completedRestartKeywords are recognised after the interview ended.
	completedRestartKeywords = append(append(state.Keywords{}, state.RestartKeywords...), "restart")
)

type stateHandler func(ctx context.Context, userID, message string) (string, error)

// Processor produces the response to a message in the user's current state.
// It returns an error only when the state store fails; collaborator failures
// become response text.
type Processor struct {
	fsm       state.StateMachine
	collector IntroCollector
	intros    IntroAnalyzer
	questions QuestionBank
	answers   AnswerAnalyzer
	texts     i18n.Translator
	log       *slog.Logger
	handlers  map[state.State]stateHandler
}

// NewProcessor wires the per-state handlers.
func NewProcessor(fsm state.StateMachine, c Collaborators, texts i18n.Translator, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}

	p := &Processor{
		fsm:       fsm,
		collector: c.Collector,
		intros:    c.IntroAnalyzer,
		questions: c.QuestionBank,
		answers:   c.AnswerAnalyzer,
		texts:     texts,
		log:       log,
	}
	p.handlers = map[state.State]stateHandler{
		state.StateWaiting:       p.handleWaiting,
		state.StateIntro:         p.handleIntro,
		state.StateIntroAnalysis: p.handleIntroAnalysis,
		state.StateQuestioning:   p.handleQuestioning,
		state.StateCompleted:     p.handleCompleted,
	}

	return p
}

// Process dispatches on the given state.
func (p *Processor) Process(ctx context.Context, message string, current state.State, userID string) (string, error) {
	handler, ok := p.handlers[current]
	if !ok {
		p.log.Warn("message received in unknown state", slog.String("user_id", userID), slog.String("state", string(current)))
		return p.texts.T("interview.unknown_state"), nil
	}

	return handler(ctx, userID, message)
}

func (p *Processor) handleWaiting(_ context.Context, _, message string) (string, error) {
	if state.StartKeywords.ContainedIn(message) {
		return p.texts.T("interview.waiting.onboarding"), nil
	}
	return p.texts.T("interview.waiting.welcome"), nil
}

func (p *Processor) handleIntro(ctx context.Context, userID, message string) (string, error) {
	switch {
	case state.StartKeywords.ContainedIn(message):
		return p.texts.T("interview.intro.guidance"), nil
	case state.IntroDoneKeywords.Equals(message):
		return p.texts.T("interview.intro.done"), nil
	}

	// Collection is best effort: a lost fragment must not fail the exchange.
	if err := p.collector.Collect(ctx, userID, message); err != nil {
		metrics.RecordCollaboratorCall("intro_collector", "error")
		p.log.Warn("failed to collect intro fragment", slog.String("user_id", userID), slog.Any("error", err))
	}

	return p.texts.T("interview.intro.collected"), nil
}

func (p *Processor) handleIntroAnalysis(ctx context.Context, userID, message string) (string, error) {
	collected, err := p.collector.Collected(ctx, userID)
	if err != nil {
		p.log.Warn("failed to read collected intro", slog.String("user_id", userID), slog.Any("error", err))
		collected = ""
	}

	text := strings.TrimSpace(collected)
	if text == "" {
		text = strings.TrimSpace(message)
	}
	if text == "" {
		return p.texts.T("interview.analysis.empty"), nil
	}

	result, err := p.intros.AnalyzeIntro(ctx, userID, text)
	if err != nil {
		metrics.RecordCollaboratorCall("intro_analyzer", "error")
		p.log.Error("intro analysis failed", slog.String("user_id", userID), slog.Any("error", err))
		return p.texts.Tf("interview.analysis.failed", err), nil
	}

	// Any completed analysis, successful or not, advances to questioning.
	if err := p.fsm.ForceState(ctx, userID, state.StateQuestioning); err != nil {
		return "", err
	}

	if result == nil || !result.Success {
		metrics.RecordCollaboratorCall("intro_analyzer", "unsuccessful")
		if result == nil || result.Result == "" {
			return p.texts.T("interview.analysis.default_result"), nil
		}
		return result.Result, nil
	}

	metrics.RecordCollaboratorCall("intro_analyzer", "ok")
	analysis := result.Result
	if analysis == "" {
		analysis = p.texts.T("interview.analysis.default_result")
	}
	return analysis + p.texts.T("interview.analysis.guidance"), nil
}

func (p *Processor) handleQuestioning(ctx context.Context, userID, message string) (string, error) {
	if questionRequestKeywords.ContainedIn(message) {
		return p.nextQuestion(ctx, userID)
	}

	session, err := p.fsm.Session(ctx, userID)
	if err != nil {
		return "", err
	}

	question := session.CurrentQuestion
	if question == nil || question.Question == "" {
		return p.texts.T("interview.questioning.no_question"), nil
	}

	result, err := p.answers.AnalyzeAnswer(ctx, message, question.Question, question.StandardAnswer)
	if err != nil {
		metrics.RecordCollaboratorCall("answer_analyzer", "error")
		p.log.Error("answer analysis failed", slog.String("user_id", userID), slog.Any("error", err))
		return p.texts.Tf("interview.questioning.analysis_failed", err), nil
	}

	if result == nil || result.Result == "" {
		metrics.RecordCollaboratorCall("answer_analyzer", "unsuccessful")
		return p.texts.T("interview.questioning.default_analysis"), nil
	}

	if result.Success {
		metrics.RecordCollaboratorCall("answer_analyzer", "ok")
	} else {
		metrics.RecordCollaboratorCall("answer_analyzer", "unsuccessful")
	}
	return result.Result, nil
}

func (p *Processor) nextQuestion(ctx context.Context, userID string) (string, error) {
	result, err := p.questions.NextQuestion(ctx)
	if err != nil {
		metrics.RecordCollaboratorCall("question_bank", "error")
		p.log.Error("question fetch failed", slog.String("user_id", userID), slog.Any("error", err))
		return p.texts.Tf("interview.questioning.fetch_failed", err), nil
	}
	if result == nil || !result.Success {
		metrics.RecordCollaboratorCall("question_bank", "unsuccessful")
		return p.texts.T("interview.questioning.unavailable"), nil
	}
	metrics.RecordCollaboratorCall("question_bank", "ok")

	if err := p.fsm.SetCurrentQuestion(ctx, userID, result.Question); err != nil {
		return "", err
	}

	if result.Result != "" {
		return result.Result, nil
	}

	category := result.Question.Category
	if category == "" {
		category = p.texts.T("interview.questioning.default_category")
	}
	difficulty := result.Question.Difficulty
	if difficulty == "" {
		difficulty = p.texts.T("interview.questioning.default_difficulty")
	}

	return p.texts.Tf("interview.questioning.question", category, difficulty, result.Question.Question), nil
}

func (p *Processor) handleCompleted(_ context.Context, _, message string) (string, error) {
	if completedRestartKeywords.ContainedIn(message) {
		return p.texts.T("interview.completed.restart"), nil
	}
	return p.texts.T("interview.completed.summary"), nil
}
