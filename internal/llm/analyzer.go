package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Proton-105/interview-coach/internal/domain"
	"github.com/Proton-105/interview-coach/internal/i18n"
)

// Analyzer reviews introductions and answers and writes interview summaries.
type Analyzer struct {
	client *Client
	texts  i18n.Translator
	log    *slog.Logger
}

// NewAnalyzer creates an Analyzer that renders its results with texts.
func NewAnalyzer(client *Client, texts i18n.Translator, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}

	return &Analyzer{
		client: client,
		texts:  texts,
		log:    log,
	}
}

// AnalyzeIntro evaluates a self-introduction against the six intro criteria.
func (a *Analyzer) AnalyzeIntro(ctx context.Context, userID, text string) (*domain.AnalysisResult, error) {
	content, err := a.client.Complete(ctx, "intro_analyzer", introSystemPrompt, "以下是求職者的自我介紹：\n\n"+text)
	if err != nil {
		return nil, err
	}

	if content == "" {
		a.log.Warn("empty intro analysis", slog.String("user_id", userID))
		return &domain.AnalysisResult{Success: false, Result: a.texts.T("llm.empty")}, nil
	}

	return &domain.AnalysisResult{
		Success: true,
		Result:  a.texts.T("llm.intro.header") + "\n\n" + content,
	}, nil
}

type answerReport struct {
	Score       float64  `json:"score"`
	Grade       string   `json:"grade"`
	Similarity  percent  `json:"similarity"`
	Feedback    string   `json:"feedback"`
	Differences []string `json:"differences"`
}

// AnalyzeAnswer grades an answer against the reference answer of question.
func (a *Analyzer) AnalyzeAnswer(ctx context.Context, answer, question, standardAnswer string) (*domain.AnalysisResult, error) {
	reference := strings.TrimSpace(standardAnswer)
	if reference == "" {
		reference = "（未提供）"
	}

	prompt := fmt.Sprintf("題目：%s\n\n標準答案：%s\n\n求職者回答：%s", question, reference, answer)

	content, err := a.client.Complete(ctx, "answer_analyzer", answerSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var report answerReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		a.log.Warn("unparsable answer analysis", slog.Any("error", err))
		return &domain.AnalysisResult{Success: false, Result: a.texts.Tf("llm.answer.unparsable", content)}, nil
	}

	return &domain.AnalysisResult{Success: true, Result: a.renderAnswer(report, standardAnswer)}, nil
}

func (a *Analyzer) renderAnswer(r answerReport, standardAnswer string) string {
	var b strings.Builder
	b.WriteString(a.texts.Tf("llm.answer.report", r.Score, r.Grade, float64(r.Similarity), r.Feedback))

	if len(r.Differences) > 0 {
		b.WriteString("\n\n")
		b.WriteString(a.texts.T("llm.answer.differences"))
		for _, d := range r.Differences {
			b.WriteString("\n- ")
			b.WriteString(d)
		}
	}

	if s := strings.TrimSpace(standardAnswer); s != "" {
		b.WriteString("\n\n")
		b.WriteString(a.texts.Tf("llm.answer.standard_answer", s))
	}

	return b.String()
}

type summaryReport struct {
	Overview          string   `json:"overview"`
	Grade             string   `json:"grade"`
	Highlights        []string `json:"highlights"`
	Gaps              []string `json:"gaps"`
	PracticeChecklist []string `json:"practice_checklist"`
	CTA               string   `json:"cta"`
}

type historyItem struct {
	State string `json:"state"`
	User  string `json:"user"`
	Coach string `json:"coach"`
}

// Summarize writes the closing summary of an interview from its records.
func (a *Analyzer) Summarize(ctx context.Context, records []domain.ConversationRecord) (*domain.AnalysisResult, error) {
	if len(records) == 0 {
		return &domain.AnalysisResult{Success: false, Result: a.texts.T("interview.summary.empty")}, nil
	}

	history := make([]historyItem, 0, len(records))
	for _, r := range records {
		history = append(history, historyItem{State: r.State, User: r.UserMessage, Coach: r.AIResponse})
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("marshal summary history: %w", err)
	}

	content, err := a.client.Complete(ctx, "summarizer", summarySystemPrompt,
		"以下是一次面試會話的歷史，請生成結構化總結：\n\n"+string(payload))
	if err != nil {
		return nil, err
	}

	var report summaryReport
	if err := json.Unmarshal([]byte(extractJSON(content)), &report); err != nil {
		// The closing lines are still useful without the model's insights.
		a.log.Warn("unparsable summary, using minimal structure", slog.Any("error", err))
		report = summaryReport{}
	}

	return &domain.AnalysisResult{Success: true, Result: a.renderSummary(report)}, nil
}

func (a *Analyzer) renderSummary(r summaryReport) string {
	lines := []string{a.texts.T("llm.summary.header")}

	if r.Overview != "" {
		lines = append(lines, a.texts.Tf("llm.summary.overview", r.Overview))
	}
	if r.Grade != "" {
		lines = append(lines, a.texts.Tf("llm.summary.grade", r.Grade))
	}

	section := func(key string, items []string, limit int) {
		if len(items) == 0 {
			return
		}
		if len(items) > limit {
			items = items[:limit]
		}
		lines = append(lines, "", a.texts.T(key))
		for _, item := range items {
			lines = append(lines, "- "+item)
		}
	}
	section("llm.summary.highlights", r.Highlights, 3)
	section("llm.summary.gaps", r.Gaps, 3)
	section("llm.summary.practice", r.PracticeChecklist, 5)

	if r.CTA != "" {
		lines = append(lines, "", r.CTA)
	}
	lines = append(lines, "", a.texts.T("llm.summary.closing"))

	return strings.Join(lines, "\n")
}

// extractJSON returns the outermost JSON object in s, since models sometimes
// wrap it in prose or code fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// percent accepts 80, 0.8, "80" and "80%" as the same value.
type percent float64

func (p *percent) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	s = strings.Trim(s, `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	if s == "" || s == "null" {
		*p = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("similarity %q: %w", s, err)
	}
	if v > 0 && v <= 1 {
		v *= 100
	}

	*p = percent(v)
	return nil
}

// Disabled stands in for the analyzers when OpenAI is not configured.
type Disabled struct {
	texts i18n.Translator
}

func NewDisabled(texts i18n.Translator) Disabled {
	return Disabled{texts: texts}
}

func (d Disabled) result() *domain.AnalysisResult {
	return &domain.AnalysisResult{Success: false, Result: d.texts.T("llm.disabled")}
}

func (d Disabled) AnalyzeIntro(context.Context, string, string) (*domain.AnalysisResult, error) {
	return d.result(), nil
}

func (d Disabled) AnalyzeAnswer(context.Context, string, string, string) (*domain.AnalysisResult, error) {
	return d.result(), nil
}

func (d Disabled) Summarize(context.Context, []domain.ConversationRecord) (*domain.AnalysisResult, error) {
	return d.result(), nil
}
