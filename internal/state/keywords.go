package state

import "strings"

// Keywords is a set of trigger phrases compared case-insensitively.
type Keywords []string

var (
	// StartKeywords begin an interview from the waiting state.
	StartKeywords = Keywords{"開始面試", "開始", "start_interview", "開始練習", "準備好了", "可以開始了"}
	// IntroDoneKeywords end the self-introduction. Only whole messages count.
	IntroDoneKeywords = Keywords{"介紹完了", "介紹完成", "我說完了", "說完了", "完成介紹", "結束介紹"}
	// BeginQuestioningKeywords move from intro analysis to questions.
	BeginQuestioningKeywords = Keywords{"開始面試", "開始問答", "進入面試", "開始提問", "給我問題"}
	// ExitKeywords finish the interview while questions are running.
	ExitKeywords = Keywords{"退出", "結束", "完成", "不想繼續", "停止"}
	// RestartKeywords return any state to waiting.
	RestartKeywords = Keywords{"重新開始", "重新來過", "重新面試", "重來"}
)

// ContainedIn reports whether any keyword occurs inside message.
func (k Keywords) ContainedIn(message string) bool {
	msg := strings.ToLower(message)
	for _, kw := range k {
		if strings.Contains(msg, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Equals reports whether the trimmed message is exactly one of the keywords.
func (k Keywords) Equals(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, kw := range k {
		if msg == strings.ToLower(kw) {
			return true
		}
	}
	return false
}
