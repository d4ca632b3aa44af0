package state

// MatchMode selects how a rule's keywords are compared with the message.
type MatchMode int

const (
	// MatchSubstring fires when any keyword occurs inside the message.
	MatchSubstring MatchMode = iota
	// MatchExact fires only when the whole message equals a keyword.
	MatchExact
)

// Rule is one keyword-triggered edge of the interview graph.
type Rule struct {
	From     State
	To       State
	Keywords Keywords
	Mode     MatchMode
}

func (r Rule) matches(message string) bool {
	if r.Mode == MatchExact {
		return r.Keywords.Equals(message)
	}
	return r.Keywords.ContainedIn(message)
}

// transitionRules lists the state-specific edges, evaluated in order.
var transitionRules = []Rule{
	{From: StateWaiting, To: StateIntro, Keywords: StartKeywords, Mode: MatchSubstring},
	{From: StateIntro, To: StateIntroAnalysis, Keywords: IntroDoneKeywords, Mode: MatchExact},
	{From: StateIntroAnalysis, To: StateQuestioning, Keywords: BeginQuestioningKeywords, Mode: MatchSubstring},
	{From: StateQuestioning, To: StateCompleted, Keywords: ExitKeywords, Mode: MatchSubstring},
}

// restartRule applies from every state but waiting and takes precedence over
// the table. In waiting the table is consulted instead.
var restartRule = Rule{To: StateWaiting, Keywords: RestartKeywords, Mode: MatchSubstring}

// Rules returns a copy of the state-specific transition table.
func Rules() []Rule {
	out := make([]Rule, len(transitionRules))
	copy(out, transitionRules)
	return out
}

// NextState evaluates the transition table for a message received in the
// current state. The boolean is false when no transition fires, including
// when the matching rule points at the current state.
func NextState(current State, message string) (State, bool) {
	if current != StateWaiting && restartRule.matches(message) {
		return StateWaiting, true
	}

	for _, rule := range transitionRules {
		if rule.From != current || !rule.matches(message) {
			continue
		}
		if rule.To == current {
			return current, false
		}
		return rule.To, true
	}

	return current, false
}
