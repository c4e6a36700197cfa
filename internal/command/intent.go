// Package command recognizes control-plane utterances in inbound chat text
// and executes them, so device reconfiguration never reaches the AI backend.
package command

import (
	"regexp"
	"strings"
)

// Kind identifies a recognized intent.
type Kind int

const (
	// KindFeedback is corrective feedback on a previous AI answer.
	KindFeedback Kind = iota
	// KindMonitorFocus changes what the device's AI watches for.
	KindMonitorFocus
	// KindRoleChange overrides the AI role or instructions.
	KindRoleChange
	// KindRoleReset restores the built-in personality.
	KindRoleReset
)

// Intent is the result of matching inbound text against the known command
// patterns. Instruction holds the captured free-text portion where the
// pattern has one.
type Intent struct {
	Kind        Kind
	Instruction string
}

// feedbackCues are lexical signals of a correction. A cue alone is not
// enough: the text must also clear the minimum word count, and the runner
// additionally requires an existing monitoring directive, so ordinary
// questions containing "wrong" fall through to normal chat.
var feedbackCues = []string{
	"wrong",
	"false positive",
	"false alarm",
	"shouldn't",
	"should not",
	"incorrect",
	"not correct",
	"mistake",
	"missed",
}

const feedbackMinWords = 5

var focusPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:monitor|watch|look)\s+for\s+(.+)$`),
	regexp.MustCompile(`(?i)\bupdate\s+(?:the\s+)?prompt\s+to\s+(.+)$`),
}

var rolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^act\s+as\s+(.+)$`),
	regexp.MustCompile(`(?i)^you\s+are\s+now\s+(.+)$`),
	regexp.MustCompile(`(?i)\bchange\s+your\s+instructions\s+to\s+(.+)$`),
}

var resetPhrases = []string{
	"reset to default",
	"reset your instructions",
	"reset instructions",
	"go back to default",
	"be yourself",
}

// Interpret matches text against the command patterns in fixed priority
// order: corrective feedback, then monitoring focus, then role change.
// First match wins regardless of match length. It is a pure function with
// no storage or network dependency.
func Interpret(text string) (Intent, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Intent{}, false
	}
	lower := strings.ToLower(trimmed)

	if isFeedback(lower) {
		return Intent{Kind: KindFeedback, Instruction: trimmed}, true
	}

	for _, re := range focusPatterns {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return Intent{Kind: KindMonitorFocus, Instruction: cleanCapture(m[1])}, true
		}
	}

	if isReset(lower) {
		return Intent{Kind: KindRoleReset}, true
	}
	for _, re := range rolePatterns {
		if m := re.FindStringSubmatch(trimmed); m != nil {
			return Intent{Kind: KindRoleChange, Instruction: cleanCapture(m[1])}, true
		}
	}

	return Intent{}, false
}

func isFeedback(lower string) bool {
	if len(strings.Fields(lower)) < feedbackMinWords {
		return false
	}
	for _, cue := range feedbackCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

func isReset(lower string) bool {
	stripped := strings.TrimRight(lower, " .!?")
	for _, phrase := range resetPhrases {
		if stripped == phrase {
			return true
		}
	}
	return false
}

func cleanCapture(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), " .!?")
}
