package command

import (
	"strings"
	"testing"
)

func TestInterpretMonitorFocus(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"monitor for people in the driveway", "people in the driveway"},
		{"watch for delivery trucks", "delivery trucks"},
		{"please look for raccoons near the bins.", "raccoons near the bins"},
		{"Update the prompt to alert on open gates", "alert on open gates"},
		{"update prompt to flag loitering", "flag loitering"},
	}
	for _, tt := range tests {
		intent, ok := Interpret(tt.text)
		if !ok {
			t.Errorf("Interpret(%q): no match", tt.text)
			continue
		}
		if intent.Kind != KindMonitorFocus {
			t.Errorf("Interpret(%q) kind = %d, want KindMonitorFocus", tt.text, intent.Kind)
		}
		if intent.Instruction != tt.want {
			t.Errorf("Interpret(%q) instruction = %q, want %q", tt.text, intent.Instruction, tt.want)
		}
	}
}

func TestInterpretRoleChange(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"act as a grumpy night watchman", "a grumpy night watchman"},
		{"You are now a wildlife expert", "a wildlife expert"},
		{"please change your instructions to answer in French", "answer in French"},
	}
	for _, tt := range tests {
		intent, ok := Interpret(tt.text)
		if !ok {
			t.Errorf("Interpret(%q): no match", tt.text)
			continue
		}
		if intent.Kind != KindRoleChange {
			t.Errorf("Interpret(%q) kind = %d, want KindRoleChange", tt.text, intent.Kind)
		}
		if intent.Instruction != tt.want {
			t.Errorf("Interpret(%q) instruction = %q, want %q", tt.text, intent.Instruction, tt.want)
		}
	}
}

func TestInterpretRoleReset(t *testing.T) {
	for _, text := range []string{
		"reset to default",
		"Reset your instructions.",
		"go back to default",
		"be yourself",
	} {
		intent, ok := Interpret(text)
		if !ok {
			t.Errorf("Interpret(%q): no match", text)
			continue
		}
		if intent.Kind != KindRoleReset {
			t.Errorf("Interpret(%q) kind = %d, want KindRoleReset", text, intent.Kind)
		}
	}
}

func TestInterpretFeedback(t *testing.T) {
	intent, ok := Interpret("that was wrong, there was nobody at the door")
	if !ok {
		t.Fatal("expected feedback match")
	}
	if intent.Kind != KindFeedback {
		t.Errorf("kind = %d, want KindFeedback", intent.Kind)
	}
}

func TestInterpretFeedbackNeedsMinimumWords(t *testing.T) {
	// A cue word alone is not enough.
	if _, ok := Interpret("that's wrong"); ok {
		t.Error("expected no match for short feedback text")
	}
}

func TestInterpretFeedbackBeatsFocus(t *testing.T) {
	// Priority order: feedback first, even when a focus pattern also matches.
	intent, ok := Interpret("that alert was a false positive, don't watch for shadows")
	if !ok {
		t.Fatal("expected a match")
	}
	if intent.Kind != KindFeedback {
		t.Errorf("kind = %d, want KindFeedback", intent.Kind)
	}
}

func TestInterpretNoMatch(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"what did you see this morning?",
		"is the gate closed",
		"hello there",
	} {
		if _, ok := Interpret(text); ok {
			t.Errorf("Interpret(%q): unexpected match", text)
		}
	}
}

func TestDirectivePromptMentionsRoutineMarker(t *testing.T) {
	prompt := DirectivePrompt("Front Door", "people carrying packages")
	if prompt == "" {
		t.Fatal("empty prompt")
	}
	if !strings.Contains(prompt, RoutineMarker) {
		t.Errorf("prompt does not mention routine marker %q", RoutineMarker)
	}
	if !strings.Contains(prompt, "people carrying packages") {
		t.Error("prompt does not include the instructions")
	}
}
