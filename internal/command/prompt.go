package command

import "fmt"

// RoutineMarker is the phrase the monitoring prompt instructs the model to
// emit when nothing noteworthy is happening. Its presence in an answer
// suppresses the push notification for that turn.
const RoutineMarker = "no significant activity"

// DirectivePrompt deterministically generates the system-prompt text for a
// monitoring directive. Calling it twice with the same inputs yields the
// same text, so directive updates are idempotent.
func DirectivePrompt(deviceName, instructions string) string {
	return fmt.Sprintf(
		"You are monitoring %s. Watch specifically for: %s. "+
			"When you observe activity matching these instructions, describe what you see clearly and concisely, and state why it matters. "+
			"If nothing matching the instructions is happening, include the phrase %q in your answer.",
		deviceName, instructions, RoutineMarker,
	)
}

// rolePrompt generates the system message for an ad-hoc role override.
func rolePrompt(role string) string {
	return fmt.Sprintf(
		"You are %s, answering on behalf of a smart device. Stay in this role throughout the conversation.",
		role,
	)
}

// feedbackRefinePrompt is the system prompt for the lightweight refinement
// call. Its sole output is the replacement instruction string.
const feedbackRefinePrompt = "You are tuning the monitoring instructions of a smart-device AI based on a user's correction. " +
	"You will receive the current monitoring instructions, the AI's most recent answer, and the user's feedback on it. " +
	"Produce an improved version of the monitoring instructions that incorporates the correction. " +
	"Reply with ONLY the new instruction text, a single line, no preamble and no quotation marks."
