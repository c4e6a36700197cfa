package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/perchd/perch/internal/ai"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/store"
)

// Outcome is the terminal result of an executed command. Confirmation is
// the message shown to the user in place of an AI answer.
type Outcome struct {
	Confirmation        string
	CameraPromptChanged bool
	RoleChanged         bool
}

// Runner executes matched intents against the directive and settings
// stores. Feedback refinement issues its own lightweight AI call.
type Runner struct {
	directives *store.DirectiveStore
	settings   *store.SettingsStore
	chats      *store.ChatStore
	backend    ai.Backend
	logger     *slog.Logger
}

func NewRunner(directives *store.DirectiveStore, settings *store.SettingsStore, chats *store.ChatStore, backend ai.Backend, logger *slog.Logger) *Runner {
	return &Runner{
		directives: directives,
		settings:   settings,
		chats:      chats,
		backend:    backend,
		logger:     logger,
	}
}

// Execute applies the intent for (user, device). A nil Outcome with nil
// error means the command declined to handle the turn and it should fall
// through to normal AI chat (currently only feedback on a device with no
// directive).
//
// replyTo optionally names the message the feedback refers to; when empty,
// the most recent AI answer for the pair substitutes. That fallback is a
// bounded best-effort heuristic, not a guarantee the right message is found.
func (r *Runner) Execute(ctx context.Context, userID string, device *model.Device, intent Intent, replyTo []string) (*Outcome, error) {
	switch intent.Kind {
	case KindFeedback:
		return r.applyFeedback(ctx, userID, device, intent.Instruction, replyTo)
	case KindMonitorFocus:
		return r.applyFocus(userID, device, intent.Instruction)
	case KindRoleChange:
		return r.applyRole(userID, device, intent.Instruction)
	case KindRoleReset:
		return r.applyReset(userID, device)
	default:
		return nil, fmt.Errorf("unknown intent kind %d", intent.Kind)
	}
}

func (r *Runner) applyFocus(userID string, device *model.Device, instructions string) (*Outcome, error) {
	directive := &model.MonitoringDirective{
		UserID:       userID,
		DeviceID:     device.ID,
		Instructions: instructions,
		SystemPrompt: DirectivePrompt(device.Name, instructions),
	}
	if err := r.directives.Upsert(directive); err != nil {
		return nil, fmt.Errorf("store directive: %w", err)
	}

	r.logger.Info("monitoring directive updated", "user_id", userID, "device_id", device.ID)
	return &Outcome{
		Confirmation:        fmt.Sprintf("Got it. %s will now watch for %s. I'll notify you when I see it.", device.Name, instructions),
		CameraPromptChanged: true,
	}, nil
}

func (r *Runner) applyFeedback(ctx context.Context, userID string, device *model.Device, feedback string, replyTo []string) (*Outcome, error) {
	directive, err := r.directives.Get(userID, device.ID)
	if err != nil {
		return nil, err
	}
	if directive == nil {
		// Nothing to correct; likely an ordinary question that happened to
		// contain a cue word. Let normal chat answer it.
		return nil, nil
	}

	answer := r.feedbackContext(userID, device.ID, replyTo)

	prompt := fmt.Sprintf(
		"Current monitoring instructions: %s\n\nAI's recent answer: %s\n\nUser feedback: %s",
		directive.Instructions, answer, feedback,
	)
	refined, err := r.backend.Complete(ctx, ai.Request{
		SystemPrompt: feedbackRefinePrompt,
		Model:        ai.DefaultModel,
		Text:         prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("refine directive: %w", err)
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		refined = directive.Instructions
	}

	directive.Instructions = refined
	directive.SystemPrompt = DirectivePrompt(device.Name, refined)
	if err := r.directives.Upsert(directive); err != nil {
		return nil, fmt.Errorf("store refined directive: %w", err)
	}

	r.logger.Info("monitoring directive refined from feedback", "user_id", userID, "device_id", device.ID)
	return &Outcome{
		Confirmation:        fmt.Sprintf("Thanks for the correction. I've adjusted what %s watches for: %s", device.Name, refined),
		CameraPromptChanged: true,
	}, nil
}

// feedbackContext resolves the AI answer the feedback refers to. Explicit
// references win; otherwise the newest AI message for the pair is used.
func (r *Runner) feedbackContext(userID, deviceID string, replyTo []string) string {
	if len(replyTo) > 0 {
		if msg, err := r.chats.GetByID(replyTo[0]); err == nil && msg != nil {
			return msg.Message
		}
	}
	msg, err := r.chats.LatestAISender(userID, deviceID)
	if err != nil || msg == nil {
		return "(no previous answer available)"
	}
	return msg.Message
}

func (r *Runner) applyRole(userID string, device *model.Device, role string) (*Outcome, error) {
	settings := &model.ChatSettings{
		UserID:        userID,
		DeviceID:      device.ID,
		RoleName:      role,
		SystemMessage: rolePrompt(role),
		Instructions:  role,
	}
	if err := r.settings.Upsert(settings); err != nil {
		return nil, fmt.Errorf("store chat settings: %w", err)
	}

	r.logger.Info("chat role updated", "user_id", userID, "device_id", device.ID)
	return &Outcome{
		Confirmation: fmt.Sprintf("Understood, from now on I'll respond as %s for %s.", role, device.Name),
		RoleChanged:  true,
	}, nil
}

// applyReset clears the role override and, when one exists, the monitoring
// directive. Reset is the only path that deletes a directive.
func (r *Runner) applyReset(userID string, device *model.Device) (*Outcome, error) {
	if err := r.settings.Delete(userID, device.ID); err != nil {
		return nil, fmt.Errorf("reset chat settings: %w", err)
	}

	directive, err := r.directives.Get(userID, device.ID)
	if err != nil {
		return nil, err
	}
	cleared := directive != nil
	if cleared {
		if err := r.directives.Delete(userID, device.ID); err != nil {
			return nil, fmt.Errorf("clear monitoring directive: %w", err)
		}
	}

	personality := ai.PersonalityFor(device.Type)
	r.logger.Info("chat role reset", "user_id", userID, "device_id", device.ID, "directive_cleared", cleared)
	confirmation := fmt.Sprintf("Done, I'm back to being your %s for %s.", personality.RoleName, device.Name)
	if cleared {
		confirmation += " Special monitoring is off."
	}
	return &Outcome{
		Confirmation:        confirmation,
		RoleChanged:         true,
		CameraPromptChanged: cleared,
	}, nil
}
