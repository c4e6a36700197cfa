// Package chat orchestrates one conversation turn end to end: command
// interpretation, prompt assembly, the AI call, persistence, live events,
// and downstream notification.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perchd/perch/internal/ai"
	"github.com/perchd/perch/internal/command"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/notify"
	"github.com/perchd/perch/internal/prompt"
	"github.com/perchd/perch/internal/registry"
	"github.com/perchd/perch/internal/store"
)

// ErrDeviceNotFound is returned when the turn names a device that does not
// exist or belongs to another user.
var ErrDeviceNotFound = errors.New("device not found")

// aiFallbackFormat is the visible message body when the backend fails.
const aiFallbackFormat = "Sorry, I'm having trouble responding right now. Error: %v"

// TurnInput is one inbound user message.
type TurnInput struct {
	UserID      string
	DeviceID    string
	Text        string
	Attachments []model.Attachment
	MediaURLs   []string
	ReplyTo     []string
}

// AIResponse is the answering half of a turn result. Error is set when the
// message body is a synthetic failure explanation rather than an answer.
type AIResponse struct {
	Message   string    `json:"message"`
	MessageID string    `json:"message_id"`
	Error     bool      `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TurnResult is what the request layer gets back. Every turn produces one;
// there is no error path that leaves the caller without a result other than
// device lookup and the primary message write.
type TurnResult struct {
	MessageID           string      `json:"message_id"`
	AIResponse          *AIResponse `json:"ai_response"`
	CameraPromptChanged bool        `json:"camera_prompt_changed,omitempty"`
	RoleChanged         bool        `json:"role_changed,omitempty"`
}

// Coordinator runs chat turns. One instance serves all users; per-turn
// state lives on the stack. Turns for the same (user, device) are not
// serialized against each other; concurrent turns interleave and persist in
// completion order.
type Coordinator struct {
	devices    *store.DeviceStore
	chats      *store.ChatStore
	histories  *store.HistoryStore
	settings   *store.SettingsStore
	directives *store.DirectiveStore
	assembler  *prompt.Assembler
	backend    ai.Backend
	runner     *command.Runner
	registry   *registry.Registry
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

func NewCoordinator(
	devices *store.DeviceStore,
	chats *store.ChatStore,
	histories *store.HistoryStore,
	settings *store.SettingsStore,
	directives *store.DirectiveStore,
	assembler *prompt.Assembler,
	backend ai.Backend,
	runner *command.Runner,
	reg *registry.Registry,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		devices:    devices,
		chats:      chats,
		histories:  histories,
		settings:   settings,
		directives: directives,
		assembler:  assembler,
		backend:    backend,
		runner:     runner,
		registry:   reg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// HandleTurn processes one inbound message to a terminal state. Both
// ChatMessage writes are primary: a failed user or AI-side insert fails
// the turn. The AI call, history mirror, live event, and notification are
// each handled inside their own error boundary.
func (c *Coordinator) HandleTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	device, err := c.devices.GetByID(in.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("look up device: %w", err)
	}
	if device == nil || device.UserID != in.UserID {
		return nil, ErrDeviceNotFound
	}

	userMsg := &model.ChatMessage{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		DeviceID:    in.DeviceID,
		Message:     in.Text,
		Sender:      model.SenderUser,
		MediaURLs:   in.MediaURLs,
		Attachments: in.Attachments,
		ReplyTo:     in.ReplyTo,
		Timestamp:   time.Now().UTC(),
	}
	if err := c.chats.Insert(userMsg); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	c.registry.Send(ctx, in.UserID, map[string]any{
		"type":       "message_sent",
		"message_id": userMsg.ID,
		"device_id":  in.DeviceID,
	})

	if intent, ok := command.Interpret(in.Text); ok {
		result, handled, err := c.runCommand(ctx, in, device, userMsg, intent)
		if err != nil {
			return nil, err
		}
		if handled {
			return result, nil
		}
	}

	return c.runChat(ctx, in, device, userMsg)
}

// runCommand executes a matched intent. handled is false when the runner
// declines the turn and it should fall through to normal chat.
func (c *Coordinator) runCommand(ctx context.Context, in TurnInput, device *model.Device, userMsg *model.ChatMessage, intent command.Intent) (*TurnResult, bool, error) {
	outcome, err := c.runner.Execute(ctx, in.UserID, device, intent, in.ReplyTo)
	if err != nil {
		c.logger.Error("command execution failed", "user_id", in.UserID, "device_id", device.ID, "error", err)
		resp, ferr := c.finishTurn(ctx, in, userMsg, fmt.Sprintf(aiFallbackFormat, err), model.SenderAI, true)
		if ferr != nil {
			return nil, true, ferr
		}
		return &TurnResult{MessageID: userMsg.ID, AIResponse: resp}, true, nil
	}
	if outcome == nil {
		return nil, false, nil
	}

	resp, err := c.finishTurn(ctx, in, userMsg, outcome.Confirmation, model.SenderSystem, false)
	if err != nil {
		return nil, true, err
	}
	return &TurnResult{
		MessageID:           userMsg.ID,
		AIResponse:          resp,
		CameraPromptChanged: outcome.CameraPromptChanged,
		RoleChanged:         outcome.RoleChanged,
	}, true, nil
}

// runChat assembles the prompt, calls the backend once, and finishes the
// turn. A backend failure becomes a synthetic AI message with the error
// flag set; the turn still completes.
func (c *Coordinator) runChat(ctx context.Context, in TurnInput, device *model.Device, userMsg *model.ChatMessage) (*TurnResult, error) {
	references := c.resolveReferences(in.ReplyTo)
	assembled := c.assembler.Assemble(ctx, prompt.Input{
		Text:        in.Text,
		Attachments: in.Attachments,
		MediaURLs:   in.MediaURLs,
		References:  references,
	})

	systemPrompt, modelName := c.selectSession(in.UserID, device)
	if assembled.VisionRequired {
		modelName = ai.VisionModel
	}

	history, err := c.histories.Get(in.UserID, device.ID)
	if err != nil {
		c.logger.Warn("load chat history", "user_id", in.UserID, "device_id", device.ID, "error", err)
	}

	answer, err := c.backend.Complete(ctx, ai.Request{
		SystemPrompt: systemPrompt,
		Model:        modelName,
		History:      historyMessages(history),
		Text:         assembled.Text,
		Images:       assembled.Images,
	})
	if err != nil {
		c.logger.Error("ai completion failed", "user_id", in.UserID, "device_id", device.ID, "model", modelName, "error", err)
		resp, ferr := c.finishTurn(ctx, in, userMsg, fmt.Sprintf(aiFallbackFormat, err), model.SenderAI, true)
		if ferr != nil {
			return nil, ferr
		}
		return &TurnResult{MessageID: userMsg.ID, AIResponse: resp}, nil
	}

	resp, err := c.finishTurn(ctx, in, userMsg, answer, model.SenderAI, false)
	if err != nil {
		return nil, err
	}

	if assembled.VisionRequired && !strings.Contains(strings.ToLower(answer), command.RoutineMarker) {
		c.dispatcher.Dispatch(ctx, notify.Event{
			UserID:   in.UserID,
			DeviceID: device.ID,
			Type:     model.NotifTypeAlert,
			Title:    device.Name,
			Body:     answer,
			Image:    firstImageURL(in.MediaURLs),
			Data:     map[string]any{"message_id": resp.MessageID},
		})
	}

	return &TurnResult{MessageID: userMsg.ID, AIResponse: resp}, nil
}

// finishTurn persists the AI-side message, mirrors both turns into the
// rolling history, and pushes the live event. The message write is a
// primary write and its failure fails the turn; mirror and event failures
// are logged.
func (c *Coordinator) finishTurn(ctx context.Context, in TurnInput, userMsg *model.ChatMessage, answer, sender string, isError bool) (*AIResponse, error) {
	aiMsg := &model.ChatMessage{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		DeviceID:  in.DeviceID,
		Message:   answer,
		Sender:    sender,
		ReplyTo:   []string{userMsg.ID},
		Error:     isError,
		Timestamp: time.Now().UTC(),
	}
	if err := c.chats.Insert(aiMsg); err != nil {
		return nil, fmt.Errorf("store %s message: %w", sender, err)
	}

	err := c.histories.Append(in.UserID, in.DeviceID,
		model.HistoryEntry{ID: userMsg.ID, Message: userMsg.Message, Sender: model.SenderUser, Timestamp: userMsg.Timestamp},
		model.HistoryEntry{ID: aiMsg.ID, Message: aiMsg.Message, Sender: sender, Timestamp: aiMsg.Timestamp, AIResponse: true},
	)
	if err != nil {
		c.logger.Warn("append chat history", "user_id", in.UserID, "device_id", in.DeviceID, "error", err)
	}

	if isError {
		c.registry.Send(ctx, in.UserID, map[string]any{
			"type":      "ai_error",
			"device_id": in.DeviceID,
			"error":     answer,
		})
	} else {
		c.registry.Send(ctx, in.UserID, map[string]any{
			"type":       "ai_response",
			"device_id":  in.DeviceID,
			"message":    answer,
			"message_id": aiMsg.ID,
			"timestamp":  aiMsg.Timestamp.Format(time.RFC3339),
		})
	}

	return &AIResponse{
		Message:   answer,
		MessageID: aiMsg.ID,
		Error:     isError,
		Timestamp: aiMsg.Timestamp,
	}, nil
}

// SimulateDeviceEvent injects a device-originated event: the live
// connection gets the event frame, and message-type events are also stored
// as a device-sender chat message. Returns whether the live delivery
// reached a connection.
func (c *Coordinator) SimulateDeviceEvent(ctx context.Context, userID, deviceID, message, mediaURL, eventType string) (bool, error) {
	if eventType == "" {
		eventType = model.NotifTypeMessage
	}

	sent := c.registry.Send(ctx, userID, map[string]any{
		"type":      eventType,
		"device_id": deviceID,
		"content":   message,
		"media_url": mediaURL,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	if eventType == model.NotifTypeMessage {
		var urls []string
		if mediaURL != "" {
			urls = []string{mediaURL}
		}
		msg := &model.ChatMessage{
			ID:        uuid.NewString(),
			UserID:    userID,
			DeviceID:  deviceID,
			Message:   message,
			Sender:    model.SenderDevice,
			MediaURLs: urls,
			Timestamp: time.Now().UTC(),
		}
		if err := c.chats.Insert(msg); err != nil {
			return sent, fmt.Errorf("store device message: %w", err)
		}
	}

	return sent, nil
}

// selectSession picks the system prompt and model for the turn.
// Precedence: explicit chat settings, then the device personality
// augmented by any live monitoring directive, then the generic fallback
// built into PersonalityFor.
func (c *Coordinator) selectSession(userID string, device *model.Device) (systemPrompt, modelName string) {
	personality := ai.PersonalityFor(device.Type)
	systemPrompt = personality.SystemMessage
	modelName = personality.Model

	directive, err := c.directives.Get(userID, device.ID)
	if err != nil {
		c.logger.Warn("load monitoring directive", "user_id", userID, "device_id", device.ID, "error", err)
	} else if directive != nil && directive.SystemPrompt != "" {
		systemPrompt = systemPrompt + "\n\n" + directive.SystemPrompt
	}

	settings, err := c.settings.Get(userID, device.ID)
	if err != nil {
		c.logger.Warn("load chat settings", "user_id", userID, "device_id", device.ID, "error", err)
		return systemPrompt, modelName
	}
	if settings != nil {
		if settings.SystemMessage != "" {
			systemPrompt = settings.SystemMessage
		}
		if settings.Model != "" {
			modelName = settings.Model
		}
	}
	return systemPrompt, modelName
}

func (c *Coordinator) resolveReferences(ids []string) []model.ChatMessage {
	if len(ids) == 0 {
		return nil
	}
	refs, err := c.chats.ListByIDs(ids)
	if err != nil {
		c.logger.Warn("resolve referenced messages", "error", err)
		return nil
	}
	return refs
}

func historyMessages(entries []model.HistoryEntry) []ai.Message {
	messages := make([]ai.Message, 0, len(entries))
	for _, e := range entries {
		role := model.SenderUser
		if e.AIResponse || e.Sender == model.SenderAI {
			role = model.SenderAI
		}
		messages = append(messages, ai.Message{Role: role, Text: e.Message})
	}
	return messages
}

func firstImageURL(urls []string) string {
	for _, u := range urls {
		lower := strings.ToLower(u)
		for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".webp"} {
			if strings.Contains(lower, ext) {
				return u
			}
		}
	}
	return ""
}
