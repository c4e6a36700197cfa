// Package handler is the thin HTTP request layer over the chat core.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/chat"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/store"
)

type ChatHandler struct {
	coordinator *chat.Coordinator
	chatStore   *store.ChatStore
	histories   *store.HistoryStore
	logger      *slog.Logger
}

func NewChatHandler(coordinator *chat.Coordinator, chatStore *store.ChatStore, histories *store.HistoryStore, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{coordinator: coordinator, chatStore: chatStore, histories: histories, logger: logger}
}

type sendRequest struct {
	DeviceID    string             `json:"device_id"`
	Message     string             `json:"message"`
	MediaURLs   []string           `json:"media_urls,omitempty"`
	Attachments []model.Attachment `json:"attachments,omitempty"`
	ReplyTo     []string           `json:"reply_to,omitempty"`
}

type sendResponse struct {
	Success             bool             `json:"success"`
	MessageID           string           `json:"message_id"`
	AIResponse          *chat.AIResponse `json:"ai_response"`
	CameraPromptChanged bool             `json:"camera_prompt_changed,omitempty"`
	RoleChanged         bool             `json:"role_changed,omitempty"`
}

// Send handles POST /api/chat/send
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.DeviceID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "device_id and message are required"})
		return
	}

	result, err := h.coordinator.HandleTurn(r.Context(), chat.TurnInput{
		UserID:      userID,
		DeviceID:    req.DeviceID,
		Text:        req.Message,
		Attachments: req.Attachments,
		MediaURLs:   req.MediaURLs,
		ReplyTo:     req.ReplyTo,
	})
	if errors.Is(err, chat.ErrDeviceNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	if err != nil {
		h.logger.Error("chat turn failed", "user_id", userID, "device_id", req.DeviceID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to process message"})
		return
	}

	writeJSON(w, http.StatusOK, sendResponse{
		Success:             true,
		MessageID:           result.MessageID,
		AIResponse:          result.AIResponse,
		CameraPromptChanged: result.CameraPromptChanged,
		RoleChanged:         result.RoleChanged,
	})
}

// List handles GET /api/chat/{device_id}
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deviceID := r.PathValue("device_id")

	messages, err := h.chatStore.List(userID, deviceID, queryInt(r, "limit"))
	if err != nil {
		h.logger.Error("list chat messages", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// History handles GET /api/chat/{device_id}/history
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deviceID := r.PathValue("device_id")

	entries, err := h.histories.Get(userID, deviceID)
	if err != nil {
		h.logger.Error("load chat history", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load history"})
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":   userID,
		"device_id": deviceID,
		"history":   entries,
	})
}

// ClearHistory handles DELETE /api/chat/{device_id}/history
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deviceID := r.PathValue("device_id")

	deleted, err := h.chatStore.DeleteConversation(userID, deviceID)
	if err != nil {
		h.logger.Error("delete conversation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear history"})
		return
	}
	if err := h.histories.Clear(userID, deviceID); err != nil {
		h.logger.Warn("clear history mirror", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted_count": deleted})
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
