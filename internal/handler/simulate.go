package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/chat"
)

// SimulateHandler injects device-originated events, for testing rigs.
type SimulateHandler struct {
	coordinator *chat.Coordinator
	logger      *slog.Logger
}

func NewSimulateHandler(coordinator *chat.Coordinator, logger *slog.Logger) *SimulateHandler {
	return &SimulateHandler{coordinator: coordinator, logger: logger}
}

type simulateRequest struct {
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
	MediaURL string `json:"media_url,omitempty"`
	Type     string `json:"notification_type,omitempty"`
}

// DeviceNotification handles POST /api/simulate/device-notification
func (h *SimulateHandler) DeviceNotification(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.DeviceID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "device_id and message are required"})
		return
	}

	sent, err := h.coordinator.SimulateDeviceEvent(r.Context(), userID, req.DeviceID, req.Message, req.MediaURL, req.Type)
	if err != nil {
		h.logger.Error("simulate device event", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to store device message"})
		return
	}

	message := "Notification sent"
	if !sent {
		message = "User not connected"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": sent, "message": message})
}
