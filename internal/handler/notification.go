package handler

import (
	"log/slog"
	"net/http"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/store"
)

type NotificationHandler struct {
	notifications *store.NotificationStore
	logger        *slog.Logger
}

func NewNotificationHandler(notifications *store.NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	notifications, err := h.notifications.ListByUser(userID, queryInt(r, "limit"), queryBool(r, "unread_only"))
	if err != nil {
		h.logger.Error("list notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// ListByDevice handles GET /api/notifications/device/{device_id}
func (h *NotificationHandler) ListByDevice(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	deviceID := r.PathValue("device_id")

	notifications, err := h.notifications.ListByDevice(userID, deviceID, queryInt(r, "limit"), queryBool(r, "unread_only"))
	if err != nil {
		h.logger.Error("list device notifications", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list notifications"})
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ok, err := h.notifications.MarkRead(r.PathValue("id"))
	if err != nil {
		h.logger.Error("mark notification read", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update notification"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
