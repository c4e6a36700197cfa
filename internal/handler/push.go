package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/notify"
	"github.com/perchd/perch/internal/push"
	"github.com/perchd/perch/internal/store"
)

type PushHandler struct {
	pushStore  *store.PushStore
	service    *push.Service
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, dispatcher *notify.Dispatcher, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, dispatcher: dispatcher, logger: logger}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "endpoint and keys are required"})
		return
	}

	sub, err := h.pushStore.Upsert(userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
	if err != nil {
		h.logger.Error("upsert push subscription", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save subscription"})
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/unsubscribe. An endpoint in the body
// removes that subscription only; an empty body removes all of the user's.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	// Body is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	removed, err := h.pushStore.DeleteByUser(userID, req.Endpoint)
	if err != nil {
		h.logger.Error("delete push subscriptions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete subscriptions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "removed_count": removed})
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// VAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

type sendPushRequest struct {
	DeviceID string `json:"device_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Image    string `json:"image,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	SoundID  string `json:"sound_id,omitempty"`
}

// SendPush handles POST /api/push/send, a manual fan-out for testing rigs
// and external triggers.
func (h *PushHandler) SendPush(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req sendPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Title == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title and body are required"})
		return
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = notify.GlobalDeviceID
	}

	subs, err := h.pushStore.ListByUser(userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list subscriptions"})
		return
	}

	result := h.dispatcher.Dispatch(r.Context(), notify.Event{
		UserID:   userID,
		DeviceID: deviceID,
		Type:     model.NotifTypePush,
		Title:    req.Title,
		Body:     req.Body,
		Image:    req.Image,
		VideoURL: req.VideoURL,
		SoundID:  req.SoundID,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"sent_count":          result.Sent,
		"failed_count":        result.Failed,
		"total_subscriptions": len(subs),
	})
}
