package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/perchd/perch/internal/auth"
	"github.com/perchd/perch/internal/model"
	"github.com/perchd/perch/internal/store"
)

type DeviceHandler struct {
	devices *store.DeviceStore
	logger  *slog.Logger
}

func NewDeviceHandler(devices *store.DeviceStore, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

type deviceRequest struct {
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Status      string         `json:"status,omitempty"`
	Location    string         `json:"location,omitempty"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// Create handles POST /api/devices
func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Name == "" || req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and type are required"})
		return
	}

	device := &model.Device{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        req.Name,
		Type:        req.Type,
		Status:      req.Status,
		Location:    req.Location,
		Description: req.Description,
		Settings:    req.Settings,
	}
	if device.Status == "" {
		device.Status = model.DeviceStatusOnline
	}

	if err := h.devices.Create(device); err != nil {
		h.logger.Error("create device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create device"})
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

// List handles GET /api/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	devices, err := h.devices.ListByUser(userID)
	if err != nil {
		h.logger.Error("list devices", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list devices"})
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}
	writeJSON(w, http.StatusOK, devices)
}

// Update handles PUT /api/devices/{id}
func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	device, ok := h.ownedDevice(w, r, userID)
	if !ok {
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if req.Name != "" {
		device.Name = req.Name
	}
	if req.Type != "" {
		device.Type = req.Type
	}
	if req.Status != "" {
		device.Status = req.Status
	}
	if req.Location != "" {
		device.Location = req.Location
	}
	if req.Description != "" {
		device.Description = req.Description
	}
	if req.Settings != nil {
		device.Settings = req.Settings
	}

	if err := h.devices.Update(device); err != nil {
		h.logger.Error("update device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update device"})
		return
	}
	writeJSON(w, http.StatusOK, device)
}

// UpdateStatus handles PUT /api/devices/{id}/status
func (h *DeviceHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	device, ok := h.ownedDevice(w, r, userID)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	if err := h.devices.UpdateStatus(device.ID, req.Status); err != nil {
		h.logger.Error("update device status", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update status"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": req.Status})
}

// Delete handles DELETE /api/devices/{id}
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	device, ok := h.ownedDevice(w, r, userID)
	if !ok {
		return
	}

	if err := h.devices.Delete(device.ID); err != nil {
		h.logger.Error("delete device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete device"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedDevice resolves the {id} path parameter and checks ownership.
func (h *DeviceHandler) ownedDevice(w http.ResponseWriter, r *http.Request, userID string) (*model.Device, bool) {
	device, err := h.devices.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get device", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load device"})
		return nil, false
	}
	if device == nil || device.UserID != userID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return nil, false
	}
	return device, true
}
