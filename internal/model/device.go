package model

import "time"

// Device type constants. Unknown types fall back to the default AI personality.
const (
	DeviceTypeCamera   = "camera"
	DeviceTypeSensor   = "sensor"
	DeviceTypeDoorbell = "doorbell"
	DeviceTypeOther    = "other"
)

// Device status constants.
const (
	DeviceStatusOnline  = "online"
	DeviceStatusOffline = "offline"
)

// Device is a networked device owned by exactly one user. Devices are
// managed by external endpoints; the chat core reads them for AI
// personality selection.
type Device struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	UserID      string         `json:"user_id"`
	Status      string         `json:"status"`
	Location    string         `json:"location,omitempty"`
	Description string         `json:"description,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	LastSeen    time.Time      `json:"last_seen"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
