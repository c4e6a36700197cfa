package model

import "time"

// Notification type constants
const (
	NotifTypeMessage = "message"
	NotifTypeAlert   = "alert"
	NotifTypeMedia   = "media"
	NotifTypePush    = "push"
)

// Notification is a delivery record. One Notification may correspond to
// zero, one, or many push deliveries; the record is stored regardless of
// delivery outcome so history stays discoverable.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	DeviceID  string    `json:"device_id"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	MediaURL  string    `json:"media_url,omitempty"`
	VideoURL  string    `json:"video_url,omitempty"`
	SoundID   string    `json:"sound_id,omitempty"`
	Read      bool      `json:"read"`
	Timestamp time.Time `json:"timestamp"`
}
