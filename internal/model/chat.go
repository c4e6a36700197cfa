package model

import "time"

// Message sender tags. Every ChatMessage carries exactly one.
const (
	SenderUser   = "user"
	SenderDevice = "device"
	SenderAI     = "ai"
	SenderSystem = "system"
)

// Attachment describes an uploaded file referenced by a chat message.
// File bytes live in the file store; this is only the descriptor.
type Attachment struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// MessageMeta is the unified metadata block a message may carry when it
// originates from a camera or mission event.
type MessageMeta struct {
	CameraID  string `json:"camera_id,omitempty"`
	MissionID string `json:"mission_id,omitempty"`
	Title     string `json:"title,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	SoundID   string `json:"sound_id,omitempty"`
}

// ChatMessage is an immutable record of one conversation turn. Ordering
// key is the monotonic Timestamp; the record is append-only.
type ChatMessage struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	DeviceID    string       `json:"device_id"`
	Message     string       `json:"message"`
	Sender      string       `json:"sender"`
	MediaURLs   []string     `json:"media_urls,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ReplyTo     []string     `json:"reply_to,omitempty"`
	Meta        *MessageMeta `json:"meta,omitempty"`
	Error       bool         `json:"error,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// HistoryEntry is one element of the denormalized rolling history kept per
// (user, device) for fast context assembly. The chat_messages log is the
// source of truth; this mirror is rebuilt best-effort.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Message    string    `json:"message"`
	Sender     string    `json:"sender"`
	Timestamp  time.Time `json:"timestamp"`
	AIResponse bool      `json:"ai_response"`
}
