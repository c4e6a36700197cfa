package model

import "time"

// MonitoringDirective holds the per-(user, device) natural-language
// instructions describing what the AI should flag as significant, plus the
// system-prompt text generated from them. At most one live row per
// (user, device); updates replace in place.
type MonitoringDirective struct {
	UserID       string    `json:"user_id"`
	DeviceID     string    `json:"device_id"`
	Instructions string    `json:"instructions"`
	SystemPrompt string    `json:"system_prompt"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ChatSettings overrides the built-in AI personality for one (user, device)
// pair. Role and monitoring focus are orthogonal: a settings row says who
// the assistant is, a directive says what it watches for.
type ChatSettings struct {
	UserID        string    `json:"user_id"`
	DeviceID      string    `json:"device_id"`
	RoleName      string    `json:"role_name,omitempty"`
	SystemMessage string    `json:"system_message,omitempty"`
	Instructions  string    `json:"instructions,omitempty"`
	Model         string    `json:"model,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
