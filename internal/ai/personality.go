package ai

import "github.com/perchd/perch/internal/model"

// Model identifiers. Every turn that embeds an image is upgraded to
// VisionModel regardless of the configured default.
const (
	DefaultModel = "gemini-2.5-flash-lite"
	VisionModel  = "gemini-2.5-flash"
)

// Personality is a built-in AI role for a device category. Explicit
// per-device chat settings take precedence over this table.
type Personality struct {
	RoleName      string
	SystemMessage string
	Model         string
}

var personalities = map[string]Personality{
	model.DeviceTypeCamera: {
		RoleName:      "security camera assistant",
		SystemMessage: "You are an AI assistant for a security camera device. You help monitor and report on security activities. You can analyze images, report motion detection, and provide security insights. Be helpful and security-focused in your responses.",
		Model:         DefaultModel,
	},
	model.DeviceTypeSensor: {
		RoleName:      "sensor assistant",
		SystemMessage: "You are an AI assistant for a sensor device. You help monitor environmental conditions and provide data insights. You can analyze sensor readings, report threshold alerts, and explain environmental patterns. Be analytical and data-focused in your responses.",
		Model:         DefaultModel,
	},
	model.DeviceTypeDoorbell: {
		RoleName:      "doorbell assistant",
		SystemMessage: "You are an AI assistant for a smart doorbell device. You help with visitor detection, package monitoring, and door security. You can identify visitors, announce arrivals, and provide door-related security insights. Be friendly but security-conscious in your responses.",
		Model:         DefaultModel,
	},
}

var defaultPersonality = Personality{
	RoleName:      "device assistant",
	SystemMessage: "You are an AI assistant for a smart device. You help monitor device status, analyze data, and provide helpful insights about device functionality. Be helpful and informative in your responses.",
	Model:         DefaultModel,
}

// PersonalityFor returns the built-in personality for a device type,
// falling back to the generic one for unknown types.
func PersonalityFor(deviceType string) Personality {
	if p, ok := personalities[deviceType]; ok {
		return p
	}
	return defaultPersonality
}
