package model

import (
	"fmt"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModelVariant selects which hosted model produces a reply.
type ModelVariant string

const (
	ModelGeminiPro   ModelVariant = "gemini-pro"
	ModelGeminiFlash ModelVariant = "gemini-flash"

	// DefaultModel is used when a request does not name a variant.
	DefaultModel = ModelGeminiPro
)

// ModelVariants lists every supported variant.
var ModelVariants = []ModelVariant{ModelGeminiPro, ModelGeminiFlash}

// Valid reports whether v is one of the supported variants.
func (v ModelVariant) Valid() bool {
	return v == ModelGeminiPro || v == ModelGeminiFlash
}

// ParseModelVariant converts s into a ModelVariant. The empty string maps to DefaultModel.
func ParseModelVariant(s string) (ModelVariant, error) {
	if s == "" {
		return DefaultModel, nil
	}
	v := ModelVariant(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown model %q", s)
	}
	return v, nil
}

// Message represents a conversation message.
type Message struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	Model     ModelVariant `json:"model"`
	Timestamp time.Time    `json:"timestamp"`
}

// SendMessageRequest is the request to send a new message.
type SendMessageRequest struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

// EditMessageRequest is the request to edit an existing message.
type EditMessageRequest struct {
	Content string `json:"content"`
}

// MessageView is a message prepared for display.
type MessageView struct {
	Message
	HTML        string       `json:"html"`
	SearchLinks []SearchLink `json:"search_links"`
}

// HeartbeatEvent represents a heartbeat event.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}
