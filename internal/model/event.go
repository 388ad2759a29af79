package model

import (
	"time"
)

// EventType represents the kind of change applied to a conversation.
type EventType string

const (
	EventMessageAdded   EventType = "message_added"
	EventMessageUpdated EventType = "message_updated"
	EventLoading        EventType = "loading"
	EventError          EventType = "error"
	EventCleared        EventType = "cleared"
)

// ConversationEvent describes a single state change in a session.
type ConversationEvent struct {
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Message   *Message  `json:"message,omitempty"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
