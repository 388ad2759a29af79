package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwgpt/jwgpt/internal/model"
)

// SubjectPrefix is the prefix for all chat subjects.
const SubjectPrefix = "chat"

// EventSubject returns the subject an event is published on.
func EventSubject(sessionID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.event.%s", SubjectPrefix, sessionID, eventType)
}

// Publisher sends conversation events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, event *model.ConversationEvent) error
}

type conn interface {
	Publish(subject string, data []byte) error
}

// EventPublisher publishes events as JSON on core NATS subjects.
type EventPublisher struct {
	conn conn
}

// NewEventPublisher creates a publisher on the client's connection.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{conn: client.Conn()}
}

// Publish sends one event. Delivery is fire and forget.
func (p *EventPublisher) Publish(ctx context.Context, event *model.ConversationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.conn.Publish(EventSubject(event.SessionID, event.Type), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher discards events. It is used when NATS is not configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, *model.ConversationEvent) error { return nil }
