package service

import (
	"context"
	"sync"

	"github.com/jwgpt/jwgpt/internal/model"
)

// DefaultSubscriberBuffer is the per-subscriber event buffer.
const DefaultSubscriberBuffer = 32

// Broker fans conversation events out to in-process subscribers, keyed by
// session. Slow subscribers miss events rather than block the store.
type Broker struct {
	buffer int

	mu   sync.RWMutex
	subs map[string]map[chan *model.ConversationEvent]struct{}
}

// NewBroker creates a broker with the given per-subscriber buffer size.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broker{
		buffer: buffer,
		subs:   make(map[string]map[chan *model.ConversationEvent]struct{}),
	}
}

// Subscribe registers a subscriber for one session. The returned function
// removes it; the channel is closed on unsubscribe or when the session is
// closed.
func (b *Broker) Subscribe(sessionID string) (<-chan *model.ConversationEvent, func()) {
	ch := make(chan *model.ConversationEvent, b.buffer)

	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan *model.ConversationEvent]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { b.remove(sessionID, ch) })
	}
}

// Publish delivers the event to every subscriber of its session.
func (b *Broker) Publish(_ context.Context, event *model.ConversationEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[event.SessionID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

// Close closes every subscriber of a session.
func (b *Broker) Close(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[sessionID] {
		close(ch)
	}
	delete(b.subs, sessionID)
}

// Subscribers returns the number of subscribers of a session.
func (b *Broker) Subscribers(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[sessionID])
}

func (b *Broker) remove(sessionID string, ch chan *model.ConversationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set, ok := b.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(b.subs, sessionID)
	}
}
