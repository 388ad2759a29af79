// Package service manages chat sessions and routes their events.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/model"
	natsclient "github.com/jwgpt/jwgpt/internal/nats"
	"github.com/jwgpt/jwgpt/pkg/logger"
	"github.com/jwgpt/jwgpt/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions owned
// by someone else.
var ErrSessionNotFound = errors.New("session not found")

const publishTimeout = 2 * time.Second

// Session pairs session metadata with its conversation store.
type Session struct {
	model.Session
	Store *chat.Store
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithStoreOptions adds options applied to every new store.
func WithStoreOptions(opts ...chat.Option) SessionOption {
	return func(s *SessionService) { s.storeOpts = append(s.storeOpts, opts...) }
}

// WithPublisher adds a destination for conversation events.
func WithPublisher(p natsclient.Publisher) SessionOption {
	return func(s *SessionService) { s.publishers = append(s.publishers, p) }
}

// WithSessionClock sets the time source for session activity.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// SessionService keeps live sessions in memory. Sessions are never persisted.
type SessionService struct {
	gen        chat.Generator
	broker     *Broker
	publishers []natsclient.Publisher
	storeOpts  []chat.Option
	logger     *logger.Logger
	now        func() time.Time

	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewSessionService creates a session service. Store events always go to
// broker and to any publishers added with WithPublisher.
func NewSessionService(gen chat.Generator, broker *Broker, log *logger.Logger, opts ...SessionOption) *SessionService {
	s := &SessionService{
		gen:      gen,
		broker:   broker,
		logger:   log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session for ownerID with a greeting message.
func (s *SessionService) Create(ctx context.Context, ownerID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	now := s.now()
	id := uuid.Must(uuid.NewV7()).String()
	log := s.logger.WithSession(id)

	opts := append([]chat.Option{
		chat.WithLogger(log),
		chat.WithObserver(s.observer(id, log)),
	}, s.storeOpts...)

	sess := &Session{
		Session: model.Session{
			ID:         id,
			OwnerID:    ownerID,
			CreatedAt:  now,
			LastActive: now,
		},
		Store: chat.NewStore(s.gen, opts...),
	}
	sess.Store.Initialize()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	log.Info("session created", zap.String("owner_id", ownerID))

	return *sess, nil
}

// Get returns a session owned by ownerID.
func (s *SessionService) Get(ctx context.Context, ownerID, sessionID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return Session{}, ErrSessionNotFound
	}
	return *sess, nil
}

// Touch marks a session as active and returns it.
func (s *SessionService) Touch(ctx context.Context, ownerID, sessionID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		return Session{}, ErrSessionNotFound
	}
	sess.LastActive = s.now()
	return *sess, nil
}

// Delete drops a session and disconnects its subscribers.
func (s *SessionService) Delete(ctx context.Context, ownerID, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.OwnerID != ownerID {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.broker.Close(sessionID)
	metrics.SessionsActive.Dec()
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Reap drops sessions idle for longer than maxIdle and returns how many were
// removed. Sessions with a model call in flight are kept.
func (s *SessionService) Reap(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var expired []string
	for id, sess := range s.sessions {
		if sess.LastActive.Before(cutoff) && !sess.Store.Loading() {
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range expired {
		s.broker.Close(id)
		metrics.SessionsActive.Dec()
	}
	if len(expired) > 0 {
		s.logger.Info("idle sessions reaped", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunReaper calls Reap every interval until ctx is done.
func (s *SessionService) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Reap(maxIdle)
		}
	}
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Broker returns the event broker.
func (s *SessionService) Broker() *Broker {
	return s.broker
}

func (s *SessionService) observer(sessionID string, log *logger.Logger) func(chat.Event) {
	return func(e chat.Event) {
		event := &model.ConversationEvent{
			SessionID: sessionID,
			Type:      e.Type,
			Message:   e.Message,
			Loading:   e.Loading,
			Error:     e.Error,
			CreatedAt: s.now(),
		}
		if e.Type == model.EventMessageAdded && e.Message != nil {
			metrics.MessagesTotal.WithLabelValues(string(e.Message.Role)).Inc()
		}

		_ = s.broker.Publish(context.Background(), event)

		if len(s.publishers) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, p := range s.publishers {
			if err := p.Publish(ctx, event); err != nil {
				metrics.EventsPublishFailures.Inc()
				log.Warn("failed to publish event",
					zap.String("type", string(event.Type)),
					zap.Error(err),
				)
			}
		}
	}
}
