package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/searchlink"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

// ErrInvalidModel is returned when a request names an unsupported model.
var ErrInvalidModel = errors.New("invalid model")

// MessageService runs conversation operations on sessions.
type MessageService struct {
	sessions *SessionService
	timeout  time.Duration
	logger   *logger.Logger
}

// NewMessageService creates a message service. A positive timeout bounds
// every model call.
func NewMessageService(sessions *SessionService, timeout time.Duration, log *logger.Logger) *MessageService {
	return &MessageService{
		sessions: sessions,
		timeout:  timeout,
		logger:   log,
	}
}

// Send appends a user message and generates a reply.
func (s *MessageService) Send(ctx context.Context, ownerID, sessionID string, req *model.SendMessageRequest) (*model.Message, error) {
	variant, err := model.ParseModelVariant(req.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}

	sess, err := s.sessions.Touch(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sess.Store.SendMessage(ctx, req.Content, variant)
}

// Regenerate replaces an assistant reply.
func (s *MessageService) Regenerate(ctx context.Context, ownerID, sessionID, messageID string) (*model.Message, error) {
	sess, err := s.sessions.Touch(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sess.Store.RegenerateMessage(ctx, messageID)
}

// Edit changes a message and refreshes the reply that follows it.
func (s *MessageService) Edit(ctx context.Context, ownerID, sessionID, messageID string, req *model.EditMessageRequest) (*model.Message, error) {
	sess, err := s.sessions.Touch(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sess.Store.EditMessage(ctx, messageID, req.Content)
}

// Clear empties the conversation.
func (s *MessageService) Clear(ctx context.Context, ownerID, sessionID string) error {
	sess, err := s.sessions.Touch(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	sess.Store.ClearChat()
	return nil
}

// Links returns the search links found in one message.
func (s *MessageService) Links(ctx context.Context, ownerID, sessionID, messageID string) ([]model.SearchLink, error) {
	sess, err := s.sessions.Get(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	msg, ok := sess.Store.Message(messageID)
	if !ok {
		return nil, chat.ErrMessageNotFound
	}
	return searchlink.ExtractSearchLinks(msg.Content), nil
}

func (s *MessageService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
