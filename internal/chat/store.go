// Package chat holds the conversation store: the message list, the rolling
// context window sent back to the model, and the recent-response cache used
// to steer the model away from repeating itself.
package chat

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/searchlink"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

var (
	ErrEmptyContent           = errors.New("content cannot be empty")
	ErrMessageNotFound        = errors.New("message not found")
	ErrNotAssistantMessage    = errors.New("only assistant messages can be regenerated")
	ErrNoPrecedingUserMessage = errors.New("no user message precedes the target message")
)

// User-facing error texts stored on the conversation.
const (
	ErrTextGenerate   = "Failed to generate response"
	ErrTextRegenerate = "Failed to regenerate response"
)

// Generator produces raw model output for an augmented prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, variant model.ModelVariant) (string, error)
}

// Event is emitted to the store observer after each state change.
type Event struct {
	Type    model.EventType
	Message *model.Message
	Loading bool
	Error   string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Store) { s.logger = log }
}

// WithClock sets the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the message id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithRandom sets the source for greeting selection and prompt seeds.
// intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Store) { s.intn = intn }
}

// WithRewriter replaces the post-processing applied to model output.
func WithRewriter(rewrite func(string) string) Option {
	return func(s *Store) { s.rewrite = rewrite }
}

// WithObserver registers a callback invoked after every state change.
// It is called without the store lock held.
func WithObserver(fn func(Event)) Option {
	return func(s *Store) { s.observe = fn }
}

// Store owns the state of one conversation.
//
// Operations that call the model are serialized in the order they are issued.
// Their visible effects (a new user message, an edit) apply immediately; only
// the model call waits its turn. Reads never wait for a model call.
type Store struct {
	gen     Generator
	rewrite func(string) string
	logger  *logger.Logger
	now     func() time.Time
	newID   func() string
	intn    func(n int) int
	observe func(Event)

	opMu sync.Mutex

	mu          sync.RWMutex
	messages    []model.Message
	context     *Window
	recent      *Window
	loading     bool
	pending     int
	err         string
	initialized bool
}

// NewStore creates an empty store backed by gen.
func NewStore(gen Generator, opts ...Option) *Store {
	s := &Store{
		gen:     gen,
		rewrite: searchlink.RewriteLinks,
		logger:  logger.Global(),
		now:     time.Now,
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		intn:    rand.Intn,
		context: NewWindow(MaxContextEntries),
		recent:  NewWindow(MaxRecentResponses),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize adds a random greeting when the store is used for the first time
// and holds no messages. It reports whether a greeting was added.
func (s *Store) Initialize() bool {
	s.mu.Lock()
	if s.initialized || len(s.messages) > 0 {
		s.initialized = true
		s.mu.Unlock()
		return false
	}
	s.initialized = true

	greeting := Greetings[s.intn(len(Greetings))]
	msg := s.newMessage(model.RoleAssistant, greeting, model.DefaultModel)
	s.messages = append(s.messages, msg)
	s.context.Push(greeting)
	s.mu.Unlock()

	s.emit(Event{Type: model.EventMessageAdded, Message: &msg})
	return true
}

// SendMessage appends a user message, asks the model for a reply and inserts
// the post-processed reply right after it. The user message is visible at
// once, even while an earlier model call is still running, and stays in place
// when generation fails.
func (s *Store) SendMessage(ctx context.Context, content string, variant model.ModelVariant) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if !variant.Valid() {
		variant = model.DefaultModel
	}

	s.mu.Lock()
	userMsg := s.newMessage(model.RoleUser, content, variant)
	s.messages = append(s.messages, userMsg)
	s.begin()
	s.mu.Unlock()
	s.emit(
		Event{Type: model.EventMessageAdded, Message: &userMsg},
		Event{Type: model.EventLoading, Loading: true},
	)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		s.abandon("send", userMsg.ID, err)
		return nil, fmt.Errorf("generate response: %w", err)
	}

	history, recent := s.windows()
	prompt := BuildPrompt(PromptSend, history, recent, content, s.seed())
	raw, err := s.gen.Generate(ctx, prompt, variant)
	if err != nil {
		s.logger.Error("failed to generate response",
			zap.String("message_id", userMsg.ID),
			zap.String("model", string(variant)),
			zap.Error(err),
		)
		s.fail(ErrTextGenerate)
		return nil, fmt.Errorf("generate response: %w", err)
	}

	s.mu.Lock()
	reply := s.newMessage(model.RoleAssistant, s.rewrite(raw), variant)
	s.insertAfter(userMsg.ID, reply)
	s.context.Push(content, raw)
	s.recent.Push(raw)
	loading := s.finish()
	s.mu.Unlock()
	s.emit(
		Event{Type: model.EventMessageAdded, Message: &reply},
		Event{Type: model.EventLoading, Loading: loading},
	)

	return &reply, nil
}

// RegenerateMessage replaces the content of an assistant message with a new
// reply to the nearest user message before it.
func (s *Store) RegenerateMessage(ctx context.Context, messageID string) (*model.Message, error) {
	s.mu.Lock()
	idx := s.indexOf(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrMessageNotFound
	}
	if s.messages[idx].Role != model.RoleAssistant {
		s.mu.Unlock()
		return nil, ErrNotAssistantMessage
	}

	userIdx := idx - 1
	for userIdx >= 0 && s.messages[userIdx].Role != model.RoleUser {
		userIdx--
	}
	if userIdx < 0 {
		s.mu.Unlock()
		return nil, ErrNoPrecedingUserMessage
	}

	source := s.messages[userIdx]
	s.begin()
	s.mu.Unlock()
	s.emit(Event{Type: model.EventLoading, Loading: true})

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		s.abandon("regenerate", messageID, err)
		return nil, fmt.Errorf("regenerate response: %w", err)
	}

	history, recent := s.windows()
	prompt := BuildPrompt(PromptRegenerate, history, recent, source.Content, s.seed())
	raw, err := s.gen.Generate(ctx, prompt, source.Model)
	if err != nil {
		s.logger.Error("failed to regenerate response",
			zap.String("message_id", messageID),
			zap.String("model", string(source.Model)),
			zap.Error(err),
		)
		s.fail(ErrTextRegenerate)
		return nil, fmt.Errorf("regenerate response: %w", err)
	}

	updated, loading := s.applyReply(messageID, raw)
	s.emitReply(updated, loading)
	if updated == nil {
		return nil, ErrMessageNotFound
	}
	return updated, nil
}

// EditMessage replaces a message's content. The new content is visible at
// once. When the edited message is a user message directly followed by an
// assistant message, that reply is regenerated for the new content. A failed
// regeneration is logged and leaves the reply unchanged.
func (s *Store) EditMessage(ctx context.Context, messageID, content string) (*model.Message, error) {
	s.mu.Lock()
	idx := s.indexOf(messageID)
	if idx < 0 {
		s.mu.Unlock()
		return nil, ErrMessageNotFound
	}

	s.messages[idx].Content = content
	s.messages[idx].Timestamp = s.now()
	edited := s.messages[idx]

	var replyID string
	if edited.Role == model.RoleUser && idx+1 < len(s.messages) && s.messages[idx+1].Role == model.RoleAssistant {
		replyID = s.messages[idx+1].ID
		s.pending++
		s.loading = true
	}
	s.mu.Unlock()

	events := []Event{{Type: model.EventMessageUpdated, Message: &edited}}
	if replyID != "" {
		events = append(events, Event{Type: model.EventLoading, Loading: true})
	}
	s.emit(events...)

	if replyID == "" {
		return &edited, nil
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		s.abandon("edit", replyID, err)
		return &edited, nil
	}

	history, recent := s.windows()
	prompt := BuildPrompt(PromptEdit, history, recent, content, s.seed())
	raw, err := s.gen.Generate(ctx, prompt, edited.Model)
	if err != nil {
		s.logger.Error("failed to regenerate edited message response",
			zap.String("message_id", replyID),
			zap.Error(err),
		)
		s.mu.Lock()
		loading := s.finish()
		s.mu.Unlock()
		s.emit(Event{Type: model.EventLoading, Loading: loading})
		return &edited, nil
	}

	updated, loading := s.applyReply(replyID, raw)
	s.emitReply(updated, loading)
	return &edited, nil
}

// ClearChat drops all messages, the context window and the recent-response
// cache. The greeting is not added again.
func (s *Store) ClearChat() {
	s.mu.Lock()
	s.messages = nil
	s.context.Reset()
	s.recent.Reset()
	s.err = ""
	s.mu.Unlock()

	s.emit(Event{Type: model.EventCleared})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() model.ConversationState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.ConversationState{
		Messages:        append([]model.Message{}, s.messages...),
		Context:         s.context.Entries(),
		RecentResponses: s.recent.Entries(),
		Loading:         s.loading,
		Error:           s.err,
	}
}

// Message returns a copy of the message with the given id.
func (s *Store) Message(messageID string) (model.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(messageID); idx >= 0 {
		return s.messages[idx], true
	}
	return model.Message{}, false
}

// Loading reports whether a model call is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the user-facing error of the last failed operation, if any.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// applyReply writes a regenerated reply into the message with the given id
// and records the raw output. It returns nil if the message is gone, along
// with whether other model calls are still pending.
func (s *Store) applyReply(messageID, raw string) (*model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loading := s.finish()
	idx := s.indexOf(messageID)
	if idx < 0 {
		return nil, loading
	}

	s.messages[idx].Content = s.rewrite(raw)
	s.messages[idx].Timestamp = s.now()
	s.context.Push(raw)
	s.recent.Push(raw)

	updated := s.messages[idx]
	return &updated, loading
}

func (s *Store) emitReply(updated *model.Message, loading bool) {
	if updated != nil {
		s.emit(
			Event{Type: model.EventMessageUpdated, Message: updated},
			Event{Type: model.EventLoading, Loading: loading},
		)
		return
	}
	s.emit(Event{Type: model.EventLoading, Loading: loading})
}

func (s *Store) fail(text string) {
	s.mu.Lock()
	loading := s.finish()
	s.err = text
	s.mu.Unlock()

	s.emit(
		Event{Type: model.EventLoading, Loading: loading},
		Event{Type: model.EventError, Error: text},
	)
}

// abandon ends a queued operation whose caller went away before its model
// call could start. No error text is recorded.
func (s *Store) abandon(op, messageID string, cause error) {
	s.logger.Warn("model call abandoned before start",
		zap.String("operation", op),
		zap.String("message_id", messageID),
		zap.Error(cause),
	)

	s.mu.Lock()
	loading := s.finish()
	s.mu.Unlock()
	s.emit(Event{Type: model.EventLoading, Loading: loading})
}

// begin marks a model call as pending. Must be called with mu held.
func (s *Store) begin() {
	s.pending++
	s.loading = true
	s.err = ""
}

// finish marks a model call as done and reports whether others are still
// pending. Must be called with mu held.
func (s *Store) finish() bool {
	if s.pending > 0 {
		s.pending--
	}
	s.loading = s.pending > 0
	return s.loading
}

// windows snapshots the context window and the recent-response cache.
func (s *Store) windows() (history, recent []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context.Entries(), s.recent.Entries()
}

// insertAfter places msg directly after the message with the given id, or at
// the end if that message is gone. Must be called with mu held.
func (s *Store) insertAfter(messageID string, msg model.Message) {
	idx := s.indexOf(messageID)
	if idx < 0 || idx == len(s.messages)-1 {
		s.messages = append(s.messages, msg)
		return
	}
	s.messages = slices.Insert(s.messages, idx+1, msg)
}

func (s *Store) emit(events ...Event) {
	if s.observe == nil {
		return
	}
	for _, e := range events {
		s.observe(e)
	}
}

// indexOf must be called with mu held.
func (s *Store) indexOf(messageID string) int {
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (s *Store) newMessage(role model.Role, content string, variant model.ModelVariant) model.Message {
	return model.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Model:     variant,
		Timestamp: s.now(),
	}
}

func (s *Store) seed() int {
	return s.intn(1000)
}
