package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jwgpt/jwgpt/internal/middleware"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
	"github.com/jwgpt/jwgpt/pkg/logger"
	"github.com/jwgpt/jwgpt/pkg/metrics"
)

// DefaultHeartbeat is the interval between SSE heartbeats.
const DefaultHeartbeat = 30 * time.Second

// StreamHandler handles SSE streaming endpoints.
type StreamHandler struct {
	sessions  *service.SessionService
	renderer  *render.HTML
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *service.SessionService, renderer *render.HTML, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		sessions:  sessions,
		renderer:  renderer,
		logger:    log,
		heartbeat: DefaultHeartbeat,
	}
}

// streamEvent is a conversation event with the rendered message attached.
type streamEvent struct {
	*model.ConversationEvent
	View *model.MessageView `json:"view,omitempty"`
}

// Events handles GET /api/v1/sessions/{id}/events
func (h *StreamHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Get(ctx, middleware.GetUserID(ctx), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// The stream outlives the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events, unsubscribe := h.sessions.Broker().Subscribe(sessionID)
	defer unsubscribe()

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	log := h.logger.WithSession(sessionID)

	if err := sendSSEEvent(w, flusher, "connected", sessionResponse(h.renderer, sess)); err != nil {
		log.Warn("failed to send connected event", zap.Error(err))
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return

		case event, ok := <-events:
			if !ok {
				_ = sendSSEEvent(w, flusher, "closed", map[string]string{"session_id": sessionID})
				return
			}
			out := &streamEvent{ConversationEvent: event}
			if event.Message != nil {
				view := h.renderer.View(*event.Message)
				out.View = &view
			}
			if err := sendSSEEvent(w, flusher, string(event.Type), out); err != nil {
				log.Warn("failed to send event", zap.Error(err))
				return
			}

		case <-heartbeat.C:
			if err := sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}
