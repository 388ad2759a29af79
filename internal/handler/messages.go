package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/middleware"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

// MessageHandler handles message endpoints.
type MessageHandler struct {
	messages *service.MessageService
	sessions *service.SessionService
	renderer *render.HTML
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(
	messages *service.MessageService,
	sessions *service.SessionService,
	renderer *render.HTML,
	log *logger.Logger,
) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		sessions: sessions,
		renderer: renderer,
		logger:   log,
	}
}

// Send handles POST /api/v1/sessions/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.messages.Send(ctx, middleware.GetUserID(ctx), sessionID, &req); err != nil {
		writeServiceError(w, err, chat.ErrTextGenerate)
		return
	}

	h.writeState(w, r, sessionID)
}

// Regenerate handles POST /api/v1/sessions/{id}/messages/{messageID}/regenerate
func (h *MessageHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}
	messageID, ok := messageParam(w, r)
	if !ok {
		return
	}

	if _, err := h.messages.Regenerate(ctx, middleware.GetUserID(ctx), sessionID, messageID); err != nil {
		writeServiceError(w, err, chat.ErrTextRegenerate)
		return
	}

	h.writeState(w, r, sessionID)
}

// Edit handles PUT /api/v1/sessions/{id}/messages/{messageID}
func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}
	messageID, ok := messageParam(w, r)
	if !ok {
		return
	}

	var req model.EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.messages.Edit(ctx, middleware.GetUserID(ctx), sessionID, messageID, &req); err != nil {
		writeServiceError(w, err, chat.ErrTextRegenerate)
		return
	}

	h.writeState(w, r, sessionID)
}

// Clear handles DELETE /api/v1/sessions/{id}/messages
func (h *MessageHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}

	if err := h.messages.Clear(ctx, middleware.GetUserID(ctx), sessionID); err != nil {
		writeServiceError(w, err, "failed to clear chat")
		return
	}

	h.writeState(w, r, sessionID)
}

// Links handles GET /api/v1/sessions/{id}/messages/{messageID}/links
func (h *MessageHandler) Links(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := sessionParam(w, r)
	if !ok {
		return
	}
	messageID, ok := messageParam(w, r)
	if !ok {
		return
	}

	links, err := h.messages.Links(ctx, middleware.GetUserID(ctx), sessionID, messageID)
	if err != nil {
		writeServiceError(w, err, "failed to extract links")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.SearchLink{"links": links})
}

func (h *MessageHandler) writeState(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()
	sess, err := h.sessions.Get(ctx, middleware.GetUserID(ctx), sessionID)
	if err != nil {
		writeServiceError(w, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(h.renderer, sess))
}

func sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func messageParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "messageID")
	if err := middleware.ValidateMessageID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}
