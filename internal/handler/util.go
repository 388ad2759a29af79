package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jwgpt/jwgpt/internal/chat"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps a service error to a status code. Unrecognized
// errors come from the model provider and are reported with fallback only.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, chat.ErrNotAssistantMessage), errors.Is(err, chat.ErrNoPrecedingUserMessage):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, service.ErrInvalidModel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusBadGateway, fallback)
	}
}

func sessionResponse(renderer *render.HTML, sess service.Session) *model.SessionResponse {
	state := sess.Store.Snapshot()
	return &model.SessionResponse{
		Session:  sess.Session,
		Messages: renderer.Views(state.Messages),
		Loading:  state.Loading,
		Error:    state.Error,
	}
}
