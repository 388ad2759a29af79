package handler

import (
	"encoding/json"
	"net/http"

	"github.com/jwgpt/jwgpt/internal/model"
	natsclient "github.com/jwgpt/jwgpt/internal/nats"
	"github.com/jwgpt/jwgpt/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient *natsclient.Client
	sessions   *service.SessionService
}

// NewHealthHandler creates a new health handler. natsClient is nil when
// event publishing is disabled.
func NewHealthHandler(natsClient *natsclient.Client, sessions *service.SessionService) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		sessions:   sessions,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready. The body reports the number of live sessions.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	sessions := 0
	if h.sessions != nil {
		sessions = h.sessions.Count()
	}

	if h.natsClient == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ready",
			"nats":     "disabled",
			"sessions": sessions,
		})
		return
	}

	if !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ready",
		"nats":     "connected",
		"sessions": sessions,
	})
}

// StructuredData serves the schema.org application descriptor.
func StructuredData(name, url string) http.HandlerFunc {
	body, _ := json.Marshal(model.NewStructuredData(name, url))
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write(body)
	}
}
