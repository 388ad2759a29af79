package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwgpt/jwgpt/internal/middleware"
	natsclient "github.com/jwgpt/jwgpt/internal/nats"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

// RouterConfig holds the dependencies of the HTTP API.
type RouterConfig struct {
	Sessions *service.SessionService
	Messages *service.MessageService
	Renderer *render.HTML
	NATS     *natsclient.Client
	Logger   *logger.Logger

	AuthEnabled       bool
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	AllowedOrigins    []string

	AppName string
	AppURL  string
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	healthHandler := NewHealthHandler(cfg.NATS, cfg.Sessions)
	sessionHandler := NewSessionHandler(cfg.Sessions, cfg.Renderer, cfg.Logger)
	messageHandler := NewMessageHandler(cfg.Messages, cfg.Sessions, cfg.Renderer, cfg.Logger)
	streamHandler := NewStreamHandler(cfg.Sessions, cfg.Renderer, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins...))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/structured-data", StructuredData(cfg.AppName, cfg.AppURL))

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.AuthEnabled {
			r.Use(middleware.Auth(cfg.JWTSecret))
		}
		if cfg.RateLimitRequests > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		}

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)

				r.Post("/messages", messageHandler.Send)
				r.Delete("/messages", messageHandler.Clear)
				r.Put("/messages/{messageID}", messageHandler.Edit)
				r.Post("/messages/{messageID}/regenerate", messageHandler.Regenerate)
				r.Get("/messages/{messageID}/links", messageHandler.Links)

				r.Get("/events", streamHandler.Events)
			})
		})
	})

	return r
}
