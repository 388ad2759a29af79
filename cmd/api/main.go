// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jwgpt/jwgpt/internal/config"
	"github.com/jwgpt/jwgpt/internal/handler"
	"github.com/jwgpt/jwgpt/internal/llm"
	natsclient "github.com/jwgpt/jwgpt/internal/nats"
	"github.com/jwgpt/jwgpt/internal/render"
	"github.com/jwgpt/jwgpt/internal/service"
	"github.com/jwgpt/jwgpt/pkg/logger"
	"github.com/jwgpt/jwgpt/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewForEnv(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server", zap.String("provider", cfg.LLMProvider))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "jwgpt", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer func() { _ = tracing.Shutdown(context.Background(), tp) }()
		}
	}

	gen, err := llm.NewGeneratorFromConfig(cfg, log)
	if err != nil {
		log.Fatal("failed to create model client", zap.Error(err))
	}

	var sessionOpts []service.SessionOption

	// NATS is optional; without it events only reach SSE subscribers.
	var natsClient *natsclient.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()
		sessionOpts = append(sessionOpts, service.WithPublisher(natsclient.NewEventPublisher(natsClient)))
	} else {
		sessionOpts = append(sessionOpts, service.WithPublisher(natsclient.NopPublisher{}))
	}

	sessions := service.NewSessionService(gen, service.NewBroker(service.DefaultSubscriberBuffer), log, sessionOpts...)
	messages := service.NewMessageService(sessions, cfg.GenerationTimeout, log)

	if cfg.SessionIdleTimeout > 0 {
		go sessions.RunReaper(ctx, time.Minute, cfg.SessionIdleTimeout)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Sessions:          sessions,
		Messages:          messages,
		Renderer:          render.NewHTML(),
		NATS:              natsClient,
		Logger:            log,
		AuthEnabled:       cfg.AuthEnabled,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		AppName:           cfg.AppName,
		AppURL:            cfg.AppURL,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
