package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/pkg/logger"
	"github.com/jwgpt/jwgpt/pkg/metrics"
	"github.com/jwgpt/jwgpt/pkg/tracing"
)

// Generator turns an augmented prompt into model output. It implements
// chat.Generator on top of a Client.
type Generator struct {
	client       Client
	systemPrompt string
	models       map[model.ModelVariant]string
	limiter      *rate.Limiter
	tracer       trace.Tracer
	logger       *logger.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithModels maps each variant to the provider's model name.
func WithModels(models map[model.ModelVariant]string) GeneratorOption {
	return func(g *Generator) { g.models = models }
}

// WithSystemPrompt overrides SystemPrompt.
func WithSystemPrompt(prompt string) GeneratorOption {
	return func(g *Generator) { g.systemPrompt = prompt }
}

// WithRateLimit caps outbound calls at perSecond with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) GeneratorOption {
	return func(g *Generator) {
		if perSecond <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(log *logger.Logger) GeneratorOption {
	return func(g *Generator) { g.logger = log }
}

// NewGenerator creates a Generator backed by client.
func NewGenerator(client Client, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client:       client,
		systemPrompt: SystemPrompt,
		models:       map[model.ModelVariant]string{},
		tracer:       tracing.Tracer("github.com/jwgpt/jwgpt/internal/llm"),
		logger:       logger.Global(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ModelName returns the provider model used for variant. Unmapped variants
// fall through to the provider default.
func (g *Generator) ModelName(variant model.ModelVariant) string {
	return g.models[variant]
}

// Generate sends the system prompt and prompt to the model and returns the
// raw reply text. Failures are returned as is; there is no retry.
func (g *Generator) Generate(ctx context.Context, prompt string, variant model.ModelVariant) (string, error) {
	modelName := g.ModelName(variant)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	ctx, span := g.tracer.Start(ctx, "llm.Generate", trace.WithAttributes(
		attribute.String("llm.provider", g.client.Name()),
		attribute.String("llm.variant", string(variant)),
		attribute.String("llm.model", modelName),
		attribute.Int("llm.prompt_chars", len(prompt)),
	))
	defer span.End()

	start := time.Now()
	resp, err := g.client.Complete(ctx, &CompletionRequest{
		Model: modelName,
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: g.systemPrompt},
			{Role: RoleUser, Content: prompt},
		},
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordGeneration(string(variant), "error", time.Since(start).Seconds(), 0, 0)
		return "", fmt.Errorf("%s completion: %w", g.client.Name(), err)
	}

	metrics.RecordGeneration(string(variant), "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
	span.SetAttributes(
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)
	g.logger.Debug("generation complete",
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.Int64("latency_ms", resp.LatencyMs),
	)

	return resp.Content, nil
}
