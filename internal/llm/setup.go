package llm

import (
	"slices"

	"go.uber.org/zap"

	"github.com/jwgpt/jwgpt/internal/config"
	"github.com/jwgpt/jwgpt/internal/model"
	"github.com/jwgpt/jwgpt/pkg/logger"
)

// NewGeneratorFromConfig builds the generator for the configured provider.
// With Anthropic both variants map to the single configured model.
func NewGeneratorFromConfig(cfg *config.Config, log *logger.Logger) (*Generator, error) {
	provider := Provider(cfg.LLMProvider)

	var (
		pc     ProviderConfig
		models map[model.ModelVariant]string
	)
	switch provider {
	case ProviderAnthropic:
		pc = ProviderConfig{APIKey: cfg.AnthropicAPIKey}
		models = map[model.ModelVariant]string{
			model.ModelGeminiPro:   cfg.AnthropicModel,
			model.ModelGeminiFlash: cfg.AnthropicModel,
		}
	default:
		pc = ProviderConfig{APIKey: cfg.GeminiAPIKey, BaseURL: cfg.GeminiBaseURL}
		models = map[model.ModelVariant]string{
			model.ModelGeminiPro:   cfg.GeminiProModel,
			model.ModelGeminiFlash: cfg.GeminiFlashModel,
		}
	}

	client, err := NewClient(provider, pc)
	if err != nil {
		return nil, err
	}

	for _, name := range unknownModels(client.Models(), models) {
		log.Warn("configured model is not in the provider's known list",
			zap.String("provider", client.Name()),
			zap.String("model", name),
			zap.Strings("known", client.Models()),
		)
	}

	return NewGenerator(client,
		WithModels(models),
		WithRateLimit(cfg.LLMRateLimit, cfg.LLMRateBurst),
		WithGeneratorLogger(log),
	), nil
}

// unknownModels returns the configured model names missing from known, sorted
// and without duplicates.
func unknownModels(known []string, models map[model.ModelVariant]string) []string {
	var out []string
	for _, name := range models {
		if name != "" && !slices.Contains(known, name) && !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
