package factory

import (
	"context"
	"fmt"

	"github.com/mranderson01901234/LOS-sub002/pkg/llm"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm/ollama"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm/openai"
)

// ProviderConfig carries the connection details for one backend.
type ProviderConfig struct {
	Type      string // "ollama" or "openai"
	ModelName string
	BaseURL   string
	APIKey    string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.ModelName), nil
	case "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return openai.NewOpenAIProvider(baseURL, cfg.APIKey, cfg.ModelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}

// Select returns the first available provider: primary, then fallback.
// An error means no provider is configured and reachable.
func Select(ctx context.Context, primary llm.LLMProvider, fallback llm.LLMProvider) (llm.LLMProvider, error) {
	if primary != nil && primary.Available(ctx) {
		return primary, nil
	}
	if fallback != nil && fallback.Available(ctx) {
		return fallback, nil
	}
	return nil, fmt.Errorf("no completion provider configured or reachable")
}
