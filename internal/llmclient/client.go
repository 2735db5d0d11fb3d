package llmclient

import (
	"context"
	"fmt"
	"os"

	"forge/internal/config"
	"forge/internal/types"
)

// New builds the configured LLMClient per cfg.LLM.Provider: "gemini",
// "openai", or "mock". The API key for gemini and openai is read from the
// LLM_API_KEY environment variable (§6.1).
func New(ctx context.Context, cfg config.LLMConfig) (types.LLMClient, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiClient(ctx, os.Getenv("LLM_API_KEY"), cfg)
	case "openai":
		return NewOpenAIClient(os.Getenv("LLM_API_KEY"), cfg)
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("llmclient: unknown provider %q", cfg.Provider)
	}
}
