package adapters

import (
	"context"
	"fmt"
	"os"

	"github.com/azyu/chapterstudio/internal/llm"
	"github.com/azyu/chapterstudio/pkg/types"
)

// Provider names accepted by New.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// DefaultLocalBaseURL points at a stock Ollama install.
const DefaultLocalBaseURL = "http://localhost:11434"

// New builds the provider called name from its configuration. An OpenAI
// provider without a configured key falls back to OPENAI_API_KEY.
func New(ctx context.Context, name string, cfg *types.ProviderConfig) (llm.Provider, error) {
	if cfg == nil {
		cfg = &types.ProviderConfig{}
	}

	switch name {
	case ProviderOpenAI, "":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		var opts []OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		return NewOpenAIAdapter(key, cfg.DefaultModel, opts...)

	case ProviderGemini:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		return NewGeminiAdapter(ctx, key, cfg.DefaultModel)

	case ProviderLocal:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultLocalBaseURL
		}
		return NewLocalAdapter(baseURL, cfg.DefaultModel), nil

	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}
