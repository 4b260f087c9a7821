package translate

import (
	"fmt"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/v3/option"

	"github.com/zhaopengme/transclaw/pkg/config"
)

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(cfg config.TranslationConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "mymemory":
		return NewMyMemoryBackend(cfg.APIBase, cfg.Email, cfg.Timeout), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("translation.api_key is required for provider openai")
		}
		return NewOpenAIBackend(cfg.APIKey, cfg.APIBase, cfg.Model, openaioption.WithRequestTimeout(cfg.Timeout)), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("translation.api_key is required for provider anthropic")
		}
		return NewAnthropicBackend(cfg.APIKey, cfg.APIBase, cfg.Model, anthropicoption.WithRequestTimeout(cfg.Timeout)), nil
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Provider)
	}
}
