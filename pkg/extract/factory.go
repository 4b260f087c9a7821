package extract

import (
	"fmt"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/v3/option"

	"github.com/zhaopengme/transclaw/pkg/config"
)

// NewExtractor builds the extractor named by cfg.Provider.
func NewExtractor(cfg config.ExtractionConfig) (Extractor, error) {
	switch cfg.Provider {
	case "", "tesseract":
		return NewTesseract(cfg.TesseractPath, cfg.TesseractLangs), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("extraction.api_key is required for provider openai")
		}
		return NewOpenAIVision(cfg.APIKey, cfg.APIBase, cfg.Model, openaioption.WithRequestTimeout(cfg.Timeout)), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("extraction.api_key is required for provider anthropic")
		}
		return NewAnthropicVision(cfg.APIKey, cfg.APIBase, cfg.Model, anthropicoption.WithRequestTimeout(cfg.Timeout)), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Provider)
	}
}
