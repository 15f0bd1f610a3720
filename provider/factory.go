package provider

import "fmt"

// NewProvider creates a provider from configuration.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Type {
	case TypeOpenAI:
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case TypeAnthropic:
		return NewAnthropicProvider(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case TypeOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider type: %q", cfg.Type)
	}
}
