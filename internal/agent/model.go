package agent

import (
	"fmt"
	"time"
)

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ModelConfig selects and configures a provider.
type ModelConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewModel creates the model for cfg.Provider.
func NewModel(cfg ModelConfig) (Model, error) {
	switch cfg.Provider {
	case ProviderAnthropic, "":
		return NewAnthropicModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	case ProviderOpenAI:
		return NewOpenAIModel(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
