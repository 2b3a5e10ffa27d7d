package ai

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "openai", "ollama" or "auto"

	// OpenAI config
	OpenAIAPIKey         string
	OpenAIEmbeddingModel string
	OpenAIChatModel      string

	// Ollama config
	OllamaBaseURL        string // e.g., "http://localhost:11434"
	OllamaEmbeddingModel string // e.g., "nomic-embed-text"
	OllamaChatModel      string // e.g., "llama3", "mistral"
}

// NewProvider creates a Provider based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.OpenAIChatModel)
		if err != nil {
			return nil, err
		}
		return p, nil

	case ProviderOllama:
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaEmbeddingModel, cfg.OllamaChatModel), nil

	default:
		// Default to OpenAI if an API key is available, otherwise Ollama
		if cfg.OpenAIAPIKey != "" {
			p, err := NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingModel, cfg.OpenAIChatModel)
			if err != nil {
				return nil, err
			}
			return p, nil
		}
		return NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaEmbeddingModel, cfg.OllamaChatModel), nil
	}
}
