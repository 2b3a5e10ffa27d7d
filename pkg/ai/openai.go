package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// OpenAIProvider implements Provider using the OpenAI API
type OpenAIProvider struct {
	llm      *openai.LLM
	embedder embeddings.Embedder
}

// NewOpenAIProvider creates a new OpenAI-backed provider
func NewOpenAIProvider(apiKey, embeddingModel, chatModel string) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
	}
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}

	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(chatModel),
		openai.WithEmbeddingModel(embeddingModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedder: %w", err)
	}

	return &OpenAIProvider{
		llm:      llm,
		embedder: embedder,
	}, nil
}

// GenerateEmbedding implements Provider
func (p *OpenAIProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embedding, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}
	return embedding, nil
}

// GenerateText implements Provider
func (p *OpenAIProvider) GenerateText(ctx context.Context, messages []Message, opts *Options) (string, error) {
	temperature := 0.8
	maxTokens := 150
	if opts != nil {
		if opts.Temperature > 0 {
			temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			maxTokens = opts.MaxTokens
		}
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := schema.ChatMessageTypeHuman
		switch m.Role {
		case "system":
			role = schema.ChatMessageTypeSystem
		case "assistant":
			role = schema.ChatMessageTypeAI
		}
		content = append(content, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	response, err := p.llm.GenerateContent(ctx, content,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("openai chat failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai chat returned no choices")
	}

	return response.Choices[0].Content, nil
}

// IsReady implements Provider
func (p *OpenAIProvider) IsReady() bool {
	return p.llm != nil
}
