package ai

import (
	"context"
)

// Message is a single chat turn passed to the text generation capability
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes text generation
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the pluggable AI capability used for embeddings and wisdom text.
// Implement this interface to add new providers (OpenAI, Ollama, etc.)
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateText(ctx context.Context, messages []Message, opts *Options) (string, error)
	IsReady() bool
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
