package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OllamaProvider implements Provider using an Ollama local LLM
type OllamaProvider struct {
	baseURL        string
	embeddingModel string
	chatModel      string
	client         *http.Client
}

// NewOllamaProvider creates a new Ollama provider
func NewOllamaProvider(baseURL, embeddingModel, chatModel string) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	if chatModel == "" {
		chatModel = "llama3"
	}

	return &OllamaProvider{
		baseURL:        baseURL,
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
		client:         &http.Client{},
	}
}

// GenerateEmbedding implements Provider
func (o *OllamaProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]interface{}{
		"model":  o.embeddingModel,
		"prompt": text,
	}

	respBody, err := o.post(ctx, "/api/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned empty embedding")
	}

	return result.Embedding, nil
}

// GenerateText implements Provider
func (o *OllamaProvider) GenerateText(ctx context.Context, messages []Message, opts *Options) (string, error) {
	temperature := 0.8
	if opts != nil && opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	payload := map[string]interface{}{
		"model":    o.chatModel,
		"messages": messages,
		"stream":   false,
		"options": map[string]interface{}{
			"temperature": temperature,
		},
	}

	respBody, err := o.post(ctx, "/api/chat", payload)
	if err != nil {
		return "", err
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}

	return result.Message.Content, nil
}

// IsReady implements Provider by checking the Ollama tags endpoint
func (o *OllamaProvider) IsReady() bool {
	resp, err := o.client.Get(o.baseURL + "/api/tags")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *OllamaProvider) post(ctx context.Context, path string, payload map[string]interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
