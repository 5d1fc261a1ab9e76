// Package openai adapts OpenAI-compatible chat and embedding APIs. DeepSeek
// is reached through the same client with its base URL overridden.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/faiqfarooq/Codebase-RAG/internal/llm"
)

type Embedder struct {
	client  *openai.Client
	model   string
	dim     int
	timeout time.Duration
}

// NewEmbedder builds an embedding client. An empty baseURL means the default
// OpenAI endpoint.
func NewEmbedder(apiKey, baseURL, model string, dim int, timeout time.Duration) *Embedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Embedder{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		dim:     dim,
		timeout: timeout,
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("cannot embed empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, mapProviderError(err)
	}
	if len(resp.Data) == 0 {
		return nil, llm.NewProviderError(llm.KindUnknown, errors.New("no embedding data returned"))
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i := range raw {
		vec[i] = float32(raw[i])
	}

	if len(vec) != e.dim {
		return nil, fmt.Errorf("model %s returned %d dims, expected %d", e.model, len(vec), e.dim)
	}
	return vec, nil
}

func (e *Embedder) Dimension() int {
	return e.dim
}

// ChatClient generates answers over a chat-completion endpoint.
type ChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewChatClient builds a client for one provider. An empty baseURL means the
// default OpenAI endpoint.
func NewChatClient(apiKey, baseURL, model string, timeout time.Duration) *ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &ChatClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

func (c *ChatClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.7,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", mapProviderError(err)
	}
	if len(resp.Choices) == 0 {
		return "", llm.NewProviderError(llm.KindUnknown, errors.New("no completion choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

// mapProviderError classifies transport failures so callers can decide on
// retry or backoff without string-matching error text.
func mapProviderError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewProviderError(llm.KindTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 429:
			return llm.NewProviderError(llm.KindRateLimited, err)
		case 401, 403:
			return llm.NewProviderError(llm.KindAuthFailed, err)
		}
	}
	return llm.NewProviderError(llm.KindUnknown, err)
}
