// Package openai provides an LLM service adapter using the OpenAI chat
// completions API via the go-openai client.
package openai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel       = goopenai.GPT4oMini
	DefaultTemperature = 0.2
)

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL for compatible endpoints.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string

	// Temperature controls sampling randomness. Clinical and billing
	// prompts want low-variance output.
	Temperature float32
}

// LLMService generates chat completions through the OpenAI API.
type LLMService struct {
	client      *goopenai.Client
	model       string
	temperature float32
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &LLMService{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Chat sends the conversation to the model and returns its reply.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("openai: %w: no messages", domain.ErrInvalidInput)
	}

	req := goopenai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages:    make([]goopenai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, goopenai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrLLMUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", domain.ErrLLMUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the name of the chat model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service with a minimal completion request.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleUser, Content: "ping"},
	})
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
