// Package ai turns chat prompts into structured code-generation replies.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Generator is the external text generator. It returns raw model output.
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // empty means the OpenAI default
	Model       string
	MaxTokens   int
	Temperature float32
	TopP        float32
	UserAgent   string
}

// OpenAIGenerator calls a chat completion endpoint in JSON mode.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIGenerator creates a generator for cfg.
func NewOpenAIGenerator(cfg OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.UserAgent != "" {
		clientCfg.HTTPClient = &http.Client{
			Transport: userAgentTransport{agent: cfg.UserAgent, next: http.DefaultTransport},
		}
	}
	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Complete sends one system+user exchange and returns the first choice's content.
func (g *OpenAIGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}
