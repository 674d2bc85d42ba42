package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openaiCompatible serves the OpenAI API and its compatible endpoints
// (OpenRouter, Grok) through base-URL overrides.
type openaiCompatible struct {
	name    string
	baseURL string
	model   string
}

func newOpenAICompatible(name, baseURL, model string) *openaiCompatible {
	return &openaiCompatible{name: name, baseURL: baseURL, model: model}
}

func (p *openaiCompatible) Name() string { return p.name }

func (p *openaiCompatible) Generate(ctx context.Context, apiKey, prompt string, opts Options) (string, error) {
	resp, err := p.client(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s completion: %w", p.name, errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openaiCompatible) Test(ctx context.Context, apiKey string) error {
	_, err := p.client(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "ping"},
		},
		MaxTokens: 1,
	})
	if err != nil {
		return fmt.Errorf("%s connection test: %w", p.name, err)
	}
	return nil
}

func (p *openaiCompatible) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
