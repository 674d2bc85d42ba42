package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

type gemini struct {
	model string
}

func newGemini(model string) *gemini {
	return &gemini{model: model}
}

func (p *gemini) Name() string { return ProviderGemini }

func (p *gemini) Generate(ctx context.Context, apiKey, prompt string, opts Options) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		MaxOutputTokens: int32(opts.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generate: %w", errors.New("empty response"))
	}
	return text, nil
}

func (p *gemini) Test(ctx context.Context, apiKey string) error {
	_, err := p.Generate(ctx, apiKey, "ping", Options{MaxTokens: 8})
	if err != nil {
		return fmt.Errorf("gemini connection test: %w", err)
	}
	return nil
}
