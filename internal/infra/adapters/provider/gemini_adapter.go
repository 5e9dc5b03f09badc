package provider

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

var _ adapter.StreamProvider = (*GeminiAdapter)(nil)

// GeminiAdapter implements the provider port using the official SDK.
type GeminiAdapter struct {
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c}, nil
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func promptContents(prompt string) []*genai.Content {
	return []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}
}

func (g *GeminiAdapter) genConfig(opts adapter.GenerateOptions) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	return cfg
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func extractUsage(resp *genai.GenerateContentResponse) adapter.Usage {
	u := adapter.Usage{}
	if resp != nil && resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return u
}

func (g *GeminiAdapter) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (*adapter.GenerateResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx, modelName, promptContents(prompt), g.genConfig(opts))
	if err != nil {
		return nil, err
	}

	text := extractText(resp)
	if text == "" {
		return nil, errors.New("gemini: empty candidate response")
	}

	usage := extractUsage(resp)
	if usage.TotalTokens == 0 {
		usage.PromptTokens = countTokens(prompt)
		usage.CompletionTokens = countTokens(text)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &adapter.GenerateResult{
		Text:     text,
		Usage:    usage,
		Cost:     float64(usage.TotalTokens) * opts.CostPerToken,
		Provider: g.Name(),
	}, nil
}

func (g *GeminiAdapter) GenerateStream(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions, chunks chan<- adapter.Chunk) (*adapter.GenerateResult, error) {
	var (
		full     strings.Builder
		estimate int
		usage    adapter.Usage
	)

	for resp, err := range g.client.Models.GenerateContentStream(ctx, modelName, promptContents(prompt), g.genConfig(opts)) {
		if err != nil {
			return nil, err
		}
		if u := extractUsage(resp); u.TotalTokens > 0 {
			usage = u
		}
		fragment := extractText(resp)
		if fragment == "" {
			continue
		}
		full.WriteString(fragment)
		estimate += estimateTokens(fragment)
		select {
		case chunks <- adapter.Chunk{Text: fragment, TokenEstimate: estimate}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if usage.TotalTokens == 0 {
		usage.PromptTokens = countTokens(prompt)
		usage.CompletionTokens = countTokens(full.String())
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens < estimate {
		usage.TotalTokens = estimate
	}

	return &adapter.GenerateResult{
		Text:     full.String(),
		Usage:    usage,
		Cost:     float64(usage.TotalTokens) * opts.CostPerToken,
		Provider: g.Name(),
	}, nil
}

// CheckAvailability asks the SDK for the model's metadata; any failure means
// unavailable.
func (g *GeminiAdapter) CheckAvailability(ctx context.Context, modelName string) bool {
	m, err := g.client.Models.Get(ctx, modelName, nil)
	return err == nil && m != nil
}
