package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies both capability surfaces
var _ adapter.StreamProvider = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the provider port against the Chat Completions
// API, including its SSE streaming variant.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	client *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(baseURL, "/"),
		// No client-level timeout: streaming responses outlive any fixed
		// bound, the caller's ctx governs instead.
		client: &http.Client{},
	}, nil
}

func (o *OpenAIAdapter) Name() string { return "openai" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	MaxTokens     int           `json:"max_tokens,omitempty"`
	Temperature   float64       `json:"temperature,omitempty"`
	Stream        bool          `json:"stream,omitempty"`
	StreamOptions *struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (o *OpenAIAdapter) newRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	return req, nil
}

func (o *OpenAIAdapter) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (*adapter.GenerateResult, error) {
	req, err := o.newRequest(ctx, chatRequest{
		Model:       modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Usage chatUsage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Choices) == 0 || payload.Choices[0].Message.Content == "" {
		return nil, errors.New("openai: no choice content")
	}

	usage := adapter.Usage{
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		TotalTokens:      payload.Usage.TotalTokens,
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = countTokens(prompt)
		usage.CompletionTokens = countTokens(payload.Choices[0].Message.Content)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &adapter.GenerateResult{
		Text:     payload.Choices[0].Message.Content,
		Usage:    usage,
		Cost:     float64(usage.TotalTokens) * opts.CostPerToken,
		Provider: o.Name(),
	}, nil
}

// GenerateStream reads the SSE response line by line, forwarding each delta
// fragment with a running token estimate.
func (o *OpenAIAdapter) GenerateStream(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions, chunks chan<- adapter.Chunk) (*adapter.GenerateResult, error) {
	body := chatRequest{
		Model:       modelName,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      true,
	}
	body.StreamOptions = &struct {
		IncludeUsage bool `json:"include_usage"`
	}{IncludeUsage: true}

	req, err := o.newRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var (
		full     strings.Builder
		estimate int
		usage    adapter.Usage
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Usage *chatUsage `json:"usage"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue // tolerate malformed keepalive frames
		}
		if event.Usage != nil {
			usage = adapter.Usage{
				PromptTokens:     event.Usage.PromptTokens,
				CompletionTokens: event.Usage.CompletionTokens,
				TotalTokens:      event.Usage.TotalTokens,
			}
		}
		if len(event.Choices) == 0 || event.Choices[0].Delta.Content == "" {
			continue
		}

		fragment := event.Choices[0].Delta.Content
		full.WriteString(fragment)
		estimate += estimateTokens(fragment)

		select {
		case chunks <- adapter.Chunk{Text: fragment, TokenEstimate: estimate}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
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
		Provider: o.Name(),
	}, nil
}

// CheckAvailability asks the models endpoint for the exact model. Any
// failure is "unavailable", never an error.
func (o *OpenAIAdapter) CheckAvailability(ctx context.Context, modelName string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.base+"/models/"+modelName, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
