package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

// Compile-time assurance
var (
	_ adapter.StreamProvider = (*OllamaAdapter)(nil)
	_ adapter.UpdateChecker  = (*OllamaAdapter)(nil)
)

// OllamaAdapter serves local inference through an Ollama daemon. Self-hosted
// generation always bills zero cost regardless of the model's rate.
type OllamaAdapter struct {
	base   string // e.g., http://localhost:11434
	client *http.Client
}

func NewOllamaAdapter(baseURL string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaAdapter{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{},
	}
}

func (a *OllamaAdapter) Name() string { return "ollama" }

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (a *OllamaAdapter) options(opts adapter.GenerateOptions) map[string]any {
	out := map[string]any{}
	if opts.MaxTokens > 0 {
		out["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		out["temperature"] = opts.Temperature
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (a *OllamaAdapter) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.base+path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return a.client.Do(req)
}

func (a *OllamaAdapter) Generate(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions) (*adapter.GenerateResult, error) {
	resp, err := a.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		Stream:  false,
		Options: a.options(opts),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var payload ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	usage := adapter.Usage{
		PromptTokens:     payload.PromptEvalCount,
		CompletionTokens: payload.EvalCount,
		TotalTokens:      payload.PromptEvalCount + payload.EvalCount,
	}
	if usage.TotalTokens == 0 {
		usage.PromptTokens = estimateTokens(prompt)
		usage.CompletionTokens = estimateTokens(payload.Response)
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}

	return &adapter.GenerateResult{
		Text:     payload.Response,
		Usage:    usage,
		Cost:     0, // self-hosted
		Provider: a.Name(),
	}, nil
}

// GenerateStream consumes Ollama's JSON-lines stream, one object per
// fragment, the final one carrying eval counts.
func (a *OllamaAdapter) GenerateStream(ctx context.Context, modelName, prompt string, opts adapter.GenerateOptions, chunks chan<- adapter.Chunk) (*adapter.GenerateResult, error) {
	resp, err := a.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:   modelName,
		Prompt:  prompt,
		Stream:  true,
		Options: a.options(opts),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var (
		full     strings.Builder
		estimate int
		usage    adapter.Usage
	)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var part ollamaGenerateResponse
		if err := json.Unmarshal(scanner.Bytes(), &part); err != nil {
			continue
		}
		if part.Response != "" {
			full.WriteString(part.Response)
			estimate += estimateTokens(part.Response)
			select {
			case chunks <- adapter.Chunk{Text: part.Response, TokenEstimate: estimate}:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if part.Done {
			usage = adapter.Usage{
				PromptTokens:     part.PromptEvalCount,
				CompletionTokens: part.EvalCount,
				TotalTokens:      part.PromptEvalCount + part.EvalCount,
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if usage.TotalTokens == 0 {
		usage.PromptTokens = estimateTokens(prompt)
		usage.CompletionTokens = estimateTokens(full.String())
		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	}
	if usage.TotalTokens < estimate {
		usage.TotalTokens = estimate
	}

	return &adapter.GenerateResult{
		Text:     full.String(),
		Usage:    usage,
		Cost:     0,
		Provider: a.Name(),
	}, nil
}

// CheckAvailability lists local tags and looks for the model by name.
func (a *OllamaAdapter) CheckAvailability(ctx context.Context, modelName string) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var payload struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false
	}
	for _, m := range payload.Models {
		if m.Name == modelName || strings.TrimSuffix(m.Name, ":latest") == modelName {
			return true
		}
	}
	return false
}

// CheckModelUpdates compares installed digests against the registry's latest
// for every local tag. Informational only; errors abort the whole check.
func (a *OllamaAdapter) CheckModelUpdates(ctx context.Context) ([]adapter.ModelUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama http %d", resp.StatusCode)
	}

	var payload struct {
		Models []struct {
			Name   string `json:"name"`
			Digest string `json:"digest"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	updates := make([]adapter.ModelUpdate, 0, len(payload.Models))
	for _, m := range payload.Models {
		latest, err := a.latestDigest(ctx, m.Name)
		if err != nil {
			// Registry unreachable for this tag; report installed state only.
			updates = append(updates, adapter.ModelUpdate{Name: m.Name, InstalledDigest: m.Digest})
			continue
		}
		updates = append(updates, adapter.ModelUpdate{
			Name:            m.Name,
			InstalledDigest: m.Digest,
			LatestDigest:    latest,
			UpdateAvailable: latest != "" && latest != m.Digest,
		})
	}
	return updates, nil
}

func (a *OllamaAdapter) latestDigest(ctx context.Context, name string) (string, error) {
	resp, err := a.post(ctx, "/api/show", map[string]string{"model": name})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama http %d", resp.StatusCode)
	}
	var payload struct {
		Digest string `json:"digest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Digest, nil
}
