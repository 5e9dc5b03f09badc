package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

func TestOpenAIAdapter_Generate(t *testing.T) {
	t.Run("returns text, usage and cost", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer key" {
				t.Errorf("unexpected auth header %q", got)
			}
			var body chatRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if body.Model != "gpt-4" || body.Messages[0].Content != "hello" {
				t.Errorf("unexpected request body: %+v", body)
			}
			fmt.Fprint(w, `{
				"choices": [{"message": {"role": "assistant", "content": "hi there"}}],
				"usage": {"prompt_tokens": 100, "completion_tokens": 400, "total_tokens": 500}
			}`)
		}))
		defer srv.Close()

		a, err := NewOpenAIAdapter("key", srv.URL)
		if err != nil {
			t.Fatalf("adapter: %v", err)
		}
		res, err := a.Generate(context.Background(), "gpt-4", "hello", adapter.GenerateOptions{CostPerToken: 0.000002})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if res.Text != "hi there" {
			t.Errorf("unexpected text %q", res.Text)
		}
		if res.Usage.TotalTokens != 500 {
			t.Errorf("expected 500 tokens, got %d", res.Usage.TotalTokens)
		}
		if res.Cost != 0.001 {
			t.Errorf("expected cost 0.001 (500 x 0.000002), got %v", res.Cost)
		}
	})

	t.Run("falls back to counted tokens when usage is missing", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices": [{"message": {"role": "assistant", "content": "four words of text"}}]}`)
		}))
		defer srv.Close()

		a, _ := NewOpenAIAdapter("key", srv.URL)
		res, err := a.Generate(context.Background(), "gpt-4", "hello world", adapter.GenerateOptions{})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if res.Usage.TotalTokens == 0 {
			t.Error("expected fallback token count, got zero")
		}
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		a, _ := NewOpenAIAdapter("key", srv.URL)
		if _, err := a.Generate(context.Background(), "gpt-4", "hello", adapter.GenerateOptions{}); err == nil {
			t.Error("expected an error for http 429")
		}
	})

	t.Run("empty api key is rejected at construction", func(t *testing.T) {
		if _, err := NewOpenAIAdapter("", ""); err == nil {
			t.Error("expected constructor error")
		}
	})
}

func TestOpenAIAdapter_GenerateStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		json.NewDecoder(r.Body).Decode(&body)
		if !body.Stream || body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Errorf("expected streaming request with usage option: %+v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	a, _ := NewOpenAIAdapter("key", srv.URL)
	chunks := make(chan adapter.Chunk, 16)
	res, err := a.GenerateStream(context.Background(), "gpt-4", "greet", adapter.GenerateOptions{CostPerToken: 0.000002}, chunks)
	if err != nil {
		t.Fatalf("GenerateStream failed: %v", err)
	}
	close(chunks)

	var got []adapter.Chunk
	for c := range chunks {
		got = append(got, c)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Text != "Hello" || got[1].Text != " world" {
		t.Errorf("unexpected fragments: %+v", got)
	}
	if got[1].TokenEstimate < got[0].TokenEstimate {
		t.Error("token estimate must be a running total")
	}
	if res.Text != "Hello world" {
		t.Errorf("unexpected full text %q", res.Text)
	}
	if res.Usage.TotalTokens != 7 {
		t.Errorf("expected reported usage 7, got %d", res.Usage.TotalTokens)
	}
	if res.Usage.TotalTokens < got[len(got)-1].TokenEstimate {
		t.Error("final count must cover the running estimate")
	}
}

func TestOpenAIAdapter_CheckAvailability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/models/gpt-4") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a, _ := NewOpenAIAdapter("key", srv.URL)
	if !a.CheckAvailability(context.Background(), "gpt-4") {
		t.Error("expected gpt-4 to be available")
	}
	if a.CheckAvailability(context.Background(), "no-such-model") {
		t.Error("expected unknown model to be unavailable")
	}

	srv.Close() // unreachable backend means unavailable, never an error
	if a.CheckAvailability(context.Background(), "gpt-4") {
		t.Error("unreachable backend must read as unavailable")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(""); got != 0 {
		t.Errorf("empty fragment counts no tokens, got %d", got)
	}
	if got := estimateTokens("abcd"); got != 1 {
		t.Errorf("4 chars is one token, got %d", got)
	}
	if got := estimateTokens("abcdefgh"); got != 2 {
		t.Errorf("8 chars is two tokens, got %d", got)
	}
}
