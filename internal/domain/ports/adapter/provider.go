package adapter

import "context"

// GenerateOptions are the per-request knobs forwarded to a backend.
// CostPerToken is the resolved model's rate; hosted providers multiply it by
// reported token usage, self-hosted providers ignore it and bill zero.
type GenerateOptions struct {
	MaxTokens    int
	Temperature  float64
	CostPerToken float64
	Extra        map[string]any
}

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResult is the uniform summary shape every provider returns.
type GenerateResult struct {
	Text     string
	Usage    Usage
	Cost     float64
	Provider string
}

// Chunk is one incremental text fragment of a streamed generation.
// TokenEstimate is the running total across the stream so far (one token per
// four characters when the backend does not report exact counts).
type Chunk struct {
	Text          string
	TokenEstimate int
}

// TextProvider is the capability surface every backend implements.
// Generate fails with a ProviderExecutionError on transport or backend
// failure; retries, if any, belong to a calling layer. CheckAvailability is a
// best-effort probe: failures mean "unavailable", never an error.
type TextProvider interface {
	Name() string
	Generate(ctx context.Context, modelName, prompt string, opts GenerateOptions) (*GenerateResult, error)
	CheckAvailability(ctx context.Context, modelName string) bool
}

// StreamProvider is the optional streaming capability. Implementations send
// fragments on chunks in arrival order and return the final summary once the
// backend stream ends. The channel is never closed by the implementation and
// no chunk may be sent after GenerateStream returns. A cancelled ctx must
// abandon the in-flight generation.
type StreamProvider interface {
	TextProvider
	GenerateStream(ctx context.Context, modelName, prompt string, opts GenerateOptions, chunks chan<- Chunk) (*GenerateResult, error)
}

// ModelUpdate reports a newer local model artifact. Informational only.
type ModelUpdate struct {
	Name            string `json:"name"`
	InstalledDigest string `json:"installed_digest,omitempty"`
	LatestDigest    string `json:"latest_digest,omitempty"`
	UpdateAvailable bool   `json:"update_available"`
}

// UpdateChecker is the optional capability of providers that manage local
// model artifacts.
type UpdateChecker interface {
	CheckModelUpdates(ctx context.Context) ([]ModelUpdate, error)
}
