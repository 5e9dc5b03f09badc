package model

import (
	"time"

	"saas-ai-orchestrator/internal/domain"
)

// ModelKind is an open enumeration; only text generation exists today.
type ModelKind string

const (
	ModelKindTextGeneration ModelKind = "text-generation"
)

// PerformanceTier orders models by capability: low < medium < high < very-high.
type PerformanceTier int

const (
	TierLow PerformanceTier = iota
	TierMedium
	TierHigh
	TierVeryHigh
)

func (t PerformanceTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierMedium:
		return "medium"
	case TierHigh:
		return "high"
	case TierVeryHigh:
		return "very-high"
	}
	return "unknown"
}

// ParseTier maps a config string to a tier, defaulting to medium.
func ParseTier(s string) PerformanceTier {
	switch s {
	case "low":
		return TierLow
	case "high":
		return TierHigh
	case "very-high", "very_high":
		return TierVeryHigh
	default:
		return TierMedium
	}
}

// ProviderConfig is the free-form provider-specific configuration attached to
// a model (endpoint, path, resource requirements).
type ProviderConfig struct {
	Endpoint    string `yaml:"endpoint" json:"endpoint,omitempty"`
	Path        string `yaml:"path" json:"path,omitempty"`
	MinMemoryGB int    `yaml:"min_memory_gb" json:"min_memory_gb,omitempty"`
	MinGPUMemGB int    `yaml:"min_gpu_mem_gb" json:"min_gpu_mem_gb,omitempty"`
	MinCores    int    `yaml:"min_cores" json:"min_cores,omitempty"`
}

// AIModel is a named, provider-bound generation configuration. Identity is
// the unique name; rows are upserted at startup and deactivated, never
// deleted, when dropped from configuration.
type AIModel struct {
	Name         string
	Provider     string
	Kind         ModelKind
	Config       ProviderConfig
	Tier         PerformanceTier
	CostPerToken float64 // zero for self-hosted
	MaxTokens    int
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewAIModel validates and constructs a model entry.
func NewAIModel(name, provider string, kind ModelKind, cfg ProviderConfig, tier PerformanceTier, costPerToken float64, maxTokens int) (*AIModel, error) {
	if name == "" || provider == "" || costPerToken < 0 || maxTokens < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if kind == "" {
		kind = ModelKindTextGeneration
	}
	now := time.Now()
	return &AIModel{
		Name:         name,
		Provider:     provider,
		Kind:         kind,
		Config:       cfg,
		Tier:         tier,
		CostPerToken: costPerToken,
		MaxTokens:    maxTokens,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
