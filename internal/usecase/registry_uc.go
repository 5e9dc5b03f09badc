// File: internal/usecase/registry_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/config"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

// Compile-time check
var _ RegistryUseCase = (*registryUC)(nil)

type RegistryUseCase interface {
	// SyncFromConfig upserts the configured catalog and deactivates models
	// that were dropped from it. Idempotent; run at startup.
	SyncFromConfig(ctx context.Context, entries []config.ModelConfig) error
	Lookup(ctx context.Context, name string) (*model.AIModel, error)
	ListActive(ctx context.Context) ([]*model.AIModel, error)
}

type registryUC struct {
	models repository.AIModelRepository
	log    *zerolog.Logger
}

func NewRegistryUseCase(models repository.AIModelRepository, log *zerolog.Logger) *registryUC {
	l := log.With().Str("component", "RegistryUseCase").Logger()
	return &registryUC{models: models, log: &l}
}

func (r *registryUC) SyncFromConfig(ctx context.Context, entries []config.ModelConfig) error {
	rows := make([]*model.AIModel, 0, len(entries))
	keep := make([]string, 0, len(entries))
	for _, e := range entries {
		m, err := model.NewAIModel(
			e.Name,
			e.Provider,
			model.ModelKind(e.Kind),
			model.ProviderConfig{
				Endpoint:    e.Endpoint,
				Path:        e.Path,
				MinMemoryGB: e.MinMemoryGB,
				MinGPUMemGB: e.MinGPUMemGB,
				MinCores:    e.MinCores,
			},
			model.ParseTier(e.Tier),
			e.CostPerToken,
			e.MaxTokens,
		)
		if err != nil {
			r.log.Warn().Err(err).Str("model", e.Name).Msg("skipping invalid model entry")
			continue
		}
		rows = append(rows, m)
		keep = append(keep, m.Name)
	}

	if err := r.models.Upsert(ctx, nil, rows); err != nil {
		return err
	}
	dropped, err := r.models.DeactivateMissing(ctx, nil, keep)
	if err != nil {
		return err
	}
	if dropped > 0 {
		r.log.Info().Int64("count", dropped).Msg("models deactivated after config sync")
	}
	r.log.Info().Int("count", len(rows)).Msg("model registry synced")
	return nil
}

func (r *registryUC) Lookup(ctx context.Context, name string) (*model.AIModel, error) {
	return r.models.FindByName(ctx, nil, name)
}

func (r *registryUC) ListActive(ctx context.Context) ([]*model.AIModel, error) {
	return r.models.ListActive(ctx, nil)
}
