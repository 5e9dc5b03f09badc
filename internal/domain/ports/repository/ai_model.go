package repository

import (
	"context"

	"saas-ai-orchestrator/internal/domain/model"
)

// AIModelRepository persists the model catalog. Upsert is keyed by name and
// leaves the active flag untouched; activation is toggled explicitly.
type AIModelRepository interface {
	Upsert(ctx context.Context, tx Tx, models []*model.AIModel) error
	FindByName(ctx context.Context, tx Tx, name string) (*model.AIModel, error)
	ListActive(ctx context.Context, tx Tx) ([]*model.AIModel, error)
	SetActive(ctx context.Context, tx Tx, name string, active bool) error
	// DeactivateMissing marks every model whose name is not in keep inactive.
	// Returns the number of models deactivated.
	DeactivateMissing(ctx context.Context, tx Tx, keep []string) (int64, error)
}
