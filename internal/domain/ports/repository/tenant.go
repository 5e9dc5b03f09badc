package repository

import (
	"context"

	"saas-ai-orchestrator/internal/domain/model"
)

// TenantRepository resolves a tenant's plan tier. Tenant lifecycle and
// billing live in an external service; this read is all the orchestrator
// needs.
type TenantRepository interface {
	FindPlanTier(ctx context.Context, tx Tx, tenantID string) (model.PlanTier, error)
}
