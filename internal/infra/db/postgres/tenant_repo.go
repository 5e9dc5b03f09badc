package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

var _ repository.TenantRepository = (*tenantRepo)(nil)

// tenantRepo reads the tenant table owned by the external account service.
// Only the plan tier matters here.
type tenantRepo struct {
	pool *pgxpool.Pool
}

func NewTenantRepo(pool *pgxpool.Pool) *tenantRepo {
	return &tenantRepo{pool: pool}
}

func (r *tenantRepo) FindPlanTier(ctx context.Context, tx repository.Tx, tenantID string) (model.PlanTier, error) {
	const q = `SELECT plan_tier FROM tenants WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, tenantID)
	if err != nil {
		return "", domain.ErrOperationFailed
	}
	var tier string
	if err := row.Scan(&tier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return model.PlanTier(tier), nil
}
