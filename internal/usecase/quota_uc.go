// File: internal/usecase/quota_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

// Compile-time check
var _ QuotaUseCase = (*quotaUC)(nil)

// QuotaStatus is the answer to "where does this tenant stand right now".
type QuotaStatus struct {
	Tier         model.PlanTier
	Feature      model.Feature
	CurrentUsage int64
	Limit        int64 // model.UnlimitedQuota when not metered
	Allowed      bool
}

type QuotaUseCase interface {
	// CheckAndReserve admits or denies a request against the tenant's plan.
	// Denial is returned as *domain.QuotaExceededError. The check is advisory:
	// there is no atomic reservation, so two concurrent requests near the
	// limit can both pass. Accepted trade-off.
	CheckAndReserve(ctx context.Context, tenantID string, feature model.Feature) (*QuotaStatus, error)
	// Usage reports current standing without an admission decision.
	Usage(ctx context.Context, tenantID string, feature model.Feature) (*QuotaStatus, error)
}

type quotaUC struct {
	jobs    repository.JobRepository
	tenants repository.TenantRepository
	limits  model.PlanLimits
	log     *zerolog.Logger
}

func NewQuotaUseCase(jobs repository.JobRepository, tenants repository.TenantRepository, limits model.PlanLimits, log *zerolog.Logger) *quotaUC {
	if limits == nil {
		limits = model.DefaultPlanLimits()
	}
	l := log.With().Str("component", "QuotaUseCase").Logger()
	return &quotaUC{jobs: jobs, tenants: tenants, limits: limits, log: &l}
}

// periodStart is the first instant of the current calendar month, UTC.
func periodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (q *quotaUC) CheckAndReserve(ctx context.Context, tenantID string, feature model.Feature) (*QuotaStatus, error) {
	status, err := q.Usage(ctx, tenantID, feature)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		q.log.Info().
			Str("tenant_id", tenantID).
			Str("feature", string(feature)).
			Int64("usage", status.CurrentUsage).
			Int64("limit", status.Limit).
			Msg("quota denied")
		return status, &domain.QuotaExceededError{
			Feature:      string(feature),
			PlanTier:     string(status.Tier),
			CurrentUsage: status.CurrentUsage,
			Limit:        status.Limit,
		}
	}
	return status, nil
}

func (q *quotaUC) Usage(ctx context.Context, tenantID string, feature model.Feature) (*QuotaStatus, error) {
	// System-internal jobs carry no tenant and are never metered.
	if tenantID == "" {
		return &QuotaStatus{Feature: feature, Limit: model.UnlimitedQuota, Allowed: true}, nil
	}

	tier, err := q.tenants.FindPlanTier(ctx, nil, tenantID)
	if err != nil {
		if err != domain.ErrNotFound {
			return nil, &domain.StorageError{Op: "tenant plan lookup", Err: err}
		}
		tier = model.PlanFree
	}

	limit := q.limits.LimitFor(tier, feature)
	if limit == model.UnlimitedQuota {
		return &QuotaStatus{Tier: tier, Feature: feature, Limit: limit, Allowed: true}, nil
	}

	usage, err := q.jobs.CountForTenantSince(ctx, nil, tenantID, periodStart(time.Now()))
	if err != nil {
		return nil, &domain.StorageError{Op: "usage count", Err: err}
	}

	return &QuotaStatus{
		Tier:         tier,
		Feature:      feature,
		CurrentUsage: usage,
		Limit:        limit,
		Allowed:      usage < limit,
	}, nil
}
