// File: internal/usecase/quota_uc_test.go
package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"saas-ai-orchestrator/internal/domain"
	"saas-ai-orchestrator/internal/domain/model"
)

func TestQuotaUseCase_CheckAndReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("admits below the limit", func(t *testing.T) {
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanFree
		jobs.seed("t1", 99)

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())
		status, err := uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
		if err != nil {
			t.Fatalf("expected admission, got %v", err)
		}
		if status.CurrentUsage != 99 || status.Limit != 100 || !status.Allowed {
			t.Errorf("unexpected status: %+v", status)
		}
	})

	t.Run("denies at the limit", func(t *testing.T) {
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanFree
		jobs.seed("t1", 100)

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())
		_, err := uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
		var qe *domain.QuotaExceededError
		if !errors.As(err, &qe) {
			t.Fatalf("expected QuotaExceededError, got %v", err)
		}
		if qe.CurrentUsage != 100 || qe.Limit != 100 {
			t.Errorf("denial must carry usage and limit: %+v", qe)
		}
	})

	t.Run("enterprise tier is unlimited", func(t *testing.T) {
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanEnterprise
		jobs.seed("t1", 100000)

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())
		status, err := uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
		if err != nil {
			t.Fatalf("unlimited tier must always admit: %v", err)
		}
		if status.Limit != model.UnlimitedQuota {
			t.Errorf("expected unlimited sentinel, got %d", status.Limit)
		}
	})

	t.Run("concurrent checks near the limit may both admit", func(t *testing.T) {
		// The check is advisory: count-then-admit with no reservation, so
		// two requests racing at usage = limit-1 can both pass. This test
		// documents that behavior; it does not forbid it.
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanFree
		jobs.seed("t1", 99)

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())

		results := make([]error, 2)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
			}(i)
		}
		wg.Wait()

		admitted := 0
		for _, err := range results {
			if err == nil {
				admitted++
				continue
			}
			var qe *domain.QuotaExceededError
			if !errors.As(err, &qe) {
				t.Fatalf("only a quota denial is acceptable here, got %v", err)
			}
		}
		if admitted == 0 {
			t.Error("at least one request at usage=limit-1 must be admitted")
		}
	})

	t.Run("unknown tenant falls back to the free tier", func(t *testing.T) {
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())
		status, err := uc.Usage(ctx, "stranger", model.FeatureAIRequests)
		if err != nil {
			t.Fatalf("Usage failed: %v", err)
		}
		if status.Tier != model.PlanFree || status.Limit != 100 {
			t.Errorf("expected free-tier fallback, got %+v", status)
		}
	})

	t.Run("empty tenant id is never metered", func(t *testing.T) {
		uc := NewQuotaUseCase(newMemJobRepo(), newMemTenantRepo(), nil, newTestLogger())
		status, err := uc.CheckAndReserve(ctx, "", model.FeatureAIRequests)
		if err != nil {
			t.Fatalf("system jobs must always be admitted: %v", err)
		}
		if status.Limit != model.UnlimitedQuota {
			t.Errorf("expected unlimited, got %d", status.Limit)
		}
	})

	t.Run("storage failure maps to StorageError", func(t *testing.T) {
		jobs := newMemJobRepo()
		jobs.findErr = errors.New("connection refused")
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanFree

		uc := NewQuotaUseCase(jobs, tenants, nil, newTestLogger())
		_, err := uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
		var se *domain.StorageError
		if !errors.As(err, &se) {
			t.Fatalf("expected StorageError, got %v", err)
		}
	})

	t.Run("configured overrides replace the default table", func(t *testing.T) {
		jobs := newMemJobRepo()
		tenants := newMemTenantRepo()
		tenants.tiers["t1"] = model.PlanFree
		jobs.seed("t1", 5)

		limits := model.PlanLimits{
			model.PlanFree: {model.FeatureAIRequests: 5},
		}
		uc := NewQuotaUseCase(jobs, tenants, limits, newTestLogger())
		_, err := uc.CheckAndReserve(ctx, "t1", model.FeatureAIRequests)
		var qe *domain.QuotaExceededError
		if !errors.As(err, &qe) {
			t.Fatalf("expected denial at the overridden limit, got %v", err)
		}
	})
}

func TestPeriodStart(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2026, time.March, 1, 2, 0, 0, 0, loc) // Feb 28 21:00 UTC

	got := periodStart(now)
	want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("period start must be computed in UTC: got %v, want %v", got, want)
	}
}
