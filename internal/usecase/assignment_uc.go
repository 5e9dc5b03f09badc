// File: internal/usecase/assignment_uc.go
package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/config"
	"saas-ai-orchestrator/internal/domain/model"
	"saas-ai-orchestrator/internal/domain/ports/repository"
)

// Compile-time check
var _ AssignmentUseCase = (*assignmentUC)(nil)

type AssignmentUseCase interface {
	// AssignedModels returns the ordered eligible model names for a hardware
	// class. Classes without an explicit entry fall back to the cpu_only
	// list. The first entry is the default model for requests that do not
	// name one.
	AssignedModels(ctx context.Context, class model.Classification) []string
	// Recompute rebuilds the assignment table from configuration and the
	// registry, replacing the cached copy.
	Recompute(ctx context.Context) error
}

// assignmentTable is an immutable snapshot; lookups read it without locking
// and Recompute swaps in a fresh copy.
type assignmentTable struct {
	byClass map[model.Classification][]string
	builtAt time.Time
}

type assignmentUC struct {
	cfg     config.AssignmentConfig
	models  repository.AIModelRepository
	profile model.HardwareProfile
	ttl     time.Duration
	log     *zerolog.Logger

	table atomic.Pointer[assignmentTable]
}

func NewAssignmentUseCase(cfg config.AssignmentConfig, models repository.AIModelRepository, profile model.HardwareProfile, log *zerolog.Logger) *assignmentUC {
	l := log.With().Str("component", "AssignmentUseCase").Logger()
	uc := &assignmentUC{
		cfg:     cfg,
		models:  models,
		profile: profile,
		ttl:     cfg.CacheTTL,
		log:     &l,
	}
	return uc
}

func (a *assignmentUC) configured(class model.Classification) []string {
	switch class {
	case model.ClassSmallGPU:
		return a.cfg.SmallGPU
	case model.ClassMediumGPU:
		return a.cfg.MediumGPU
	case model.ClassLargeGPU:
		return a.cfg.LargeGPU
	default:
		return a.cfg.CPUOnly
	}
}

// Recompute filters each configured list down to registry-active models whose
// declared requirements this host meets, then swaps the table in one write.
func (a *assignmentUC) Recompute(ctx context.Context) error {
	active, err := a.models.ListActive(ctx, nil)
	if err != nil {
		return err
	}
	eligible := make(map[string]bool, len(active))
	for _, m := range active {
		if a.profile.MeetsRequirements(m.Config) {
			eligible[m.Name] = true
		}
	}

	classes := []model.Classification{model.ClassNoGPU, model.ClassSmallGPU, model.ClassMediumGPU, model.ClassLargeGPU}
	table := &assignmentTable{byClass: make(map[model.Classification][]string, len(classes)), builtAt: time.Now()}
	for _, class := range classes {
		names := a.configured(class)
		kept := make([]string, 0, len(names))
		for _, n := range names {
			if eligible[n] {
				kept = append(kept, n)
			}
		}
		table.byClass[class] = kept
	}

	a.table.Store(table)
	a.log.Debug().
		Int("no_gpu", len(table.byClass[model.ClassNoGPU])).
		Int("large_gpu", len(table.byClass[model.ClassLargeGPU])).
		Msg("assignment table rebuilt")
	return nil
}

func (a *assignmentUC) AssignedModels(ctx context.Context, class model.Classification) []string {
	table := a.table.Load()
	if table == nil || time.Since(table.builtAt) > a.ttl {
		if err := a.Recompute(ctx); err != nil {
			a.log.Error().Err(err).Msg("assignment recompute failed")
			if table == nil {
				// No snapshot at all yet; serve the raw configuration so a
				// storage blip does not take assignment down with it.
				return a.fallback(class)
			}
		} else {
			table = a.table.Load()
		}
	}

	names := table.byClass[class]
	if len(names) == 0 && class != model.ClassNoGPU {
		names = table.byClass[model.ClassNoGPU]
	}
	return names
}

func (a *assignmentUC) fallback(class model.Classification) []string {
	if names := a.configured(class); len(names) > 0 {
		return names
	}
	return a.cfg.CPUOnly
}
