package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
	"saas-ai-orchestrator/internal/infra/metrics"
	"saas-ai-orchestrator/internal/infra/worker"
	"saas-ai-orchestrator/internal/usecase"
)

// AvailabilityStore records the outcome of the last probe per model.
type AvailabilityStore interface {
	Set(ctx context.Context, modelName string, available bool) error
}

// AvailabilityWorker periodically probes every active model against its
// provider, records the result, and recomputes the hardware assignment
// snapshot so that newly unavailable models fall out of rotation.
type AvailabilityWorker struct {
	interval   time.Duration
	registry   usecase.RegistryUseCase
	assignment usecase.AssignmentUseCase
	providers  adapter.ProviderSet
	store      AvailabilityStore
	pool       *worker.Pool
	log        *zerolog.Logger
}

func NewAvailabilityWorker(interval time.Duration, registry usecase.RegistryUseCase, assignment usecase.AssignmentUseCase, providers adapter.ProviderSet, store AvailabilityStore, pool *worker.Pool, logger *zerolog.Logger) *AvailabilityWorker {
	availLog := logger.With().Str("component", "AvailabilityWorker").Logger()
	return &AvailabilityWorker{
		interval:   interval,
		registry:   registry,
		assignment: assignment,
		providers:  providers,
		store:      store,
		pool:       pool,
		log:        &availLog,
	}
}

func (w *AvailabilityWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting availability worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Probe once at startup so the cache is warm before the first tick.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping availability worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *AvailabilityWorker) sweep(ctx context.Context) {
	models, err := w.registry.ListActive(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("list active models")
		return
	}
	for _, m := range models {
		prov, ok := w.providers.Get(m.Provider)
		if !ok {
			continue
		}
		name := m.Name
		if err := w.pool.Submit(func(taskCtx context.Context) error {
			available := prov.CheckAvailability(taskCtx, name)
			metrics.IncAvailabilityProbe(available)
			if err := w.store.Set(taskCtx, name, available); err != nil {
				w.log.Warn().Err(err).Str("model", name).Msg("store availability")
			}
			if !available {
				w.log.Warn().Str("model", name).Str("provider", prov.Name()).Msg("model unavailable")
			}
			return nil
		}); err != nil {
			w.log.Warn().Err(err).Str("model", name).Msg("probe not queued")
		}
	}
	if err := w.assignment.Recompute(ctx); err != nil {
		w.log.Error().Err(err).Msg("recompute assignments")
	}
}
