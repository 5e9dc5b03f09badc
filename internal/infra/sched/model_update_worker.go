package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-ai-orchestrator/internal/domain/ports/adapter"
)

// ModelUpdateWorker asks providers that manage local model artifacts
// whether newer versions exist. Results are logged only; pulling updates
// stays an operator decision.
type ModelUpdateWorker struct {
	interval time.Duration
	checkers []adapter.UpdateChecker
	log      *zerolog.Logger
}

func NewModelUpdateWorker(interval time.Duration, checkers []adapter.UpdateChecker, logger *zerolog.Logger) *ModelUpdateWorker {
	updLog := logger.With().Str("component", "ModelUpdateWorker").Logger()
	return &ModelUpdateWorker{
		interval: interval,
		checkers: checkers,
		log:      &updLog,
	}
}

func (w *ModelUpdateWorker) Run(ctx context.Context) error {
	if len(w.checkers) == 0 {
		w.log.Info().Msg("No update-capable providers, worker idle")
		<-ctx.Done()
		return ctx.Err()
	}
	w.log.Info().Msg("Starting model update worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping model update worker")
			return ctx.Err()
		case <-ticker.C:
			for _, c := range w.checkers {
				updates, err := c.CheckModelUpdates(ctx)
				if err != nil {
					w.log.Error().Err(err).Msg("check model updates")
					continue
				}
				for _, u := range updates {
					if u.UpdateAvailable {
						w.log.Info().
							Str("model", u.Name).
							Str("installed", u.InstalledDigest).
							Str("latest", u.LatestDigest).
							Msg("model update available")
					}
				}
			}
		}
	}
}
